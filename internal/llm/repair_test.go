package llm

import (
	"encoding/json"
	"testing"
)

func TestRepairJSON_ValidJSON(t *testing.T) {
	validJSON := `{"status": "APPROVE", "issues": []}`

	repaired, stats, err := RepairJSON(validJSON)

	if err != nil {
		t.Errorf("Expected no error for valid JSON, got: %v", err)
	}
	if stats.WasRepaired {
		t.Error("Expected WasRepaired to be false for valid JSON")
	}
	if repaired != validJSON {
		t.Error("Expected repaired JSON to be identical to original for valid JSON")
	}
}

func TestRepairJSON_TrailingCommas(t *testing.T) {
	malformedJSON := `{"issues": ["a", "b",], "status": "REJECT",}`

	repaired, stats, err := RepairJSON(malformedJSON)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !stats.WasRepaired {
		t.Error("Expected WasRepaired to be true")
	}
	var result map[string]interface{}
	if json.Unmarshal([]byte(repaired), &result) != nil {
		t.Error("Repaired JSON should be valid")
	}
	if len(stats.Strategies) == 0 || stats.Strategies[0] != "trailing_commas" {
		t.Errorf("Expected trailing_commas strategy, got %v", stats.Strategies)
	}
}

func TestRepairJSON_IncompleteObject(t *testing.T) {
	malformedJSON := `{"status": "FLAGGED", "issues": ["truncated response"`

	repaired, stats, err := RepairJSON(malformedJSON)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !stats.WasRepaired {
		t.Error("Expected WasRepaired to be true")
	}

	var result map[string]interface{}
	if json.Unmarshal([]byte(repaired), &result) != nil {
		t.Fatal("Repaired JSON should be valid")
	}
	if result["status"] != "FLAGGED" {
		t.Errorf("Expected status to survive repair, got %v", result["status"])
	}
}

func TestRepairJSON_UnquotedKeys(t *testing.T) {
	malformedJSON := `{status: "APPROVE", reason: "fine"}`

	repaired, _, err := RepairJSON(malformedJSON)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	var result map[string]interface{}
	if json.Unmarshal([]byte(repaired), &result) != nil {
		t.Fatal("Repaired JSON should be valid")
	}
	if result["status"] != "APPROVE" {
		t.Errorf("Expected recovered status key, got %v", result)
	}
}

func TestRepairJSON_BracesInsideStrings(t *testing.T) {
	input := `{"reason": "diff shows { and [ in markup"`

	repaired, _, err := RepairJSON(input)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	var result map[string]interface{}
	if json.Unmarshal([]byte(repaired), &result) != nil {
		t.Fatal("Repaired JSON should be valid")
	}
}

func TestRepairJSON_SingleQuotes(t *testing.T) {
	input := `{"status": 'APPROVE'}`

	repaired, _, err := RepairJSON(input)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	var result map[string]interface{}
	if json.Unmarshal([]byte(repaired), &result) != nil {
		t.Fatal("Repaired JSON should be valid")
	}
	if result["status"] != "APPROVE" {
		t.Errorf("Expected single quotes converted, got %v", result)
	}
}
