package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RunLogger manages the log file for a single pipeline run. It records
// timestamped messages, section headers, and full LLM prompts/responses.
type RunLogger struct {
	runID     string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

var (
	currentLogger *RunLogger
	loggerMutex   sync.Mutex
)

// StartRunLogging initializes logging for a new pipeline run. Any previous
// run logger is closed first.
func StartRunLogging(logDir, runID string) (*RunLogger, error) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if currentLogger != nil {
		currentLogger.Close()
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("run_%s_%s.log", runID, timestamp))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &RunLogger{
		runID:     runID,
		logFile:   logFile,
		startTime: time.Now(),
	}
	currentLogger = logger
	logger.writeHeader()

	return logger, nil
}

// GetCurrentLogger returns the active run logger, or nil if none started.
func GetCurrentLogger() *RunLogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	return currentLogger
}

// Log writes a formatted message to the run log.
func (r *RunLogger) Log(format string, args ...interface{}) {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(r.startTime).Round(time.Millisecond)
	message := fmt.Sprintf("[%s] [+%v] %s\n", timestamp, elapsed, fmt.Sprintf(format, args...))
	r.logFile.WriteString(message)
	r.logFile.Sync()
}

// LogSection writes a section header to the log.
func (r *RunLogger) LogSection(title string) {
	if r == nil {
		return
	}

	separator := strings.Repeat("=", 80)
	r.Log(separator)
	r.Log("= %s", title)
	r.Log(separator)
}

// LogPrompt logs an LLM prompt in full.
func (r *RunLogger) LogPrompt(stage, slug, prompt string) {
	if r == nil {
		return
	}

	r.LogSection(fmt.Sprintf("LLM PROMPT - %s %s", stage, slug))
	r.Log("Prompt length: %d characters", len(prompt))
	r.writeRaw(prompt)
}

// LogResponse logs an LLM response in full.
func (r *RunLogger) LogResponse(stage, slug, response string) {
	if r == nil {
		return
	}

	r.LogSection(fmt.Sprintf("LLM RESPONSE - %s %s", stage, slug))
	r.Log("Response length: %d characters", len(response))
	r.writeRaw(response)
}

// LogError logs an error with its context.
func (r *RunLogger) LogError(where string, err error) {
	if r == nil {
		return
	}
	r.Log("ERROR in %s: %v", where, err)
}

// Close finalizes the log file.
func (r *RunLogger) Close() {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.logFile != nil {
		elapsed := time.Since(r.startTime).Round(time.Millisecond)
		r.logFile.WriteString(fmt.Sprintf("Run logging completed. Total duration: %v\n", elapsed))
		r.logFile.Close()
		r.logFile = nil
	}
}

func (r *RunLogger) writeHeader() {
	header := fmt.Sprintf(`SITEOPS RUN LOG
Run ID: %s
Start Time: %s
Log Format: [HH:MM:SS.mmm] [+duration] message

`, r.runID, r.startTime.Format("2006-01-02 15:04:05"))
	r.logFile.WriteString(header)
	r.logFile.Sync()
}

func (r *RunLogger) writeRaw(content string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.logFile.WriteString(content + "\n")
	r.logFile.Sync()
}
