// Package api serves the run dashboard over HTTP: the dashboard snapshot,
// archived run history, reports, and per-draft verdicts.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/siteops/internal/store"
)

// Server represents the dashboard API server
type Server struct {
	echo *echo.Echo
	st   *store.Store
	port int
}

// NewServer creates a new API server over the given artifact store
func NewServer(st *store.Store, port int) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo: e,
		st:   st,
		port: port,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")
	v1.GET("/dashboard", s.getDashboard)
	v1.GET("/runs", s.getRuns)
	v1.GET("/runs/:id/report", s.getRunReport)
	v1.GET("/verdicts/:slug", s.getVerdict)
	v1.GET("/drafts/:slug", s.getDraft)
}

// Start begins the API server and blocks until interrupted
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

func (s *Server) getDashboard(c echo.Context) error {
	path := filepath.Join(s.st.Base(), "dashboard.json")
	if _, err := os.Stat(path); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no dashboard yet, run the pipeline first",
		})
	}
	return c.File(path)
}

func (s *Server) getRuns(c echo.Context) error {
	records, err := s.st.LoadRunRecords()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, records)
}

// safeName rejects path parameters that could point outside the store:
// empty values, separators, or parent references. The percent-decoded
// form is checked as well, so an encoded slash cannot slip through.
func safeName(name string) bool {
	if name == "" {
		return false
	}
	if decoded, err := url.PathUnescape(name); err == nil && !plainName(decoded) {
		return false
	}
	return plainName(name)
}

func plainName(name string) bool {
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func badName(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error": fmt.Sprintf("invalid name %q", name),
	})
}

func (s *Server) getRunReport(c echo.Context) error {
	id := c.Param("id")
	if !safeName(id) {
		return badName(c, id)
	}
	path := filepath.Join(s.st.Base(), "reports", fmt.Sprintf("run-%s.md", id))
	data, err := os.ReadFile(path)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("no report for run %s", id),
		})
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", data)
}

func (s *Server) getVerdict(c echo.Context) error {
	slug := c.Param("slug")
	if !safeName(slug) {
		return badName(c, slug)
	}
	path := filepath.Join(s.st.Base(), "reviews", slug+".json")
	if _, err := os.Stat(path); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("no verdict for %s", slug),
		})
	}
	return c.File(path)
}

func (s *Server) getDraft(c echo.Context) error {
	slug := c.Param("slug")
	if !safeName(slug) {
		return badName(c, slug)
	}
	html, err := s.st.LoadDraft(slug)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("no draft for %s", slug),
		})
	}
	return c.HTML(http.StatusOK, html)
}
