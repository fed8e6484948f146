// Package server exposes the dictionary over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/at-ishikawa/vocabox/internal/config"
)

// AuthorizationHeader carries the shared API key.
const AuthorizationHeader = "authorization"

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck = func(ctx context.Context) error

// Options are the collaborators of a Server. Images may be nil, in which
// case GET /image is not routed.
type Options struct {
	Config            config.ServerConfig
	Resolver          Resolver
	Dictionary        Dictionary
	RandomWords       RandomWords
	Images            ImageSearcher
	ImagesDir         string
	PronunciationsDir string
	ReadyChecks       map[string]ReadyCheck
}

type Server struct {
	cfg         config.ServerConfig
	resolver    Resolver
	dictionary  Dictionary
	randomWords RandomWords
	images      ImageSearcher
	readyChecks map[string]ReadyCheck
	router      *gin.Engine
	logger      *slog.Logger
}

func New(opts Options) (*Server, error) {
	if err := setupValidation(); err != nil {
		return nil, fmt.Errorf("setupValidation() > %w", err)
	}

	s := &Server{
		cfg:         opts.Config,
		resolver:    opts.Resolver,
		dictionary:  opts.Dictionary,
		randomWords: opts.RandomWords,
		images:      opts.Images,
		readyChecks: opts.ReadyChecks,
		logger:      slog.Default().With("component", "server"),
	}
	s.setupRoutes(opts.ImagesDir, opts.PronunciationsDir)
	return s, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(imagesDir, pronunciationsDir string) {
	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.logRequests())

	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/readyz", s.handleReady)
	if imagesDir != "" {
		s.router.Static("/images", imagesDir)
	}
	if pronunciationsDir != "" {
		s.router.Static("/pronunciations", pronunciationsDir)
	}

	s.router.GET("/translate", s.handleLookup)
	s.router.GET("/translate/search", s.handleSearch)
	s.router.GET("/translations", s.handleList)
	s.router.GET("/translations/amount", s.handleAmount)
	s.router.GET("/translations/:id", s.handleGet)
	s.router.GET("/random_word", s.handleRandomWord)

	authorized := s.router.Group("/", s.requireAPIKey())
	authorized.POST("/translate", s.handleSave)
	authorized.PUT("/translate", s.handleUpdate)
	authorized.DELETE("/translate", s.handleDelete)
	authorized.DELETE("/pronunciation", s.handleDeletePronunciation)
	authorized.DELETE("/random_word", s.handleDeleteRandomWord)
	if s.images != nil {
		authorized.GET("/image", s.handleImageSearch)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// requireAPIKey compares the authorization header with the configured key
// byte for byte. A wrong key is a validation failure.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	want := []byte(s.cfg.APIKey)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(AuthorizationHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			s.writeError(c, &ValidationError{Message: "authorization is wrong"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	names := make([]string, 0, len(s.readyChecks))
	for name := range s.readyChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := map[string]string{}
	for _, name := range names {
		if err := s.readyChecks[name](c.Request.Context()); err != nil {
			s.logger.Warn("not ready", "check", name, "error", err)
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": CodeNotReady,
			"checks": failures,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
