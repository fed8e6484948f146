package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		debugMode bool
		wantDebug bool
	}{
		{name: "debug mode enabled", debugMode: true, wantDebug: true},
		{name: "debug mode disabled", debugMode: false, wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogger(tt.debugMode)
			assert.Equal(t, tt.wantDebug, slog.Default().Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

func TestSetupGinMode(t *testing.T) {
	defer gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		debugMode bool
		want      string
	}{
		{name: "debug mode enabled", debugMode: true, want: gin.DebugMode},
		{name: "debug mode disabled", debugMode: false, want: gin.ReleaseMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupGinMode(tt.debugMode)
			assert.Equal(t, tt.want, gin.Mode())
		})
	}
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	assert.Equal(t, "vocabox-server", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
}
