package helper

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timestampPattern = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3}\]`)

func TestLoggerFormatsLevelsAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug)

	logger.Debug("classifying query", slog.String("intent", "qualification_check"))
	logger.Info("retrieval complete", slog.Int("chunks", 5), slog.Float64("confidence", 0.82))
	logger.Warn("retrieval mode failed", slog.String("mode", "matrix_intersection"))
	logger.Error("store unreachable", slog.String("backend", "neo4j"))

	output := buf.String()
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Contains(t, lines[0], "DEBUG:")
	assert.Contains(t, lines[0], "classifying query")
	assert.Contains(t, lines[0], "qualification_check")

	assert.Contains(t, lines[1], "INFO:")
	assert.Contains(t, lines[1], "retrieval complete")
	assert.Contains(t, lines[1], `"chunks":5`)
	assert.Contains(t, lines[1], "0.82")

	assert.Contains(t, lines[2], "WARN:")
	assert.Contains(t, lines[2], "matrix_intersection")

	assert.Contains(t, lines[3], "ERROR:")
	assert.Contains(t, lines[3], "neo4j")

	for _, line := range lines {
		assert.Regexp(t, timestampPattern, line)
	}
}

func TestLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("embedding cache hit")
	logger.Info("strategy selected", slog.String("strategy", "HYBRID_REASONING"))
	logger.Warn("synthesis slow", slog.Int64("elapsed_ms", 9000))

	output := buf.String()
	assert.NotContains(t, output, "embedding cache hit")
	assert.NotContains(t, output, "strategy selected")
	assert.Contains(t, output, "synthesis slow")
}

func TestLoggerEmptyAttributesRenderAsEmptyObject(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("engine ready")

	output := buf.String()
	assert.Contains(t, output, "engine ready")
	assert.Contains(t, output, "{}")
}

func TestNewPrettyHandlerWiring(t *testing.T) {
	var buf bytes.Buffer
	handler := NewPrettyHandler(&buf, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug},
	})

	require.NotNil(t, handler)
	require.NotNil(t, handler.Handler)
	require.NotNil(t, handler.l)
}
