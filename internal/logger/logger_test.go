package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterTagsComponent(t *testing.T) {
	t.Setenv("DEPOTPLAN_LOG_LEVEL", "")
	var buf bytes.Buffer
	log := NewWithWriter("engine", &buf)
	log.Info().Str("train_id", "T-01").Msg("swept")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "engine", rec["component"])
	assert.Equal(t, "T-01", rec["train_id"])
	assert.Equal(t, "swept", rec["message"])
	assert.Contains(t, rec, "time")
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("DEPOTPLAN_LOG_LEVEL", "WARN")
	var buf bytes.Buffer
	log := NewWithWriter("engine", &buf)
	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Warn().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}
