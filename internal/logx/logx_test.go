package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	log := NewWithWriter(&buf, "storefront-api", "warn")
	log.Info().Msg("dropped")
	log.Warn().Str("order_number", "ORD202603041234").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "storefront-api", line["service"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "ORD202603041234", line["order_number"])
	assert.Contains(t, line, "time")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	NewWithWriter(&bytes.Buffer{}, "x", "chatty")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
