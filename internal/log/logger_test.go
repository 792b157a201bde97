package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "queueengine-test"})

	logger := WithComponent("pump")
	logger.Info().Str(FieldGuildID, "g1").Msg("pump started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "queueengine-test", entry["service"])
	require.Equal(t, "pump", entry["component"])
	require.Equal(t, "g1", entry[FieldGuildID])
}

func TestWithGuildAttachesGuildID(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	logger := WithGuild("guild-42")
	logger.Info().Msg("enqueued")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "guild-42", entry[FieldGuildID])
}

func TestSetLevelRejectsInvalid(t *testing.T) {
	err := SetLevel("not-a-level")
	require.ErrorIs(t, err, ErrInvalidLogLevel)
}
