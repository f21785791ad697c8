package logging

import (
    "bytes"
    "context"
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewWithWriterLevels(t *testing.T) {
    var buf bytes.Buffer
    log := NewWithWriter(&buf, "warn")

    log.Info().Msg("hidden")
    assert.Zero(t, buf.Len())

    log.Warn().Str("car_id", "7").Msg("shown")
    var entry map[string]any
    require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
    assert.Equal(t, "warn", entry["level"])
    assert.Equal(t, "shown", entry["message"])
    assert.Equal(t, "car-rental", entry["service"])
    assert.Equal(t, "7", entry["car_id"])
}

func TestNewWithWriterUnknownLevelDefaultsToInfo(t *testing.T) {
    var buf bytes.Buffer
    log := NewWithWriter(&buf, "chatty")
    log.Debug().Msg("hidden")
    assert.Zero(t, buf.Len())
    log.Info().Msg("shown")
    assert.NotZero(t, buf.Len())
}

func TestFromContextWithoutLogger(t *testing.T) {
    l := FromContext(context.Background())
    require.NotNil(t, l)
    // a disabled logger must be safe to use
    l.Info().Msg("ignored")
}
