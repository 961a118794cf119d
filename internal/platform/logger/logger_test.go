package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustbridge/internal/platform/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json by default with level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.Log{Level: "warn"})

		log.Info("dropped")
		log.Warn("kept", "auth_req_id", "req-1")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "req-1", line["auth_req_id"])
		assert.Equal(t, "trustbridge", line["service"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, config.Log{Format: "text", Level: "debug"}).Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}
