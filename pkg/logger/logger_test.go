package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output carries the service attr", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.Config{Level: "info", Format: "json", Service: "billingkit"}, &buf)
		log.Info("hello", logger.Component("test"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "billingkit", record["service"])
		assert.Equal(t, "test", record["component"])
	})

	t.Run("level filtering", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.Config{Level: "warn", Format: "text"}, &buf)
		log.Info("dropped")
		assert.Zero(t, buf.Len())
		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("unknown level defaults to info", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.Config{Level: "bogus", Format: "text"}, &buf)
		log.Debug("dropped")
		assert.Zero(t, buf.Len())
		log.Info("kept")
		assert.Contains(t, buf.String(), "kept")
	})
}
