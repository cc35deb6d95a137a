package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{JSON: true, Service: "contact", Version: "v1", Writer: &buf})

	log.Info("hello", "field", "value")
	log.Debug("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "contact", line["service"])
	assert.Equal(t, "v1", line["version"])
	assert.Equal(t, "value", line["field"])
}

func TestSetupLogger_DebugText(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{Debug: true, Writer: &buf})

	log.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
	assert.NotContains(t, buf.String(), "service=")
}
