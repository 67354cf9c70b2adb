package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerolog_EmitsComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("scheduler", &buf)

	log.Infof("allocated %d minutes", 60)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "scheduler", record["component"])
	assert.Equal(t, "allocated 60 minutes", record["message"])
	assert.Equal(t, "info", record["level"])
}

func TestZerolog_DebugwCarriesFields(t *testing.T) {
	require.NoError(t, SetLevel("debug"))
	t.Cleanup(func() { _ = SetLevel("debug") })

	var buf bytes.Buffer
	log := NewWithWriter("planner", &buf)

	log.Debugw("slot built", map[string]any{"date": "2026-01-01", "cap": 120})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "2026-01-01", record["date"])
	assert.Equal(t, float64(120), record["cap"])
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, SetLevel("warn"))
	t.Cleanup(func() { _ = SetLevel("debug") })

	var buf bytes.Buffer
	log := NewWithWriter("planner", &buf)
	log.Infof("suppressed")
	assert.Empty(t, buf.Bytes())

	log.Warnf("kept")
	assert.Contains(t, buf.String(), "kept")

	assert.Error(t, SetLevel("loud"))
}

func TestNop_IsSilent(t *testing.T) {
	var log Logger = Nop{}
	log.Debugf("x")
	log.Debugw("x", nil)
	log.Infof("x")
	log.Warnf("x")
	log.Errorf("x")
}
