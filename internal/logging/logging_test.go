package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestJSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewTo(Config{Level: "info", Format: "json"}, &buf)

	log.Debug("hidden")
	log.With("job", "www").Warn("disk low", "free_bytes", 42)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "disk low", lines[0]["message"])
	assert.Equal(t, "www", lines[0]["job"])
	assert.EqualValues(t, 42, lines[0]["free_bytes"])
	assert.Contains(t, lines[0], "time")
}

func TestExtraWritersGetJSON(t *testing.T) {
	var console, file bytes.Buffer
	log := NewTo(Config{Level: "debug", Format: "console"}, &console, &file)

	log.Debug("transfer started", "dest", "/b")

	lines := decodeLines(t, &file)
	require.Len(t, lines, 1)
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "/b", lines[0]["dest"])
	assert.Contains(t, console.String(), "transfer started")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "warn", parseLevel("WARNING").String())
	assert.Equal(t, "info", parseLevel("bogus").String())
	assert.Equal(t, "disabled", parseLevel("disabled").String())
}
