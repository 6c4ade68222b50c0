package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testData := map[string]struct {
		level    string
		expected slog.Level
		err      bool
	}{
		"debug":      {level: "debug", expected: slog.LevelDebug},
		"upper case": {level: "WARN", expected: slog.LevelWarn},
		"padded":     {level: " error ", expected: slog.LevelError},
		"unknown":    {level: "verbose", err: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			l, err := ParseLevel(td.level)
			if td.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, l)
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", FormatJSON, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	logger.InfoContext(ctx, "forecast ready", "disease", "COVID-19")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "forecast ready", line["msg"])
	assert.Equal(t, "COVID-19", line["disease"])
	assert.Equal(t, "req-1", line[RequestIDKey])

	buf.Reset()
	logger.With("component", "server").InfoContext(ctx, "tagged", RequestIDKey, "req-2")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(RequestIDKey)), buf.String())
	assert.Contains(t, buf.String(), `"component":"server"`)
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", FormatText, &buf)
	require.NoError(t, err)

	logger.Debug("loaded", "records", 300)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "records=300")
}

func TestNewErrors(t *testing.T) {
	_, err := New("info", "xml", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = New("loud", FormatJSON, &bytes.Buffer{})
	assert.Error(t, err)
}
