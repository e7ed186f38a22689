package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewTagsServiceName(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", ServiceName: "relay", Output: &buf})
	l.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "relay", line[FieldService])
	assert.Equal(t, "hello", line["message"])
}

func TestWithConnTagsChildLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: "debug", Output: &buf})

	ctx, l := WithConn(WithLogger(context.Background(), base), "conn-1")
	l.Debug().Msg("first")
	l2 := Ctx(ctx)
	l2.Debug().Msg("second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for _, raw := range lines {
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line))
		assert.Equal(t, "conn-1", line[FieldConnID])
	}
}
