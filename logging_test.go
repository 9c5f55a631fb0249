package chainz

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards a bytes.Buffer; hook handlers write from their own
// goroutines.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			out = append(out, entry)
		}
	}
	return out
}

func TestLogEvents(t *testing.T) {
	t.Run("Logs Faults Fallbacks And Completion", func(t *testing.T) {
		var buf syncBuffer
		logger := zerolog.New(&buf).Level(zerolog.TraceLevel)

		runner := NewRunner("logged", New().Prop("Repeat", "x").Fallback("default"))
		defer runner.Close()
		require.NoError(t, LogEvents(runner, logger))

		assert.Equal(t, "default", runner.Run(context.Background(), "abc"))

		require.Eventually(t, func() bool { return len(buf.lines()) == 3 }, time.Second, 5*time.Millisecond)

		byMessage := map[string]map[string]any{}
		for _, entry := range buf.lines() {
			assert.Equal(t, "logged", entry["runner"])
			byMessage[entry["message"].(string)] = entry
		}

		fault := byMessage["step faulted"]
		require.NotNil(t, fault)
		assert.Equal(t, "debug", fault["level"])
		assert.Equal(t, float64(0), fault["step_index"])
		assert.Equal(t, `Repeat("x")`, fault["step"])
		assert.Equal(t, "property", fault["kind"])
		assert.Contains(t, fault["error"], "argument type mismatch")

		fallback := byMessage["fallback applied"]
		require.NotNil(t, fallback)
		assert.Equal(t, "default", fallback["value"])
		assert.Equal(t, float64(1), fallback["step_index"])

		complete := byMessage["run complete"]
		require.NotNil(t, complete)
		assert.Equal(t, "trace", complete["level"])
		assert.Equal(t, float64(2), complete["steps"])
		assert.Equal(t, float64(1), complete["faults"])
		assert.Equal(t, float64(1), complete["fallbacks"])
		assert.Equal(t, false, complete["nullish"])
	})

	t.Run("Respects Logger Level", func(t *testing.T) {
		var buf syncBuffer
		logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

		runner := NewRunner("quiet", New().Prop("Missing", 1).Fallback("x"))
		require.NoError(t, LogEvents(runner, logger))

		var done eventLog
		require.NoError(t, runner.OnComplete(done.record))

		runner.Run(context.Background(), "abc")
		require.Eventually(t, func() bool { return done.len() == 1 }, time.Second, 5*time.Millisecond)
		runner.Close()

		assert.Empty(t, buf.lines())
	})
}
