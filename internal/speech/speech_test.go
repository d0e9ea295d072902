package speech

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/neuromenu/internal/config"
)

func TestMissingCommand(t *testing.T) {
	s := New("definitely-not-a-speech-engine")
	assert.False(t, s.Available())
	assert.Error(t, s.Announce("hello"))
	assert.Contains(t, s.Describe(), "speech synthesis not available")

	s = FromConfig(config.Speech{})
	assert.False(t, s.Available())
	assert.ErrorIs(t, s.Announce("hello"), ErrNoCommand)
}

func TestAnnounceAppendsText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken")
	s := New("sh", "-c", `printf '%s\n' "$0" >> `+out)
	require.True(t, s.Available())
	assert.Equal(t, "speech: sh ready", s.Describe())
	require.NoError(t, s.Announce("Washroom"))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && string(data) == "Washroom\n"
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return !s.Speaking() }, 2*time.Second, 10*time.Millisecond)
}

func TestAnnounceInterruptsPrevious(t *testing.T) {
	s := New("sh", "-c", "exec sleep 10")
	require.True(t, s.Available())

	require.NoError(t, s.Announce("first"))
	assert.True(t, s.Speaking())

	start := time.Now()
	require.NoError(t, s.Announce("second"))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, s.Speaking())

	s.Stop()
	assert.False(t, s.Speaking())
	s.Stop()
}
