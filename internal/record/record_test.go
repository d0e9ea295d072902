package record

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")

	w, err := Create(path)
	require.NoError(t, err)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	w.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 250 * time.Millisecond)
	}

	payload := []byte{'S', 3}
	require.NoError(t, w.Write([]byte{0x00}))
	require.NoError(t, w.Write(payload))
	payload[1] = 9 // the writer must have copied it
	require.NoError(t, w.Write([]byte{0x7F}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	frames, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, []byte{0x00}, frames[0].Payload)
	assert.Equal(t, []byte{'S', 3}, frames[1].Payload)
	assert.Equal(t, []byte{0x7F}, frames[2].Payload)
	assert.True(t, frames[0].Time.Equal(base.Add(250*time.Millisecond)))
	assert.Equal(t, 250*time.Millisecond, frames[2].Time.Sub(frames[1].Time))
}

func TestCreateAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")
	for i := range 2 {
		w, err := Create(path)
		require.NoError(t, err)
		require.NoError(t, w.Write([]byte{byte(i)}))
		require.NoError(t, w.Close())
	}

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	frames, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestWriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write([]byte{0}), os.ErrClosed)
	w.Tap([]byte{0})
	assert.Zero(t, buf.Len())
}

func TestReaderEOFAndCorruption(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)

	r = NewReader(bytes.NewReader([]byte{0xff, 0x00, 0x13}))
	_, err = r.Next()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
