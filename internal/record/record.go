// Package record stores raw headset notifications in a CBOR file so a
// session can be replayed later.
package record

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Frame is one notification as received.
type Frame struct {
	Time    time.Time `cbor:"1,keyasint"`
	Payload []byte    `cbor:"2,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create recording encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create recording decoder mode: %v", err))
	}
}

// Writer appends frames to a recording. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	closer  io.Closer
	encoder *cbor.Encoder
	now     func() time.Time
	closed  bool
	failed  bool
}

// Create opens path for appending, creating it if needed.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// NewWriter writes frames to w. Closing the Writer does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{encoder: encMode.NewEncoder(w), now: time.Now}
}

// Write records payload with the current time.
func (w *Writer) Write(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return os.ErrClosed
	}
	frame := Frame{Time: w.now(), Payload: append([]byte(nil), payload...)}
	if err := w.encoder.Encode(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Tap is Write for use as a notification tap. The first failure is logged;
// later ones are dropped silently.
func (w *Writer) Tap(payload []byte) {
	if err := w.Write(payload); err != nil {
		w.mu.Lock()
		first := !w.failed
		w.failed = true
		w.mu.Unlock()
		if first && !errors.Is(err, os.ErrClosed) {
			slog.Error("recording failed", "error", err)
		}
	}
}

// Close closes the underlying file if the Writer opened it. It is safe to
// call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Reader streams frames from a recording.
type Reader struct {
	closer  io.Closer
	decoder *cbor.Decoder
}

// Open opens a recording file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// NewReader reads frames from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{decoder: decMode.NewDecoder(r)}
}

// Next returns the next frame, or io.EOF at the end of the recording.
func (r *Reader) Next() (Frame, error) {
	var f Frame
	if err := r.decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}
	return f, nil
}

// ReadAll returns every remaining frame.
func (r *Reader) ReadAll() ([]Frame, error) {
	var frames []Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

// Close closes the file if the Reader opened it.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
