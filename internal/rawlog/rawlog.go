// Package rawlog archives decoded control frames so a session can be
// re-analysed with different thresholds without the original capture.
//
// The file starts with an 8-byte magic. Each record is a 12-byte little
// endian header (capture time in Unix nanoseconds, payload size) followed
// by a CBOR payload.
package rawlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/banshee-data/rcintent/internal/rcframe"
)

// Magic is written at the start of every archive.
const Magic = "RCRAWLG1"

const (
	headerSize = 12
	maxRecord  = 64 * 1024
)

// ErrBadMagic is returned when a file is not a frame archive.
var ErrBadMagic = errors.New("not a raw frame archive")

// Record is the CBOR payload of one archived frame.
type Record struct {
	_         struct{} `cbor:",toarray"`
	Timestamp float64
	Raw       []byte
}

// Writer appends frames to an archive. It is safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	c     io.Closer
	w     *bufio.Writer
	count int
}

// Create creates path and writes the archive magic.
func Create(path string) (*Writer, error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("create rawlog: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.c = f
	return w, nil
}

// NewWriter writes the archive magic to w and returns a Writer on it.
func NewWriter(w io.Writer) (*Writer, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	if _, err := bw.WriteString(Magic); err != nil {
		return nil, fmt.Errorf("write rawlog magic: %w", err)
	}
	return &Writer{w: bw}, nil
}

// Write archives one frame.
func (r *Writer) Write(f rcframe.Frame) error {
	payload, err := cbor.Marshal(Record{Timestamp: f.Timestamp, Raw: f.Raw[:]})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("raw log writer is closed")
	}
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(toNanos(f.Timestamp)))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	r.count++
	return nil
}

// WriteAll archives frames in order.
func (r *Writer) WriteAll(frames []rcframe.Frame) error {
	for i, f := range frames {
		if err := r.Write(f); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// Count returns the number of frames written.
func (r *Writer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes buffered records and closes the file if Create opened it.
func (r *Writer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	err := r.w.Flush()
	r.w = nil
	if r.c != nil {
		if cerr := r.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func toNanos(ts float64) int64 {
	return int64(math.Round(ts * 1e9))
}

// Reader reads frames back from an archive.
type Reader struct {
	r io.Reader
	n int
}

// NewReader checks the archive magic and returns a Reader.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(header) != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, string(header))
	}
	return &Reader{r: br}, nil
}

// Next returns the next archived frame and its header timestamp in Unix
// nanoseconds. It returns io.EOF after the last record. Records whose bytes
// are not a valid frame are reported as errors.
func (r *Reader) Next() (rcframe.Frame, int64, error) {
	var meta [headerSize]byte
	if _, err := io.ReadFull(r.r, meta[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return rcframe.Frame{}, 0, io.EOF
		}
		return rcframe.Frame{}, 0, fmt.Errorf("read record %d header: %w", r.n, err)
	}
	ns := int64(binary.LittleEndian.Uint64(meta[:8]))
	size := binary.LittleEndian.Uint32(meta[8:12])
	if size == 0 || size > maxRecord {
		return rcframe.Frame{}, ns, fmt.Errorf("record %d: bad payload size %d", r.n, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return rcframe.Frame{}, ns, fmt.Errorf("read record %d payload: %w", r.n, err)
	}
	var rec Record
	if err := cbor.Unmarshal(payload, &rec); err != nil {
		return rcframe.Frame{}, ns, fmt.Errorf("record %d: CBOR decode error: %w", r.n, err)
	}
	f, ok := rcframe.Decode(rec.Timestamp, rec.Raw)
	if !ok {
		return rcframe.Frame{}, ns, fmt.Errorf("record %d: not a control frame (%d bytes)", r.n, len(rec.Raw))
	}
	r.n++
	return f, ns, nil
}

// ReadAll reads every remaining frame.
func (r *Reader) ReadAll() ([]rcframe.Frame, error) {
	var frames []rcframe.Frame
	for {
		f, _, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

// ReadFile reads every frame from the archive at path.
func ReadFile(path string) ([]rcframe.Frame, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open rawlog: %w", err)
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		return nil, err
	}
	return r.ReadAll()
}

// WriteFile archives frames to path.
func WriteFile(path string, frames []rcframe.Frame) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := w.WriteAll(frames); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
