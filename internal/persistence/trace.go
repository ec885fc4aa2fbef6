package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/stormfield/internal/engine"
)

// TraceWriter is an engine.Sink that appends one JSON snapshot per tick to a
// zstd-compressed file named after the run.
type TraceWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewTraceWriter creates dir if needed and opens <dir>/<runID>.jsonl.zst.
// An existing trace for the same run is truncated.
func NewTraceWriter(dir, runID string) (*TraceWriter, error) {
	if runID == "" {
		return nil, fmt.Errorf("trace: empty run id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trace dir: %w", err)
	}
	path := TracePath(dir, runID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &TraceWriter{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

var _ engine.Sink = (*TraceWriter)(nil)

// TracePath is where the trace of runID lives under dir.
func TracePath(dir, runID string) string {
	return filepath.Join(dir, runID+".jsonl.zst")
}

// Path returns the trace file location.
func (t *TraceWriter) Path() string { return t.path }

// Publish appends snap as one line.
func (t *TraceWriter) Publish(snap engine.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return fmt.Errorf("trace %s: closed", t.path)
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

// Close flushes buffered lines and finishes the zstd frame.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return nil
	}

	err := t.w.Flush()
	if cerr := t.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := t.f.Close(); err == nil {
		err = cerr
	}
	t.w, t.enc, t.f = nil, nil, nil
	return err
}

// ReadTrace decodes every snapshot in a trace file.
func ReadTrace(path string) ([]engine.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []engine.Snapshot
	jd := json.NewDecoder(dec)
	for jd.More() {
		var snap engine.Snapshot
		if err := jd.Decode(&snap); err != nil {
			return out, fmt.Errorf("decode tick %d: %w", len(out)+1, err)
		}
		out = append(out, snap)
	}
	return out, nil
}
