// Package transcript records every frame exchanged with the bridge as
// zstd-compressed JSON lines, one file per UTC hour.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Frame directions.
const (
	DirIn  = "in"
	DirOut = "out"
)

const filePrefix = "transcript"

// Entry is one recorded frame. Raw holds frames that are valid JSON; anything
// else is kept verbatim in Text.
type Entry struct {
	TS   time.Time       `json:"ts"`
	Dir  string          `json:"dir"`
	Type string          `json:"type,omitempty"`
	Raw  json.RawMessage `json:"raw,omitempty"`
	Text string          `json:"text,omitempty"`
}

// Recorder appends entries to <dir>/transcript-YYYY-MM-DD-HH.jsonl.zst.
// Each entry is written as its own zstd frame, so the file is readable up to
// the last recorded frame even if the process dies without calling Close.
type Recorder struct {
	dir string
	now func() time.Time
	enc *zstd.Encoder

	mu   sync.Mutex
	hour string
	f    *os.File
	line []byte
	out  []byte
}

func NewRecorder(dir string) *Recorder {
	// A nil writer is fine: only EncodeAll is used.
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
	return &Recorder{dir: dir, now: time.Now, enc: enc}
}

func (r *Recorder) Record(dir, typ string, frame []byte) error {
	e := Entry{TS: r.now().UTC(), Dir: dir, Type: typ}
	if json.Valid(frame) {
		e.Raw = append(json.RawMessage(nil), frame...)
	} else {
		e.Text = string(frame)
	}
	return r.append(e)
}

func (r *Recorder) append(e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if hour := e.TS.Format("2006-01-02-15"); hour != r.hour {
		if err := r.openLocked(hour); err != nil {
			return err
		}
	}
	r.line = append(append(r.line[:0], b...), '\n')
	r.out = r.enc.EncodeAll(r.line, r.out[:0])
	if _, err := r.f.Write(r.out); err != nil {
		return fmt.Errorf("transcript %s: %w", r.f.Name(), err)
	}
	return nil
}

func (r *Recorder) openLocked(hour string) error {
	if err := r.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(Path(r.dir, hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	r.f = f
	r.hour = hour
	return nil
}

// Close closes the current file. Recording again after Close reopens it.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) closeLocked() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	r.hour = ""
	return err
}

// Path names the transcript file for a "2006-01-02-15" hour.
func Path(dir, hour string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl.zst", filePrefix, hour))
}
