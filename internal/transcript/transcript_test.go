package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func fixedClock(ts *time.Time) func() time.Time {
	return func() time.Time { return *ts }
}

func TestRecorderWritesFrames(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	r := NewRecorder(dir)
	r.now = fixedClock(&now)

	if err := r.Record(DirOut, "agent:register", []byte(`{"type":"agent:register","agent_id":"a1"}`)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := r.Record(DirIn, "", []byte("not json")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries := readEntries(t, Path(dir, "2026-03-01-09"))
	if len(entries) != 2 {
		t.Fatalf("entries: %+v", entries)
	}
	if entries[0].Dir != DirOut || entries[0].Type != "agent:register" || string(entries[0].Raw) != `{"type":"agent:register","agent_id":"a1"}` {
		t.Fatalf("first: %+v", entries[0])
	}
	if !entries[0].TS.Equal(now) {
		t.Fatalf("ts: %v", entries[0].TS)
	}
	if entries[1].Dir != DirIn || entries[1].Text != "not json" || len(entries[1].Raw) != 0 {
		t.Fatalf("second: %+v", entries[1])
	}
}

func TestRecordedFramesAreReadableWithoutClose(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)
	r := NewRecorder(dir)
	r.now = fixedClock(&now)

	for i := 0; i < 5; i++ {
		if err := r.Record(DirIn, "turn:start", []byte(`{"type":"turn:start","turn_id":1}`)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries := readEntries(t, Path(dir, "2026-10-15-06"))
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries on disk before Close, got %d", len(entries))
	}
}

func TestRecorderRotatesHourlyAndAppends(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC)
	r := NewRecorder(dir)
	r.now = fixedClock(&now)

	if err := r.Record(DirOut, "agent:register", []byte(`{}`)); err != nil {
		t.Fatalf("record: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := r.Record(DirIn, "world:state", []byte(`{}`)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "transcript-*.jsonl.zst"))
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}

	// A new recorder in the same hour appends to the existing file.
	r2 := NewRecorder(dir)
	r2.now = fixedClock(&now)
	if err := r2.Record(DirIn, "turn:start", []byte(`{}`)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := r2.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := len(readEntries(t, Path(dir, "2026-03-01-10"))); n != 2 {
		t.Fatalf("entries after reopen: %d", n)
	}
}
