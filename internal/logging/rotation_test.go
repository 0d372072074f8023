package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// testLog opens a rotatingLog in a temp dir and lowers the byte cap so
// tests can trigger rotation without megabytes of writes.
func testLog(t *testing.T, capBytes int64, r Rotation) (*rotatingLog, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := openRotatingLog(dir, r)
	if err != nil {
		t.Fatalf("openRotatingLog() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if capBytes > 0 {
		w.cap = capBytes
	}
	return w, dir
}

func mustWrite(t *testing.T, w *rotatingLog, s string) {
	t.Helper()
	n, err := w.Write([]byte(s))
	if err != nil {
		t.Fatalf("Write(%q) error = %v", s, err)
	}
	if n != len(s) {
		t.Fatalf("Write(%q) = %d bytes, want %d", s, n, len(s))
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestOpenRotatingLogCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nested")

	w, err := openRotatingLog(dir, Rotation{MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("openRotatingLog() error = %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(filepath.Join(dir, "engine.log")); err != nil {
		t.Errorf("engine.log not created: %v", err)
	}
}

func TestRotatingLogAppends(t *testing.T) {
	w, dir := testLog(t, 0, Rotation{MaxSizeMB: 1, MaxBackups: 1})

	mustWrite(t, w, "first\n")
	mustWrite(t, w, "second\n")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopening resumes the same file rather than truncating it.
	w2, err := openRotatingLog(dir, Rotation{MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("openRotatingLog() reopen error = %v", err)
	}
	defer w2.Close()
	mustWrite(t, w2, "third\n")

	got := readLog(t, filepath.Join(dir, "engine.log"))
	if got != "first\nsecond\nthird\n" {
		t.Errorf("engine.log = %q, want all three lines in order", got)
	}
}

func TestRotatingLogRotatesAtCap(t *testing.T) {
	w, dir := testLog(t, 20, Rotation{MaxSizeMB: 1, MaxBackups: 2})

	mustWrite(t, w, "aaaaaaaaaaaaaaa\n") // 16 bytes, fits
	mustWrite(t, w, "bbbbbbbbbbbbbbb\n") // would exceed 20, rotates first

	if got := readLog(t, filepath.Join(dir, "engine.log.1")); !strings.Contains(got, "aaaa") {
		t.Errorf("engine.log.1 = %q, want the pre-rotation content", got)
	}
	if got := readLog(t, filepath.Join(dir, "engine.log")); !strings.Contains(got, "bbbb") {
		t.Errorf("engine.log = %q, want the post-rotation content", got)
	}
}

func TestRotatingLogShiftsGenerations(t *testing.T) {
	w, dir := testLog(t, 10, Rotation{MaxSizeMB: 1, MaxBackups: 2})

	// Each write exceeds the cap for the next one, so four writes produce
	// three rotations.
	for i := 1; i <= 4; i++ {
		mustWrite(t, w, fmt.Sprintf("entry-%d\n", i))
	}

	if got := readLog(t, filepath.Join(dir, "engine.log")); got != "entry-4\n" {
		t.Errorf("engine.log = %q, want %q", got, "entry-4\n")
	}
	if got := readLog(t, filepath.Join(dir, "engine.log.1")); got != "entry-3\n" {
		t.Errorf("engine.log.1 = %q, want %q", got, "entry-3\n")
	}
	if got := readLog(t, filepath.Join(dir, "engine.log.2")); got != "entry-2\n" {
		t.Errorf("engine.log.2 = %q, want %q", got, "entry-2\n")
	}
	// entry-1's generation fell past MaxBackups.
	if _, err := os.Stat(filepath.Join(dir, "engine.log.3")); !os.IsNotExist(err) {
		t.Error("engine.log.3 should have been dropped")
	}
}

func TestRotatingLogZeroBackupsKeepsNothing(t *testing.T) {
	w, dir := testLog(t, 10, Rotation{MaxSizeMB: 1, MaxBackups: 0})

	mustWrite(t, w, "old-old-old\n")
	mustWrite(t, w, "new\n")

	if got := readLog(t, filepath.Join(dir, "engine.log")); got != "new\n" {
		t.Errorf("engine.log = %q, want only the latest write", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "engine.log.1")); !os.IsNotExist(err) {
		t.Error("no generation should exist with MaxBackups 0")
	}
}

func TestRotatingLogZeroCapNeverRotates(t *testing.T) {
	w, dir := testLog(t, 0, Rotation{MaxSizeMB: 0, MaxBackups: 3})

	for i := 0; i < 100; i++ {
		mustWrite(t, w, strings.Repeat("x", 100)+"\n")
	}

	if _, err := os.Stat(filepath.Join(dir, "engine.log.1")); !os.IsNotExist(err) {
		t.Error("rotation should be disabled when MaxSizeMB is 0")
	}
	info, err := os.Stat(filepath.Join(dir, "engine.log"))
	if err != nil {
		t.Fatalf("stat engine.log: %v", err)
	}
	if info.Size() != 100*101 {
		t.Errorf("engine.log size = %d, want %d", info.Size(), 100*101)
	}
}

func TestRotatingLogCompressesGenerations(t *testing.T) {
	w, dir := testLog(t, 20, Rotation{MaxSizeMB: 1, MaxBackups: 2, Compress: true})

	mustWrite(t, w, "compressed-entry\n")
	mustWrite(t, w, "next\n")

	gzPath := filepath.Join(dir, "engine.log.1.gz")
	if _, err := os.Stat(gzPath); err != nil {
		t.Fatalf("engine.log.1.gz missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "engine.log.1")); !os.IsNotExist(err) {
		t.Error("plain engine.log.1 should be removed after compression")
	}

	f, err := os.Open(gzPath)
	if err != nil {
		t.Fatalf("opening gz: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	defer zr.Close()
	sc := bufio.NewScanner(zr)
	if !sc.Scan() || sc.Text() != "compressed-entry" {
		t.Errorf("decompressed generation = %q, want %q", sc.Text(), "compressed-entry")
	}

	// A second rotation shifts the gzipped generation to .2.gz.
	mustWrite(t, w, "another-long-entry\n")
	if _, err := os.Stat(filepath.Join(dir, "engine.log.2.gz")); err != nil {
		t.Errorf("engine.log.2.gz missing after shift: %v", err)
	}
}

func TestRotatingLogClose(t *testing.T) {
	w, _ := testLog(t, 0, Rotation{MaxSizeMB: 1})

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, err := w.Write([]byte("late\n")); err == nil {
		t.Error("Write after Close should fail")
	}
}

func TestRotatingLogConcurrentWrites(t *testing.T) {
	const writers, lines = 8, 20
	w, dir := testLog(t, 200, Rotation{MaxSizeMB: 1, MaxBackups: 50})

	var wg sync.WaitGroup
	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < lines; i++ {
				w.Write([]byte(fmt.Sprintf("writer-%d line-%d\n", g, i)))
			}
		}(g)
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Every line lands intact in exactly one file.
	matches, err := filepath.Glob(filepath.Join(dir, "engine.log*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	total := 0
	for _, path := range matches {
		for _, line := range strings.Split(readLog(t, path), "\n") {
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "writer-") {
				t.Fatalf("torn line %q in %s", line, path)
			}
			total++
		}
	}
	if total != writers*lines {
		t.Errorf("total lines across generations = %d, want %d", total, writers*lines)
	}
}

func TestNewLoggerWithRotation(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLoggerWithRotation(dir, "debug", Rotation{MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error = %v", err)
	}

	logger.WithComponent("scheduler").WithTask("task-7").Info("task completed")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data := readLog(t, filepath.Join(dir, "engine.log"))
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &entry); err != nil {
		t.Fatalf("engine.log line is not JSON: %v\nline: %s", err, data)
	}
	if entry["msg"] != "task completed" {
		t.Errorf("msg = %v, want %q", entry["msg"], "task completed")
	}
	if entry["component"] != "scheduler" || entry["task_id"] != "task-7" {
		t.Errorf("context = %v/%v, want scheduler/task-7", entry["component"], entry["task_id"])
	}
}

func TestNewLoggerWithRotationEmptyDir(t *testing.T) {
	logger, err := NewLoggerWithRotation("", "info", Rotation{MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewLoggerWithRotation(\"\") error = %v", err)
	}
	// Stderr logger: no file, Close is a no-op.
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestNewLoggerWithRotationRotatesLog(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLoggerWithRotation(dir, "info", Rotation{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewLoggerWithRotation() error = %v", err)
	}
	logger.rot.cap = 256

	for i := 0; i < 20; i++ {
		logger.Info("filler entry", "n", i, "pad", strings.Repeat("p", 40))
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "engine.log.1")); err != nil {
		t.Errorf("expected a rotated generation: %v", err)
	}
}
