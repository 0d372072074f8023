package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// logFileName is the engine's log file within a log directory. Rotation
// retires it as engine.log.1 (newest) through engine.log.N, each with a
// .gz suffix when compression is on.
const logFileName = "engine.log"

// Rotation bounds the engine log's disk footprint. A MaxSizeMB of 0
// disables rotation entirely. A MaxBackups of 0 discards the log at each
// rotation instead of keeping retired generations.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// rotatingLog is an io.Writer that appends to engine.log in a directory
// and retires the file once the next write would push it past the size
// cap. Safe for concurrent use.
type rotatingLog struct {
	mu   sync.Mutex
	dir  string
	cap  int64 // bytes; 0 means never rotate
	keep int
	gzip bool

	f    *os.File
	size int64
}

// openRotatingLog creates the log directory if needed and opens (or
// resumes) engine.log inside it.
func openRotatingLog(dir string, r Rotation) (*rotatingLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &rotatingLog{
		dir:  dir,
		cap:  int64(r.MaxSizeMB) * 1024 * 1024,
		keep: r.MaxBackups,
		gzip: r.Compress,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// path is the active log file; generation is retired generation n,
// numbered newest first.
func (w *rotatingLog) path() string {
	return filepath.Join(w.dir, logFileName)
}

func (w *rotatingLog) generation(n int) string {
	return fmt.Sprintf("%s.%d", w.path(), n)
}

// open opens the active file for appending and records its size. Caller
// holds mu (or is the constructor).
func (w *rotatingLog) open() error {
	f, err := os.OpenFile(w.path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.f = f
	w.size = info.Size()
	return nil
}

// Write appends p, rotating first when the write would exceed the cap.
// A failed rotation does not lose the entry: the writer reopens the
// oversized file and keeps appending to it.
func (w *rotatingLog) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return 0, fmt.Errorf("log file is closed")
	}
	if w.cap > 0 && w.size+int64(len(p)) > w.cap {
		if err := w.rotate(); err != nil && w.f == nil {
			return 0, err
		}
	}

	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate retires the active file as generation 1. Caller holds mu. On
// return either w.f is a fresh active file, or (only when every recovery
// path failed) w.f is nil and the error says why.
func (w *rotatingLog) rotate() error {
	if err := w.f.Close(); err != nil {
		w.f = nil
		if reopenErr := w.open(); reopenErr != nil {
			return fmt.Errorf("failed to close log file for rotation: %v (reopen: %w)", err, reopenErr)
		}
		return fmt.Errorf("failed to close log file for rotation: %w", err)
	}
	w.f = nil

	if w.keep <= 0 {
		// No generations kept: rotation just starts the log over.
		if err := os.Remove(w.path()); err != nil {
			return fmt.Errorf("failed to remove log file: %w", err)
		}
		return w.open()
	}

	w.shiftGenerations()

	retired := w.generation(1)
	if err := os.Rename(w.path(), retired); err != nil {
		if reopenErr := w.open(); reopenErr != nil {
			return fmt.Errorf("failed to retire log file: %v (reopen: %w)", err, reopenErr)
		}
		return fmt.Errorf("failed to retire log file: %w", err)
	}
	if w.gzip {
		compressGeneration(retired)
	}

	return w.open()
}

// shiftGenerations renumbers generations 1..keep-1 up by one and drops
// whatever sat at keep, in both plain and gzipped form. Caller holds mu.
func (w *rotatingLog) shiftGenerations() {
	for n := w.keep; n >= 1; n-- {
		for _, ext := range []string{"", ".gz"} {
			src := w.generation(n) + ext
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if n == w.keep {
				os.Remove(src)
				continue
			}
			os.Rename(src, w.generation(n+1)+ext)
		}
	}
}

// compressGeneration gzips a retired generation in place. The plain file
// is removed only after the gzip is fully written, so a failure here
// leaves the uncompressed copy behind rather than losing it.
func compressGeneration(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}

	gzPath := path + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		src.Close()
		return
	}

	zw := gzip.NewWriter(dst)
	_, copyErr := io.Copy(zw, src)
	zwErr := zw.Close()
	dstErr := dst.Close()
	src.Close()

	if copyErr != nil || zwErr != nil || dstErr != nil {
		os.Remove(gzPath)
		return
	}
	os.Remove(path)
}

// Close syncs and closes the active file. Further writes fail. Close is
// idempotent.
func (w *rotatingLog) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	w.f = nil
	return nil
}
