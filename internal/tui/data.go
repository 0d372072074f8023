package tui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/attunedev/attune/internal/scheduler"
)

// Record is one row of the synthetic dataset the demo browses. The dataset
// is deliberately large so the windowed renderer has something to window.
type Record struct {
	ID       int
	Name     string
	Category string
	Size     int64
}

var categories = []string{"audio", "video", "image", "document", "archive"}

// makeRecords builds a deterministic synthetic dataset of n rows.
func makeRecords(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			ID:       i + 1,
			Name:     fmt.Sprintf("asset-%05d", i+1),
			Category: categories[i%len(categories)],
			Size:     int64((i%977 + 1) * 1024),
		}
	}
	return records
}

// detailKey is the cache key and scheduler identity for a record's detail.
func detailKey(id int) string {
	return fmt.Sprintf("detail:%d", id)
}

// detailWork returns the background work that computes a record's detail
// text. The work is deliberately slow in small cancellable steps so it
// behaves like a real fetch: it honors ctx and reports progress.
func detailWork(rec Record) scheduler.Work {
	return func(ctx context.Context, progress scheduler.ProgressFunc) (any, error) {
		const steps = 5
		for i := 1; i <= steps; i++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(20 * time.Millisecond):
			}
			progress(i * 100 / steps)
		}

		sum := sha256.Sum256([]byte(rec.Name))
		detail := fmt.Sprintf("%s\ncategory: %s\nsize: %d bytes\ndigest: %s",
			rec.Name, rec.Category, rec.Size, hex.EncodeToString(sum[:8]))
		return detail, nil
	}
}
