package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

// Queue buffers prediction records between the request path and the
// publishing pipeline. It implements BatchExtractor.
type Queue struct {
	ch            chan domain.PredictionRecord
	flushInterval time.Duration
}

// NewQueue creates a queue holding up to capacity records. ExtractBatch waits
// at most flushInterval for a batch to fill once the first record arrives.
func NewQueue(capacity int, flushInterval time.Duration) *Queue {
	return &Queue{
		ch:            make(chan domain.PredictionRecord, capacity),
		flushInterval: flushInterval,
	}
}

// Enqueue adds rec without blocking. It reports false when the queue is full.
func (q *Queue) Enqueue(rec domain.PredictionRecord) bool {
	select {
	case q.ch <- rec:
		return true
	default:
		return false
	}
}

// Len reports the number of buffered records.
func (q *Queue) Len() int { return len(q.ch) }

// ExtractBatch blocks until at least one record is available, then collects
// up to batchSize records or until the flush interval elapses.
func (q *Queue) ExtractBatch(ctx context.Context, batchSize int) ([]domain.PredictionRecord, error) {
	var first domain.PredictionRecord
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case first = <-q.ch:
	}

	batch := make([]domain.PredictionRecord, 0, batchSize)
	batch = append(batch, first)

	timer := time.NewTimer(q.flushInterval)
	defer timer.Stop()

	for len(batch) < batchSize {
		select {
		case rec := <-q.ch:
			batch = append(batch, rec)
		case <-timer.C:
			return batch, nil
		case <-ctx.Done():
			return batch, nil
		}
	}
	return batch, nil
}
