package logging

import "sync"

// Progress counts completed units of a long loop and reports when the
// completed share enters a new percentage bucket, so callers log a bounded
// number of progress lines regardless of the amount of work.
type Progress struct {
	mu         sync.Mutex
	total      int
	done       int
	bucketSize float64
	lastBucket int
}

// NewProgress tracks total units, emitting once per bucketSize percent
// (default 10).
func NewProgress(total int, bucketSize float64) *Progress {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &Progress{total: total, bucketSize: bucketSize, lastBucket: 0}
}

// Step marks one unit complete. It returns the completed count, the completed
// percentage, and whether this step crossed into a new bucket. The final step
// always reports true. Safe for concurrent use; a nil Progress never emits.
func (p *Progress) Step() (int, float64, bool) {
	if p == nil {
		return 0, 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if p.total <= 0 {
		return p.done, 100, false
	}
	percent := float64(p.done) * 100 / float64(p.total)
	if p.done >= p.total {
		percent = 100
		if p.done > p.total {
			return p.done, percent, false
		}
		p.lastBucket = int(100/p.bucketSize) + 1
		return p.done, percent, true
	}
	bucket := int(percent / p.bucketSize)
	if bucket > p.lastBucket {
		p.lastBucket = bucket
		return p.done, percent, true
	}
	return p.done, percent, false
}
