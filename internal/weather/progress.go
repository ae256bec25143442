package weather

import (
	"fmt"
	"time"
)

// Progress is reported after every station of a fetch batch.
type Progress struct {
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
	ETA       time.Time     `json:"eta"`
}

// ProgressFunc receives batch progress. It runs on the batch goroutine and must not block.
type ProgressFunc func(Progress)

// newProgress extrapolates the remaining time linearly from the time spent so far.
func newProgress(index, total, succeeded, failed int, elapsed time.Duration, now time.Time) Progress {
	var remaining time.Duration
	if index > 0 && total > index {
		remaining = time.Duration(float64(elapsed) / float64(index) * float64(total-index))
	}
	return Progress{
		Index:     index,
		Total:     total,
		Succeeded: succeeded,
		Failed:    failed,
		Elapsed:   elapsed,
		Remaining: remaining,
		ETA:       now.Add(remaining),
	}
}

func (p Progress) String() string {
	rem := p.Remaining.Round(time.Second)
	return fmt.Sprintf("stations %d/%d, ok %d, failed %d, remaining %dm %ds",
		p.Index, p.Total, p.Succeeded, p.Failed, int(rem.Minutes()), int(rem.Seconds())%60)
}
