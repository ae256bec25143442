package weather

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-station-ingest/internal/logger"
)

// BatchState is the lifecycle state of a batch.
type BatchState string

const (
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchFailed    BatchState = "failed"
)

// maxTrackedBatches bounds the in-memory batch history.
const maxTrackedBatches = 32

// BatchStatus is the observable state of a batch.
type BatchStatus struct {
	ID        string        `json:"id"`
	Kind      BatchKind     `json:"kind"`
	State     BatchState    `json:"state"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Progress  *Progress     `json:"progress,omitempty"`
	Report    *IngestReport `json:"report,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
}

// BatchRunner runs ingest batches one at a time on behalf of the HTTP API, the
// scheduler and the CLI, and keeps their status for later lookup.
type BatchRunner struct {
	service    *Service
	pastDays   int
	futureDays int
	log        logger.Logger

	mu      sync.Mutex
	running bool
	runs    map[string]*BatchStatus
	order   []string
}

// NewBatchRunner creates a BatchRunner using the given default window sizes.
func NewBatchRunner(service *Service, pastDays, futureDays int, log logger.Logger) *BatchRunner {
	return &BatchRunner{
		service:    service,
		pastDays:   pastDays,
		futureDays: futureDays,
		log:        log.WithField("component", "batch_runner"),
		runs:       make(map[string]*BatchStatus),
	}
}

// Start launches a batch in the background and returns its initial status.
func (r *BatchRunner) Start(req IngestRequest) (BatchStatus, error) {
	req, st, err := r.begin(req)
	if err != nil {
		return BatchStatus{}, err
	}

	go func() {
		_, _ = r.execute(context.Background(), req)
	}()
	return st, nil
}

// Run executes a batch synchronously.
func (r *BatchRunner) Run(ctx context.Context, req IngestRequest) (IngestReport, error) {
	req, _, err := r.begin(req)
	if err != nil {
		return IngestReport{}, err
	}
	return r.execute(ctx, req)
}

// Status returns a copy of the status of batch id.
func (r *BatchRunner) Status(id string) (BatchStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.runs[id]
	if !ok {
		return BatchStatus{}, ErrBatchNotFound
	}
	return *st, nil
}

func (r *BatchRunner) begin(req IngestRequest) (IngestRequest, BatchStatus, error) {
	if req.Kind == "" {
		req.Kind = KindPast
	}
	if req.Start.IsZero() || req.End.IsZero() {
		start, end := Window(req.Kind, r.service.now(), r.pastDays, r.futureDays)
		if req.Start.IsZero() {
			req.Start = start
		}
		if req.End.IsZero() {
			req.End = end
		}
	}
	if req.Start.After(req.End) {
		return req, BatchStatus{}, ErrInvalidRange
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return req, BatchStatus{}, ErrBatchRunning
	}
	r.running = true

	st := &BatchStatus{
		ID:        req.ID,
		Kind:      req.Kind,
		State:     BatchRunning,
		Start:     req.Start.Format(DateLayout),
		End:       req.End.Format(DateLayout),
		StartedAt: r.service.now(),
	}
	r.track(st)
	return req, *st, nil
}

func (r *BatchRunner) execute(ctx context.Context, req IngestRequest) (IngestReport, error) {
	log := r.log.WithField("batch", req.ID)
	log.Infof("Starting %s batch %s..%s", req.Kind, req.Start.Format(DateLayout), req.End.Format(DateLayout))

	report, err := r.service.Ingest(ctx, req, func(p Progress) {
		r.mu.Lock()
		if st, ok := r.runs[req.ID]; ok {
			p := p
			st.Progress = &p
		}
		r.mu.Unlock()
		log.Debug(p.String())
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false

	st := r.runs[req.ID]
	st.Report = &report
	if err != nil {
		st.State = BatchFailed
		st.Error = err.Error()
		log.Errorf("Batch failed: %v", err)
		return report, err
	}
	st.State = BatchCompleted
	return report, nil
}

// track must be called with r.mu held.
func (r *BatchRunner) track(st *BatchStatus) {
	r.runs[st.ID] = st
	r.order = append(r.order, st.ID)
	for len(r.order) > maxTrackedBatches {
		oldest := r.order[0]
		if r.runs[oldest].State == BatchRunning {
			break
		}
		delete(r.runs, oldest)
		r.order = r.order[1:]
	}
}
