package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/weather-station-ingest/internal/logger"
)

// Service orchestrates fetching from the station source, daily aggregation and
// persistence.
type Service struct {
	store    Store
	source   Source
	filter   StationFilter
	reporter FailureReporter
	log      logger.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithReporter writes failed stations of every ingest through r.
func WithReporter(r FailureReporter) Option {
	return func(s *Service) { s.reporter = r }
}

// WithLogger replaces the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(store Store, source Source, filter StationFilter, opts ...Option) *Service {
	s := &Service{
		store:  store,
		source: source,
		filter: filter,
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "weather_service")
	return s
}

// BatchRequest is the input of a fetch batch.
type BatchRequest struct {
	Stations []StationMetadata
	Start    time.Time
	End      time.Time
}

// BatchResult is the fold of a fetch batch over its stations.
type BatchResult struct {
	Rows      []DailyRow      `json:"-"`
	Failures  []FailureRecord `json:"failures"`
	Succeeded int             `json:"succeeded"`
	Total     int             `json:"total"`
}

// FetchBatch fetches and aggregates every station in order, one at a time. A
// station that errors or returns nothing is recorded as a failure and the loop
// moves on; the batch itself never fails.
func (s *Service) FetchBatch(ctx context.Context, req BatchRequest, progress ProgressFunc) BatchResult {
	result := BatchResult{Total: len(req.Stations)}
	started := s.now()

	for i, st := range req.Stations {
		rows, err := s.fetchStation(ctx, st, req.Start, req.End)
		if err != nil {
			result.Failures = append(result.Failures, FailureRecord{
				StationID:   st.ID,
				StationName: st.Name,
				Error:       err.Error(),
			})
			s.log.WithField("station", st.ID).Warnf("Failed to parse station %s (ID: %s): %v", st.Name, st.ID, err)
		} else {
			result.Rows = append(result.Rows, rows...)
			result.Succeeded++
		}

		if progress != nil {
			now := s.now()
			progress(newProgress(i+1, result.Total, result.Succeeded, len(result.Failures), now.Sub(started), now))
		}
	}

	return result
}

func (s *Service) fetchStation(ctx context.Context, st StationMetadata, start, end time.Time) ([]DailyRow, error) {
	observations, err := s.source.Hourly(ctx, st.ID, start, end)
	if err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return nil, ErrNoData
	}
	return AggregateDaily(st, observations)
}

// IngestRequest describes one ingest run. Zero Start/End fall back to the
// caller-supplied window.
type IngestRequest struct {
	ID    string
	Kind  BatchKind
	Start time.Time
	End   time.Time
}

// IngestReport summarises a completed ingest run.
type IngestReport struct {
	ID         string          `json:"id"`
	Kind       BatchKind       `json:"kind"`
	Table      Table           `json:"table"`
	Start      string          `json:"start"`
	End        string          `json:"end"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Rows       int             `json:"rows"`
	Inserted   int             `json:"inserted"`
	Updated    int             `json:"updated"`
	RowErrors  int             `json:"rowErrors"`
	Failures   []FailureRecord `json:"failures,omitempty"`
	ReportPath string          `json:"reportPath,omitempty"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// Ingest lists the stations, runs the fetch batch for the window and upserts the
// resulting rows into the kind's table. Only directory and connection failures
// are returned as errors.
func (s *Service) Ingest(ctx context.Context, req IngestRequest, progress ProgressFunc) (IngestReport, error) {
	table := req.Kind.Table()
	report := IngestReport{
		ID:        req.ID,
		Kind:      req.Kind,
		Table:     table,
		Start:     req.Start.Format(DateLayout),
		End:       req.End.Format(DateLayout),
		StartedAt: s.now(),
	}

	if req.Start.After(req.End) {
		return report, fmt.Errorf("%w: %s > %s", ErrInvalidRange, report.Start, report.End)
	}

	log := s.log.WithFields(map[string]interface{}{"batch": req.ID, "table": string(table)})
	log.Infof("Parsing period: %s to %s", report.Start, report.End)

	if err := s.store.EnsureTable(ctx, table); err != nil {
		return report, fmt.Errorf("ensure table %s: %w", table, err)
	}

	stations, err := s.source.Stations(ctx, s.filter)
	if err != nil {
		return report, fmt.Errorf("list stations from %s: %w", s.source.Name(), err)
	}
	log.Infof("Fetching %d stations from %s", len(stations), s.source.Name())

	batch := s.FetchBatch(ctx, BatchRequest{Stations: stations, Start: req.Start, End: req.End}, progress)
	report.Total = batch.Total
	report.Succeeded = batch.Succeeded
	report.Failed = len(batch.Failures)
	report.Failures = batch.Failures
	report.Rows = len(batch.Rows)

	if len(batch.Failures) > 0 && s.reporter != nil {
		path, err := s.reporter.WriteFailures(report.StartedAt, batch.Failures)
		if err != nil {
			log.Warnf("Failed to write failed station report: %v", err)
		} else {
			report.ReportPath = path
			log.Warnf("Failed station details saved to %s", path)
		}
	}

	upserted, err := s.store.UpsertDaily(ctx, table, batch.Rows)
	report.Inserted = upserted.Inserted
	report.Updated = upserted.Updated
	report.RowErrors = upserted.Failed
	report.FinishedAt = s.now()
	if err != nil {
		return report, fmt.Errorf("persist %d rows into %s: %w", len(batch.Rows), table, err)
	}

	log.Infof("Batch finished: stations ok %d, failed %d; rows inserted %d, updated %d, skipped %d",
		report.Succeeded, report.Failed, report.Inserted, report.Updated, report.RowErrors)
	return report, nil
}

// Query returns the stored rows of table within dates.
func (s *Service) Query(ctx context.Context, table Table, dates DateRange) ([]DailyRow, error) {
	if !table.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	rows, err := s.store.QueryDaily(ctx, table, dates)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return rows, nil
}

// Init creates every table.
func (s *Service) Init(ctx context.Context) error {
	var errs []error
	for _, t := range Tables {
		if err := s.store.EnsureTable(ctx, t); err != nil {
			s.log.Warnf("Error initializing table %s: %v", t, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Window returns the default [start, end) window of a batch kind relative to today.
func Window(kind BatchKind, today time.Time, pastDays, futureDays int) (time.Time, time.Time) {
	day := CalendarDate(today)
	if kind == KindFuture {
		return day, day.AddDate(0, 0, futureDays)
	}
	return day.AddDate(0, 0, -pastDays), day
}
