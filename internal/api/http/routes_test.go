package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-station-ingest/internal/logger"
	"github.com/i474232898/weather-station-ingest/internal/store"
	"github.com/i474232898/weather-station-ingest/internal/weather"
)

// fakeSource serves one station with one observation per day, blocking until
// release is closed when release is set.
type fakeSource struct {
	release chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Stations(context.Context, weather.StationFilter) ([]weather.StationMetadata, error) {
	return []weather.StationMetadata{{ID: "72202", Name: "Miami", Country: "US", Region: "FL"}}, nil
}

func (f *fakeSource) Hourly(ctx context.Context, id string, start, end time.Time) ([]weather.HourlyObservation, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	var out []weather.HourlyObservation
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, weather.HourlyObservation{StationID: id, Time: d.Add(12 * time.Hour), Temp: weather.Float(25)})
	}
	return out, nil
}

func seeded(t *testing.T) (*weather.Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	f := weather.Float
	day := func(d int) time.Time { return time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC) }

	_, err := mem.UpsertDaily(context.Background(), weather.TablePast, []weather.DailyRow{
		{StationMetadata: weather.StationMetadata{ID: "72202", Name: "Miami International Airport", Region: "FL"}, Date: day(1), Tavg: f(28), Prcp: f(3)},
		{StationMetadata: weather.StationMetadata{ID: "72202", Name: "Miami International Airport", Region: "FL"}, Date: day(2), Tavg: f(29), Prcp: f(0)},
		{StationMetadata: weather.StationMetadata{ID: "72219", Name: "Atlanta Hartsfield", Region: "GA"}, Date: day(1), Tavg: f(24), Prcp: f(1)},
	})
	require.NoError(t, err)

	return weather.NewService(mem, &fakeSource{}, weather.StationFilter{}), mem
}

func newApp(service *weather.Service, runner *weather.BatchRunner) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, service, runner)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, out interface{}) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	if out != nil {
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp
}

func TestDailyEndpoint(t *testing.T) {
	svc, _ := seeded(t)
	app := newApp(svc, weather.NewBatchRunner(svc, 7, 7, logger.Nop()))

	var body struct {
		Table string             `json:"table"`
		Count int                `json:"count"`
		Rows  []weather.DailyRow `json:"rows"`
	}
	resp := doJSON(t, app, http.MethodGet, "/api/v1/daily?table=past&start=2024-07-01&end=2024-07-01", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "past_weather", body.Table)
	assert.Equal(t, 2, body.Count)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/daily?region=FL&q=miami", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "72202", body.Rows[0].ID)
}

func TestDailyEndpoint_Validation(t *testing.T) {
	svc, _ := seeded(t)
	app := newApp(svc, weather.NewBatchRunner(svc, 7, 7, logger.Nop()))

	for _, target := range []string{
		"/api/v1/daily?table=users",
		"/api/v1/daily?start=07/01/2024",
		"/api/v1/daily?start=2024-07-05&end=2024-07-01",
		"/api/v1/daily/scatter?x=tavg&y=tavg",
		"/api/v1/daily/scatter?x=Station_ID&y=tavg",
		"/api/v1/daily/export?format=pdf",
	} {
		var body map[string]interface{}
		resp := doJSON(t, app, http.MethodGet, target, &body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		assert.Equal(t, true, body["error"], target)
	}
}

func TestRegionsSummaryScatter(t *testing.T) {
	svc, _ := seeded(t)
	app := newApp(svc, weather.NewBatchRunner(svc, 7, 7, logger.Nop()))

	var regions struct {
		Regions []string `json:"regions"`
	}
	doJSON(t, app, http.MethodGet, "/api/v1/daily/regions", &regions)
	assert.Equal(t, []string{"FL", "GA"}, regions.Regions)

	var summary struct {
		Count   int `json:"count"`
		Summary []struct {
			Column string   `json:"column"`
			Count  int      `json:"count"`
			Mean   *float64 `json:"mean"`
		} `json:"summary"`
	}
	doJSON(t, app, http.MethodGet, "/api/v1/daily/summary?region=FL", &summary)
	assert.Equal(t, 2, summary.Count)
	require.NotEmpty(t, summary.Summary)
	assert.Equal(t, "tavg", summary.Summary[0].Column)
	assert.InDelta(t, 28.5, *summary.Summary[0].Mean, 1e-9)

	var scatter struct {
		Points []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"points"`
	}
	doJSON(t, app, http.MethodGet, "/api/v1/daily/scatter?x=tavg&y=prcp&region=GA", &scatter)
	require.Len(t, scatter.Points, 1)
	assert.Equal(t, 24.0, scatter.Points[0].X)
	assert.Equal(t, 1.0, scatter.Points[0].Y)
}

func TestExportCSV(t *testing.T) {
	svc, _ := seeded(t)
	app := newApp(svc, weather.NewBatchRunner(svc, 7, 7, logger.Nop()))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/daily/export?start=2024-07-01&end=2024-07-02", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "past_weather_2024-07-01_2024-07-02.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Station_ID,Station_Name"))
}

func TestBatchEndpoints(t *testing.T) {
	mem := store.NewMemoryStore()
	src := &fakeSource{release: make(chan struct{})}
	svc := weather.NewService(mem, src, weather.StationFilter{})
	app := newApp(svc, weather.NewBatchRunner(svc, 7, 7, logger.Nop()))

	var st weather.BatchStatus
	resp := doJSON(t, app, http.MethodPost, "/api/v1/batches?kind=future&start=2024-07-08&end=2024-07-10", &st)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, weather.BatchRunning, st.State)
	assert.Equal(t, "/api/v1/batches/"+st.ID, resp.Header.Get("Location"))

	resp = doJSON(t, app, http.MethodPost, "/api/v1/batches?kind=past", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(src.release)

	require.Eventually(t, func() bool {
		var got weather.BatchStatus
		doJSON(t, app, http.MethodGet, "/api/v1/batches/"+st.ID, &got)
		return got.State == weather.BatchCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, mem.Len(weather.TableFuture))

	resp = doJSON(t, app, http.MethodGet, "/api/v1/batches/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBatchEndpoint_Validation(t *testing.T) {
	svc, _ := seeded(t)
	app := newApp(svc, weather.NewBatchRunner(svc, 7, 7, logger.Nop()))

	for _, target := range []string{
		"/api/v1/batches?kind=yesterday",
		"/api/v1/batches?start=2024-13-01",
		"/api/v1/batches?start=2024-07-10&end=2024-07-01",
	} {
		resp := doJSON(t, app, http.MethodPost, target, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
	}
}
