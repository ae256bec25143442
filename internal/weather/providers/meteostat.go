package providers

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-station-ingest/internal/logger"
	"github.com/i474232898/weather-station-ingest/internal/weather"
)

const (
	DefaultMeteostatBaseURL = "https://bulk.meteostat.net/v2"
	DefaultStationsPath     = "stations/slim.csv.gz"
	DefaultHourlyPath       = "hourly/{year}/{station}.csv.gz"
)

// Column positions in the bulk station list.
const (
	stID = iota
	stName
	stCountry
	stRegion
	stWMO
	stICAO
	stLatitude
	stLongitude
	stElevation
	stTimezone
	stColumns
)

// Column positions in the bulk hourly files.
const (
	hrDate = iota
	hrHour
	hrTemp
	hrDwpt
	hrRhum
	hrPrcp
	hrSnow
	hrWdir
	hrWspd
	hrWpgt
	hrPres
	hrTsun
	hrCoco
	hrColumns
)

// MeteostatConfig configures the Meteostat bulk archive client.
type MeteostatConfig struct {
	BaseURL      string
	StationsPath string
	// HourlyPath may contain {year} and {station} placeholders.
	HourlyPath   string
	StationLimit int

	Backoff       BackoffConfig
	RatePerSecond float64
	Burst         int
}

// MeteostatProvider implements weather.Source on top of the Meteostat bulk archive.
type MeteostatProvider struct {
	name    string
	cfg     MeteostatConfig
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	log     logger.Logger
}

// NewMeteostatProvider creates the client. Empty config fields take the defaults above.
func NewMeteostatProvider(client *http.Client, cfg MeteostatConfig, log logger.Logger) *MeteostatProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMeteostatBaseURL
	}
	if cfg.StationsPath == "" {
		cfg.StationsPath = DefaultStationsPath
	}
	if cfg.HourlyPath == "" {
		cfg.HourlyPath = DefaultHourlyPath
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &MeteostatProvider{
		name: "meteostat",
		cfg:  cfg,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: cfg.Backoff,
			Limiter: limiter,
		},
		circuit: newCircuitBreaker("meteostat"),
		log:     log.WithField("component", "meteostat_provider"),
	}
}

func (p *MeteostatProvider) Name() string {
	return p.name
}

// Stations downloads the station list and keeps the entries of filter's country
// (and region, when set) in file order.
func (p *MeteostatProvider) Stations(ctx context.Context, filter weather.StationFilter) ([]weather.StationMetadata, error) {
	records, found, err := p.fetchCSV(ctx, p.cfg.StationsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch station list: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("station list not found at %s", p.cfg.StationsPath)
	}

	var stations []weather.StationMetadata
	for i, rec := range records {
		if i == 0 && isHeader(rec, "id") {
			continue
		}
		if len(rec) < stColumns {
			p.log.Debugf("Skipping station line %d: %d columns", i+1, len(rec))
			continue
		}
		if filter.Country != "" && !strings.EqualFold(rec[stCountry], filter.Country) {
			continue
		}
		if filter.Region != "" && !strings.EqualFold(rec[stRegion], filter.Region) {
			continue
		}

		st, err := parseStation(rec)
		if err != nil {
			p.log.Warnf("Skipping station line %d: %v", i+1, err)
			continue
		}
		stations = append(stations, st)

		if p.cfg.StationLimit > 0 && len(stations) >= p.cfg.StationLimit {
			break
		}
	}

	p.log.Infof("Loaded %d stations for country=%q region=%q", len(stations), filter.Country, filter.Region)
	return stations, nil
}

// Hourly downloads one yearly file per year touched by [start, end) and returns
// the observations inside the window. Missing yearly files are not errors.
func (p *MeteostatProvider) Hourly(ctx context.Context, stationID string, start, end time.Time) ([]weather.HourlyObservation, error) {
	if !end.After(start) {
		return nil, nil
	}

	lastYear := end.Add(-time.Nanosecond).Year()

	var out []weather.HourlyObservation
	for year := start.Year(); year <= lastYear; year++ {
		path := strings.NewReplacer(
			"{year}", strconv.Itoa(year),
			"{station}", url.PathEscape(stationID),
		).Replace(p.cfg.HourlyPath)

		records, found, err := p.fetchCSV(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", path, err)
		}
		if !found {
			p.log.Debugf("No hourly file for station %s in %d", stationID, year)
			continue
		}

		for i, rec := range records {
			if i == 0 && isHeader(rec, "date") {
				continue
			}
			obs, err := parseHourly(stationID, rec)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
			if obs.Time.Before(start) || !obs.Time.Before(end) {
				continue
			}
			out = append(out, obs)
		}
	}
	return out, nil
}

// fetchCSV downloads a (possibly gzip-compressed) CSV file. found is false on 404.
func (p *MeteostatProvider) fetchCSV(ctx context.Context, path string) ([][]string, bool, error) {
	u := strings.TrimRight(p.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")

	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, false, nil
	}

	body, err := maybeGunzip(resp.Body)
	if err != nil {
		return nil, false, err
	}

	r := csv.NewReader(body)
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	records, err := r.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("parse csv: %w", err)
	}
	return records, true, nil
}

// maybeGunzip unwraps gzip content unless the transport already decoded it.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return br, nil
		}
		return nil, err
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, nil
	}
	return br, nil
}

func isHeader(rec []string, first string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), first)
}

func parseStation(rec []string) (weather.StationMetadata, error) {
	lat, err := parseRequired(rec[stLatitude])
	if err != nil {
		return weather.StationMetadata{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := parseRequired(rec[stLongitude])
	if err != nil {
		return weather.StationMetadata{}, fmt.Errorf("longitude: %w", err)
	}
	elev, err := parseOptional(rec[stElevation])
	if err != nil {
		return weather.StationMetadata{}, fmt.Errorf("elevation: %w", err)
	}

	st := weather.StationMetadata{
		ID:        strings.TrimSpace(rec[stID]),
		Name:      strings.TrimSpace(rec[stName]),
		Country:   strings.TrimSpace(rec[stCountry]),
		Region:    strings.TrimSpace(rec[stRegion]),
		WMO:       strings.TrimSpace(rec[stWMO]),
		ICAO:      strings.TrimSpace(rec[stICAO]),
		Latitude:  lat,
		Longitude: lon,
		Timezone:  strings.TrimSpace(rec[stTimezone]),
	}
	if elev != nil {
		st.Elevation = *elev
	}
	if st.ID == "" {
		return weather.StationMetadata{}, errors.New("empty station id")
	}
	return st, nil
}

func parseHourly(stationID string, rec []string) (weather.HourlyObservation, error) {
	if len(rec) < hrColumns-1 {
		return weather.HourlyObservation{}, fmt.Errorf("expected %d columns, got %d", hrColumns, len(rec))
	}

	day, err := time.Parse(weather.DateLayout, strings.TrimSpace(rec[hrDate]))
	if err != nil {
		return weather.HourlyObservation{}, fmt.Errorf("date: %w", err)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(rec[hrHour]))
	if err != nil || hour < 0 || hour > 23 {
		return weather.HourlyObservation{}, fmt.Errorf("hour %q out of range", rec[hrHour])
	}

	obs := weather.HourlyObservation{
		StationID: stationID,
		Time:      day.Add(time.Duration(hour) * time.Hour),
	}

	fields := []struct {
		idx int
		dst **float64
	}{
		{hrTemp, &obs.Temp},
		{hrDwpt, &obs.Dwpt},
		{hrRhum, &obs.Rhum},
		{hrPrcp, &obs.Prcp},
		{hrSnow, &obs.Snow},
		{hrWdir, &obs.Wdir},
		{hrWspd, &obs.Wspd},
		{hrPres, &obs.Pres},
		{hrTsun, &obs.Tsun},
	}
	for _, f := range fields {
		v, err := parseOptional(rec[f.idx])
		if err != nil {
			return weather.HourlyObservation{}, fmt.Errorf("column %d: %w", f.idx, err)
		}
		*f.dst = v
	}
	return obs, nil
}

func parseOptional(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseRequired(s string) (float64, error) {
	v, err := parseOptional(s)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, errors.New("missing value")
	}
	return *v, nil
}
