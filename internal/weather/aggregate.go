package weather

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// AggregateDaily reduces the hourly observations of one station into one DailyRow
// per calendar date. The date of an observation is its timestamp truncated in the
// timestamp's own location; no timezone conversion is applied.
//
// Means, extrema and the wind-direction mean are nil when every input is missing.
// Sums (prcp, snow, tsun) are 0 in that case.
func AggregateDaily(station StationMetadata, observations []HourlyObservation) ([]DailyRow, error) {
	buckets := make(map[string]*dayAccumulator)

	for _, obs := range observations {
		if obs.StationID != "" && obs.StationID != station.ID {
			return nil, fmt.Errorf("%w: %s in batch for %s", ErrStationMismatch, obs.StationID, station.ID)
		}

		date := CalendarDate(obs.Time)
		key := date.Format(DateLayout)

		acc, ok := buckets[key]
		if !ok {
			acc = &dayAccumulator{date: date}
			buckets[key] = acc
		}
		acc.add(obs)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]DailyRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, buckets[k].row(station))
	}
	return rows, nil
}

// dayAccumulator collects the per-field reducers for one calendar date.
type dayAccumulator struct {
	date time.Time

	temp mean
	tmin extreme
	tmax extreme
	prcp sum
	snow sum
	wspd mean
	pres mean
	tsun sum
	rhum mean
	dwpt mean
	wdir []float64
}

func (a *dayAccumulator) add(obs HourlyObservation) {
	a.temp.add(obs.Temp)
	a.tmin.add(obs.Temp, math.Min)
	a.tmax.add(obs.Temp, math.Max)
	a.prcp.add(obs.Prcp)
	a.snow.add(obs.Snow)
	a.wspd.add(obs.Wspd)
	a.pres.add(obs.Pres)
	a.tsun.add(obs.Tsun)
	a.rhum.add(obs.Rhum)
	a.dwpt.add(obs.Dwpt)
	if obs.Wdir != nil && !math.IsNaN(*obs.Wdir) {
		a.wdir = append(a.wdir, *obs.Wdir)
	}
}

func (a *dayAccumulator) row(station StationMetadata) DailyRow {
	row := DailyRow{
		StationMetadata: station,
		Date:            a.date,
		Tavg:            a.temp.value(),
		Tmin:            a.tmin.value(),
		Tmax:            a.tmax.value(),
		Prcp:            a.prcp.value(),
		Snow:            a.snow.value(),
		Wspd:            a.wspd.value(),
		Pres:            a.pres.value(),
		Tsun:            a.tsun.value(),
		AvgRhum:         a.rhum.value(),
		AvgDwpt:         a.dwpt.value(),
	}
	if deg, ok := CircularMean(a.wdir); ok {
		row.AvgWdir = Float(deg)
	}
	return row
}

type mean struct {
	total float64
	n     int
}

func (m *mean) add(v *float64) {
	if v == nil || math.IsNaN(*v) {
		return
	}
	m.total += *v
	m.n++
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	return Float(m.total / float64(m.n))
}

// sum defaults to 0 when nothing was added.
type sum struct {
	total float64
}

func (s *sum) add(v *float64) {
	if v == nil || math.IsNaN(*v) {
		return
	}
	s.total += *v
}

func (s *sum) value() *float64 {
	return Float(s.total)
}

type extreme struct {
	v   float64
	set bool
}

func (e *extreme) add(v *float64, pick func(a, b float64) float64) {
	if v == nil || math.IsNaN(*v) {
		return
	}
	if !e.set {
		e.v, e.set = *v, true
		return
	}
	e.v = pick(e.v, *v)
}

func (e *extreme) value() *float64 {
	if !e.set {
		return nil
	}
	return Float(e.v)
}
