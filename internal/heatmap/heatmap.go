// Package heatmap aggregates per-exercise performance records into an
// exercise × time-domain matrix of session-weighted percentiles.
package heatmap

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/claude/trainlog/internal/models"
)

// Cell is the aggregate of one (exercise, time domain) pair.
type Cell struct {
	Exercise      string `json:"exercise_name"`
	TimeDomain    string `json:"time_range"`
	AvgPercentile int    `json:"avg_percentile"`
	Sessions      int    `json:"session_count"`
}

// Aggregate is a session-weighted average over a row, a column or the whole
// matrix. AvgPercentile is nil when there are no sessions.
type Aggregate struct {
	Name          string `json:"name"`
	AvgPercentile *int   `json:"avg_percentile"`
	Sessions      int    `json:"session_count"`
}

// HeatMap is the matrix built from one filtered record set.
type HeatMap struct {
	Filter        Filter      `json:"filter"`
	Exercises     []string    `json:"exercises"`
	TimeDomains   []string    `json:"time_domains"`
	Cells         []Cell      `json:"cells"`
	Rows          []Aggregate `json:"exercise_averages"`
	Columns       []Aggregate `json:"time_domain_averages"`
	GlobalScore   *int        `json:"global_score"`
	TotalSessions int         `json:"total_sessions"`
	// Skipped counts records without an exercise, a time domain or a
	// percentile in [0, 100].
	Skipped int `json:"skipped"`
}

type cellKey struct {
	exercise, domain string
}

type accum struct {
	sum      float64
	sessions int
}

// Build filters the records and aggregates what remains. Every call is an
// independent pass over its input.
func Build(records []models.HeatMapRecord, filter Filter) *HeatMap {
	if filter == "" {
		filter = FilterAll
	}
	hm := &HeatMap{
		Filter:      filter,
		Exercises:   []string{},
		TimeDomains: []string{},
		Cells:       []Cell{},
		Rows:        []Aggregate{},
		Columns:     []Aggregate{},
	}

	cells := make(map[cellKey]*accum)
	for _, r := range filter.Apply(records) {
		ex := strings.TrimSpace(r.ExerciseName)
		domain := NormalizeTimeDomain(r.TimeDomain)
		if ex == "" || domain == "" || !validPercentile(r.Percentile) {
			hm.Skipped++
			continue
		}
		k := cellKey{ex, domain}
		a := cells[k]
		if a == nil {
			a = &accum{}
			cells[k] = a
		}
		a.sum += r.Percentile
		a.sessions++
	}

	rows := make(map[string]*accum)
	cols := make(map[string]*accum)
	var global accum
	for k, a := range cells {
		c := Cell{
			Exercise:      k.exercise,
			TimeDomain:    k.domain,
			AvgPercentile: int(math.Round(a.sum / float64(a.sessions))),
			Sessions:      a.sessions,
		}
		hm.Cells = append(hm.Cells, c)
		fold(rows, c.Exercise, c)
		fold(cols, c.TimeDomain, c)
		global.sum += float64(c.AvgPercentile * c.Sessions)
		global.sessions += c.Sessions
	}

	for ex := range rows {
		hm.Exercises = append(hm.Exercises, ex)
	}
	sort.Strings(hm.Exercises)
	for d := range cols {
		hm.TimeDomains = append(hm.TimeDomains, d)
	}
	sortTimeDomains(hm.TimeDomains)

	rank := make(map[string]int, len(hm.TimeDomains))
	for i, d := range hm.TimeDomains {
		rank[d] = i
	}
	sort.Slice(hm.Cells, func(i, j int) bool {
		a, b := hm.Cells[i], hm.Cells[j]
		if a.Exercise != b.Exercise {
			return a.Exercise < b.Exercise
		}
		return rank[a.TimeDomain] < rank[b.TimeDomain]
	})

	for _, ex := range hm.Exercises {
		hm.Rows = append(hm.Rows, aggregate(ex, rows[ex]))
	}
	for _, d := range hm.TimeDomains {
		hm.Columns = append(hm.Columns, aggregate(d, cols[d]))
	}
	hm.GlobalScore = WeightedAverage(global.sum, global.sessions)
	hm.TotalSessions = global.sessions
	return hm
}

func fold(m map[string]*accum, key string, c Cell) {
	a := m[key]
	if a == nil {
		a = &accum{}
		m[key] = a
	}
	a.sum += float64(c.AvgPercentile * c.Sessions)
	a.sessions += c.Sessions
}

func aggregate(name string, a *accum) Aggregate {
	return Aggregate{Name: name, AvgPercentile: WeightedAverage(a.sum, a.sessions), Sessions: a.sessions}
}

// WeightedAverage returns round(weightedSum / sessions), nil when sessions is 0.
func WeightedAverage(weightedSum float64, sessions int) *int {
	if sessions <= 0 {
		return nil
	}
	v := int(math.Round(weightedSum / float64(sessions)))
	return &v
}

// WeightedCells returns the session-weighted average over the given cells.
func WeightedCells(cells []Cell) *int {
	var a accum
	for _, c := range cells {
		a.sum += float64(c.AvgPercentile * c.Sessions)
		a.sessions += c.Sessions
	}
	return WeightedAverage(a.sum, a.sessions)
}

func validPercentile(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 100
}

// Cell returns the cell of an exercise in a time domain.
func (h *HeatMap) Cell(exercise, timeDomain string) (Cell, bool) {
	for _, c := range h.Cells {
		if c.Exercise == exercise && c.TimeDomain == timeDomain {
			return c, true
		}
	}
	return Cell{}, false
}

// Row returns the aggregate of one exercise.
func (h *HeatMap) Row(exercise string) (Aggregate, bool) {
	return find(h.Rows, exercise)
}

// Column returns the aggregate of one time domain.
func (h *HeatMap) Column(timeDomain string) (Aggregate, bool) {
	return find(h.Columns, timeDomain)
}

func find(aggs []Aggregate, name string) (Aggregate, bool) {
	for _, a := range aggs {
		if a.Name == name {
			return a, true
		}
	}
	return Aggregate{}, false
}

// FormatPercentile renders an optional percentile, "—" when undefined.
func FormatPercentile(p *int) string {
	if p == nil {
		return "—"
	}
	return strconv.Itoa(*p)
}

// RecordsFromMetCon fans one ranked MetCon out into a record per distinct
// task movement, tagged with the equipment of the whole workout.
func RecordsFromMetCon(ref *models.MetConRef, percentile float64) []models.HeatMapRecord {
	if ref == nil {
		return nil
	}
	names := make([]string, 0, len(ref.Tasks))
	seen := make(map[string]bool, len(ref.Tasks))
	for _, t := range ref.Tasks {
		name := strings.TrimSpace(t.Exercise)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}

	tags := DetectEquipment(names)
	domain := NormalizeTimeDomain(ref.TimeDomain)
	records := make([]models.HeatMapRecord, 0, len(names))
	for _, name := range names {
		records = append(records, models.HeatMapRecord{
			ExerciseName:  name,
			TimeDomain:    domain,
			Percentile:    percentile,
			EquipmentTags: tags,
		})
	}
	return records
}
