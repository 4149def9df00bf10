package practice

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// TypeStat aggregates completed attempts of one exercise type
type TypeStat struct {
	Type     domain.ExerciseType `json:"type"`
	Attempts int                 `json:"attempts"`
	Correct  int                 `json:"correct"`
	Total    int                 `json:"total"`
	Accuracy float64             `json:"accuracy"`
	LastSeen time.Time           `json:"last_seen"`
	Trend    string              `json:"trend"` // "new", "improving", "stable", "declining", "inactive"
}

// ProgressPoint is the accuracy of one day of practice
type ProgressPoint struct {
	Date     string  `json:"date"`
	Attempts int     `json:"attempts"`
	Accuracy float64 `json:"accuracy"`
}

// Overview summarizes a set of results
type Overview struct {
	Attempts    int             `json:"attempts"`
	Correct     int             `json:"correct"`
	Total       int             `json:"total"`
	Accuracy    float64         `json:"accuracy"`
	ByType      []TypeStat      `json:"by_type"`
	Progression []ProgressPoint `json:"progression"`
}

// Summarize builds an overview of results as seen at now
func Summarize(results []*Result, now time.Time) *Overview {
	ov := &Overview{ByType: []TypeStat{}, Progression: []ProgressPoint{}}
	if len(results) == 0 {
		return ov
	}

	sorted := make([]*Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.Before(sorted[j].CompletedAt)
	})

	byType := make(map[domain.ExerciseType][]*Result)
	days := make(map[string]*ProgressPoint)
	dayCorrect := make(map[string][2]int)
	for _, r := range sorted {
		ov.Attempts++
		ov.Correct += r.Correct
		ov.Total += r.Total
		byType[r.Type] = append(byType[r.Type], r)

		day := r.CompletedAt.Format("2006-01-02")
		if days[day] == nil {
			days[day] = &ProgressPoint{Date: day}
		}
		days[day].Attempts++
		c := dayCorrect[day]
		dayCorrect[day] = [2]int{c[0] + r.Correct, c[1] + r.Total}
	}
	ov.Accuracy = ratio(ov.Correct, ov.Total)

	for t, rs := range byType {
		st := TypeStat{Type: t, Attempts: len(rs), LastSeen: rs[len(rs)-1].CompletedAt}
		for _, r := range rs {
			st.Correct += r.Correct
			st.Total += r.Total
		}
		st.Accuracy = ratio(st.Correct, st.Total)
		st.Trend = determineTrend(rs, now)
		ov.ByType = append(ov.ByType, st)
	}
	sort.Slice(ov.ByType, func(i, j int) bool {
		if ov.ByType[i].Attempts == ov.ByType[j].Attempts {
			return ov.ByType[i].Type < ov.ByType[j].Type
		}
		return ov.ByType[i].Attempts > ov.ByType[j].Attempts
	})

	for day, p := range days {
		c := dayCorrect[day]
		p.Accuracy = ratio(c[0], c[1])
		ov.Progression = append(ov.Progression, *p)
	}
	sort.Slice(ov.Progression, func(i, j int) bool {
		return ov.Progression[i].Date < ov.Progression[j].Date
	})

	return ov
}

// determineTrend compares the latest attempt with the mean of the earlier
// ones. rs is oldest first.
func determineTrend(rs []*Result, now time.Time) string {
	if len(rs) <= 2 {
		return "new"
	}
	last := rs[len(rs)-1]
	if now.Sub(last.CompletedAt) > 14*24*time.Hour {
		return "inactive"
	}

	var earlier float64
	for _, r := range rs[:len(rs)-1] {
		earlier += ratio(r.Correct, r.Total)
	}
	earlier /= float64(len(rs) - 1)

	switch latest := ratio(last.Correct, last.Total); {
	case latest > earlier+0.1:
		return "improving"
	case latest < earlier-0.1:
		return "declining"
	default:
		return "stable"
	}
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
