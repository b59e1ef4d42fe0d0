// Package analytics summarizes complaints over a reporting window.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/civicdesk/grievance-desk/internal/model"
)

// Period is a named reporting window ending now.
type Period string

const (
	PeriodWeek    Period = "7d"
	PeriodMonth   Period = "30d"
	PeriodQuarter Period = "90d"
	PeriodYear    Period = "1y"
)

// DefaultPeriod is used when no period is requested.
const DefaultPeriod = PeriodMonth

// ParsePeriod validates s. An empty string yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return DefaultPeriod, nil
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return p, nil
	}
	return "", &model.ValidationError{
		Message: "invalid period",
		Fields:  map[string]string{"period": fmt.Sprintf("must be one of 7d, 30d, 90d, 1y (got %q)", s)},
	}
}

// Duration returns the window length.
func (p Period) Duration() time.Duration {
	const day = 24 * time.Hour
	switch p {
	case PeriodWeek:
		return 7 * day
	case PeriodQuarter:
		return 90 * day
	case PeriodYear:
		return 365 * day
	default:
		return 30 * day
	}
}

// DailyTrend counts complaints filed on one UTC calendar day.
type DailyTrend struct {
	Date     string `json:"date"`
	Count    int    `json:"count"`
	Resolved int    `json:"resolved"`
}

// Summary is the rollup for one window.
type Summary struct {
	Period Period    `json:"period"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`

	Total        int                     `json:"total"`
	ByStatus     map[model.Status]int    `json:"byStatus"`
	ByPriority   map[model.Priority]int  `json:"byPriority"`
	ByDepartment map[string]int          `json:"byDepartment"`
	BySentiment  map[model.Sentiment]int `json:"bySentiment"`
	DailyTrends  []DailyTrend            `json:"dailyTrends"`

	ResolutionRate    float64 `json:"resolutionRate"`
	AvgResponseHours  float64 `json:"avgResponseHours"`
	AvgSatisfaction   float64 `json:"avgSatisfaction"`
	ResponseSamples   int     `json:"responseSamples"`
	SatisfactionCount int     `json:"satisfactionCount"`

	PreviousTotal int     `json:"previousTotal"`
	GrowthPercent float64 `json:"growthPercent"`
}

// Compute builds a Summary from the stats filed in [from, to). Stats outside
// the window are ignored.
func Compute(stats []*model.ComplaintStat, from, to time.Time) *Summary {
	s := &Summary{
		From:         from.UTC(),
		To:           to.UTC(),
		ByStatus:     make(map[model.Status]int, len(model.Statuses)),
		ByPriority:   make(map[model.Priority]int, len(model.Priorities)),
		ByDepartment: make(map[string]int),
		BySentiment:  make(map[model.Sentiment]int, 3),
		DailyTrends:  []DailyTrend{},
	}
	for _, st := range model.Statuses {
		s.ByStatus[st] = 0
	}
	for _, p := range model.Priorities {
		s.ByPriority[p] = 0
	}
	for _, se := range []model.Sentiment{model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral} {
		s.BySentiment[se] = 0
	}

	days := make(map[string]*DailyTrend)
	var responseTotal time.Duration
	var satisfactionTotal int
	for _, st := range stats {
		filed := st.DateFiled.UTC()
		if filed.Before(s.From) || !filed.Before(s.To) {
			continue
		}
		s.Total++
		s.ByStatus[st.Status]++
		s.ByPriority[st.Priority]++
		s.BySentiment[st.Sentiment]++
		if st.Department != "" {
			s.ByDepartment[st.Department]++
		}

		key := filed.Format(time.DateOnly)
		d, ok := days[key]
		if !ok {
			d = &DailyTrend{Date: key}
			days[key] = d
		}
		d.Count++
		if st.Status == model.StatusResolved {
			d.Resolved++
		}

		if st.ResponseTime != nil {
			responseTotal += *st.ResponseTime
			s.ResponseSamples++
		}
		if st.Satisfaction != nil {
			satisfactionTotal += *st.Satisfaction
			s.SatisfactionCount++
		}
	}

	for _, d := range days {
		s.DailyTrends = append(s.DailyTrends, *d)
	}
	sort.Slice(s.DailyTrends, func(i, j int) bool { return s.DailyTrends[i].Date < s.DailyTrends[j].Date })

	if s.Total > 0 {
		s.ResolutionRate = round2(float64(s.ByStatus[model.StatusResolved]) / float64(s.Total) * 100)
	}
	if s.ResponseSamples > 0 {
		s.AvgResponseHours = round2(responseTotal.Hours() / float64(s.ResponseSamples))
	}
	if s.SatisfactionCount > 0 {
		s.AvgSatisfaction = round2(float64(satisfactionTotal) / float64(s.SatisfactionCount))
	}
	return s
}

// Growth returns the percentage change from previous to current. Growth from
// an empty previous window is 100 when anything was filed, otherwise 0.
func Growth(current, previous int) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return round2(float64(current-previous) / float64(previous) * 100)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
