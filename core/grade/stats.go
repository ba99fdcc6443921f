package grade

import (
	"math"
	"sort"
	"strings"
)

const DefaultTrendWindow = 3

type (
	SubjectAverage struct {
		Name    string  `json:"name"`
		Average float64 `json:"average"`
	}

	// Bucket counts grades falling in [Min, Max).
	Bucket struct {
		Name       string  `json:"name"`
		Min        float64 `json:"min"`
		Max        float64 `json:"max,omitempty"`
		Count      int     `json:"count"`
		Percentage float64 `json:"percentage"`
	}

	TrendPoint struct {
		Index   int     `json:"index"`
		Date    string  `json:"date"`
		Subject string  `json:"subject"`
		Value   float64 `json:"value"`
		Trend   float64 `json:"trend"`
	}

	Summary struct {
		OverallAverage float64          `json:"overallAverage"`
		TotalGrades    int              `json:"totalGrades"`
		SubjectCount   int              `json:"subjectCount"`
		BestSubject    *SubjectAverage  `json:"bestSubject"`
		Subjects       []SubjectAverage `json:"subjects"`
		Distribution   []Bucket         `json:"distribution"`
		Trend          []TrendPoint     `json:"trend"`
	}

	SubjectDetail struct {
		Subject
		OralAverage      float64 `json:"oralAverage"`
		WrittenAverage   float64 `json:"writtenAverage"`
		PracticalAverage float64 `json:"practicalAverage"`
		Oral             []Grade `json:"oral"`
		Written          []Grade `json:"written"`
		Practical        []Grade `json:"practical"`
	}
)

// buckets are the grade bands shown on the dashboard; the last one is open-ended.
var buckets = []Bucket{
	{Name: "Insufficiente (< 6)", Min: 0, Max: 6},
	{Name: "Sufficiente (6-6.99)", Min: 6, Max: 7},
	{Name: "Buono (7-7.99)", Min: 7, Max: 8},
	{Name: "Distinto (8-8.99)", Min: 8, Max: 9},
	{Name: "Ottimo (9-10)", Min: 9},
}

// Summarize computes the dashboard numbers of a set of subjects.
func Summarize(subjects []Subject) Summary {
	grades := Flatten(subjects)
	summary := Summary{
		TotalGrades:  len(grades),
		SubjectCount: len(subjects),
		Subjects:     make([]SubjectAverage, 0, len(subjects)),
		Distribution: Distribution(grades),
		Trend:        Trend(grades, DefaultTrendWindow),
	}

	var sum float64
	for _, s := range subjects {
		avg := SubjectAverage{Name: s.Name, Average: s.Average}
		summary.Subjects = append(summary.Subjects, avg)
		sum += s.Average
		if summary.BestSubject == nil || s.Average > summary.BestSubject.Average {
			best := avg
			summary.BestSubject = &best
		}
	}
	if len(subjects) > 0 {
		summary.OverallAverage = Round2(sum / float64(len(subjects)))
	}
	return summary
}

// Distribution counts grades per band, keeping only the non-empty bands.
func Distribution(grades []Grade) []Bucket {
	counts := make([]int, len(buckets))
	for _, g := range grades {
		for i, b := range buckets {
			if g.Value >= b.Min && (b.Max == 0 || g.Value < b.Max) {
				counts[i]++
				break
			}
		}
	}

	dist := make([]Bucket, 0, len(buckets))
	for i, b := range buckets {
		if counts[i] == 0 {
			continue
		}
		b.Count = counts[i]
		b.Percentage = math.Round(float64(counts[i])/float64(len(grades))*1000) / 10
		dist = append(dist, b)
	}
	return dist
}

// Trend sorts grades by date and pairs each one with the moving average of the last `window` values.
func Trend(grades []Grade, window int) []TrendPoint {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	sorted := make([]Grade, len(grades))
	copy(sorted, grades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	points := make([]TrendPoint, 0, len(sorted))
	for i, g := range sorted {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		points = append(points, TrendPoint{
			Index:   i + 1,
			Date:    g.Date,
			Subject: g.Subject,
			Value:   g.Value,
			Trend:   Average(sorted[start : i+1]),
		})
	}
	return points
}

// Detail splits one subject's grades by type. The name match ignores case.
func Detail(subjects []Subject, name string) (SubjectDetail, error) {
	name = strings.TrimSpace(name)
	for _, s := range subjects {
		if !strings.EqualFold(s.Name, name) {
			continue
		}
		detail := SubjectDetail{Subject: s, Oral: []Grade{}, Written: []Grade{}, Practical: []Grade{}}
		for _, g := range s.Grades {
			switch g.Type {
			case TypeOral:
				detail.Oral = append(detail.Oral, g)
			case TypePractical:
				detail.Practical = append(detail.Practical, g)
			default:
				detail.Written = append(detail.Written, g)
			}
		}
		detail.OralAverage = Average(detail.Oral)
		detail.WrittenAverage = Average(detail.Written)
		detail.PracticalAverage = Average(detail.Practical)
		return detail, nil
	}
	return SubjectDetail{}, ErrSubjectNotFound
}
