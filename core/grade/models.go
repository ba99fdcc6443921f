package grade

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/gablilli/selfhosted-classeviva/core"
)

const (
	UnknownSubject     = "Materia sconosciuta"
	DefaultDescription = "Voto"
	UnspecifiedTeacher = "Docente non specificato"
	UnspecifiedPeriod  = "Periodo non specificato"

	// DemoUserID is the user id of the demo session; it never reaches the upstream.
	DemoUserID = "demo"

	dateLayout = "2006-01-02"
)

var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrUpstreamRejected = errors.New("upstream session rejected")
)

type Type string

const (
	TypeOral      Type = "oral"
	TypeWritten   Type = "written"
	TypePractical Type = "practical"
)

func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeOral, TypeWritten, TypePractical:
		return t, true
	}
	return "", false
}

// Grade is a single normalized assessment.
type Grade struct {
	ID            string  `json:"id"`
	Subject       string  `json:"subject"`
	Value         float64 `json:"value"`
	OriginalValue string  `json:"originalValue,omitempty"`
	Date          string  `json:"date"`
	Description   string  `json:"description"`
	Type          Type    `json:"type"`
	Teacher       string  `json:"teacher"`
	Period        string  `json:"period"`
}

// Subject groups the grades of one subject. Average is kept in sync by Add.
type Subject struct {
	Name    string  `json:"name"`
	Grades  []Grade `json:"grades"`
	Average float64 `json:"average"`
}

func (s *Subject) Add(g Grade) {
	s.Grades = append(s.Grades, g)
	s.Average = Average(s.Grades)
}

// Result is the outcome of a retrieval. Synthetic tells placeholder data apart from real data.
type Result struct {
	Subjects  []Subject `json:"subjects"`
	Synthetic bool      `json:"synthetic"`
}

// IsDemo reports whether the user id (or username) is the demo sentinel.
func IsDemo(id string) bool {
	return strings.EqualFold(strings.TrimSpace(id), DemoUserID)
}

// Round2 rounds to two decimals.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Average is the mean of the grade values rounded to two decimals, 0 when empty.
func Average(grades []Grade) float64 {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range grades {
		sum += g.Value
	}
	return Round2(sum / float64(len(grades)))
}

// StoredGrade is a cached grade row.
type StoredGrade struct {
	Grade
	UserID string `json:"userId"`
}

type Repository interface {
	// InsertGrades stores grades not cached yet for the user, keyed by subject, date and description.
	// It returns how many rows were inserted.
	InsertGrades(ctx context.Context, userID string, grades []Grade) (int, error)
	// QueryGrades lists the cached grades of the user. Orderings may use the fields of OrderingFields.
	QueryGrades(ctx context.Context, userID string, orderings []core.DBOrdering) ([]StoredGrade, error)
}

// OrderingFields maps the sortable JSON fields of a cached grade to their column.
var OrderingFields = map[string]string{
	"subject":     "subject",
	"value":       "grade_value",
	"date":        "grade_date",
	"grade_date":  "grade_date",
	"type":        "grade_type",
	"description": "description",
}
