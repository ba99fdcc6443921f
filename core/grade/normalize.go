package grade

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const modifierStep = 0.25

var (
	// NowFunc is the clock used for missing dates; tests replace it.
	NowFunc = time.Now

	// gradeNamespace seeds the name-based ids of records without an upstream id.
	gradeNamespace = uuid.MustParse("5b0c7a7e-2f43-4d8e-9a7b-6b1f3c2d9e10")
)

// SubjectResolver picks the subject name of a raw record.
type SubjectResolver func(RawGrade) string

// ResolveSubject uses the subject description, then the subject code.
func ResolveSubject(raw RawGrade) string {
	return raw.StringOr(UnknownSubject, "subjectDesc", "subjectCode")
}

// ParseValue turns a display value ("8", "7+", "6-", "7.5") into a number.
// A trailing "+" adds a quarter point and a trailing "-" removes one.
// Values that are not finite or not positive are rejected.
func ParseValue(display string) (float64, bool) {
	display = strings.TrimSpace(display)
	if display == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(display, 64)
	if err != nil {
		base := strings.TrimRight(display, "+-")
		if base == display {
			return 0, false
		}
		value, err = strconv.ParseFloat(strings.TrimSpace(base), 64)
		if err != nil {
			return 0, false
		}
		modifiers := display[len(base):]
		if strings.Contains(modifiers, "+") {
			value += modifierStep
		}
		if strings.Contains(modifiers, "-") {
			value -= modifierStep
		}
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, false
	}
	return value, true
}

// Normalize converts a raw upstream record into a Grade.
// ok is false when the record has no usable value; missing optional fields get their defaults.
func Normalize(raw RawGrade, resolve SubjectResolver) (g Grade, ok bool) {
	value, display, ok := raw.NumericLike("displayValue")
	if !ok {
		return Grade{}, false
	}
	if resolve == nil {
		resolve = ResolveSubject
	}
	subject := strings.TrimSpace(resolve(raw))
	if subject == "" {
		subject = UnknownSubject
	}

	g = Grade{
		Subject:       subject,
		Value:         value,
		OriginalValue: display,
		Date:          normalizeDate(raw),
		Description:   raw.StringOr(DefaultDescription, "notesForFamily", "componentDesc"),
		Type:          inferType(raw),
		Teacher:       raw.StringOr(UnspecifiedTeacher, "teacherName"),
		Period:        raw.StringOr(UnspecifiedPeriod, "periodDesc", "periodPos"),
	}
	if id, ok := raw.OptionalString("evtId"); ok {
		g.ID = id
	} else {
		g.ID = uuid.NewSHA1(gradeNamespace, []byte(strings.Join([]string{g.Subject, g.Date, display, g.Description}, "|"))).String()
	}
	return g, true
}

// NormalizeAll normalizes records in order, dropping the rejected ones.
func NormalizeAll(raws []RawGrade, resolve SubjectResolver) (grades []Grade, dropped int) {
	grades = make([]Grade, 0, len(raws))
	for _, raw := range raws {
		if g, ok := Normalize(raw, resolve); ok {
			grades = append(grades, g)
		} else {
			dropped++
		}
	}
	return grades, dropped
}

func normalizeDate(raw RawGrade) string {
	if s, ok := raw.OptionalString("evtDate"); ok && len(s) >= len(dateLayout) {
		if _, err := time.Parse(dateLayout, s[:len(dateLayout)]); err == nil {
			return s[:len(dateLayout)]
		}
	}
	return NowFunc().Format(dateLayout)
}

func inferType(raw RawGrade) Type {
	if s, ok := raw.OptionalString("gradeType"); ok {
		if t, ok := ParseType(s); ok {
			return t
		}
	}
	if strings.Contains(strings.ToLower(raw.StringOr("", "componentDesc")), "oral") {
		return TypeOral
	}
	return TypeWritten
}
