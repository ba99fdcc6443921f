package grade

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		display string
		want    float64
		wantOk  bool
	}{
		{display: "8", want: 8, wantOk: true},
		{display: " 7.5 ", want: 7.5, wantOk: true},
		{display: "7+", want: 7.25, wantOk: true},
		{display: "6-", want: 5.75, wantOk: true},
		{display: "10+", want: 10.25, wantOk: true},
		{display: "abc"},
		{display: "0"},
		{display: "-1"},
		{display: "+"},
		{display: ""},
		{display: "NaN"},
		{display: "Inf"},
		{display: "0-"},
	}
	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			got, ok := ParseValue(tt.display)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	NowFunc = func() time.Time { return time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC) }
	defer func() { NowFunc = time.Now }()

	tests := []struct {
		name   string
		raw    RawGrade
		want   Grade
		wantOk bool
	}{
		{
			name: "complete record",
			raw: RawGrade{
				"evtId": float64(123456), "subjectDesc": "MATEMATICA", "displayValue": "7+", "evtDate": "2024-02-10",
				"notesForFamily": "Verifica equazioni", "componentDesc": "Scritto", "teacherName": "ROSSI MARIO",
				"periodDesc": "Primo Quadrimestre",
			},
			want: Grade{
				ID: "123456", Subject: "MATEMATICA", Value: 7.25, OriginalValue: "7+", Date: "2024-02-10",
				Description: "Verifica equazioni", Type: TypeWritten, Teacher: "ROSSI MARIO", Period: "Primo Quadrimestre",
			},
			wantOk: true,
		},
		{
			name: "defaults",
			raw:  RawGrade{"evtId": "a1", "displayValue": "6-"},
			want: Grade{
				ID: "a1", Subject: UnknownSubject, Value: 5.75, OriginalValue: "6-", Date: "2024-05-02",
				Description: DefaultDescription, Type: TypeWritten, Teacher: UnspecifiedTeacher, Period: UnspecifiedPeriod,
			},
			wantOk: true,
		},
		{
			name: "fallback fields",
			raw: RawGrade{
				"evtId": "b2", "subjectCode": "ITA", "displayValue": json.Number("8"), "evtDate": "2024-03-05T08:00:00+01:00",
				"componentDesc": "Orale", "periodPos": float64(2), "notesForFamily": "",
			},
			want: Grade{
				ID: "b2", Subject: "ITA", Value: 8, OriginalValue: "8", Date: "2024-03-05",
				Description: "Orale", Type: TypeOral, Teacher: UnspecifiedTeacher, Period: "2",
			},
			wantOk: true,
		},
		{
			name: "explicit practical type",
			raw:  RawGrade{"evtId": "c3", "subjectDesc": "SCIENZE MOTORIE", "displayValue": "9", "evtDate": "2024-01-01", "gradeType": "Practical"},
			want: Grade{
				ID: "c3", Subject: "SCIENZE MOTORIE", Value: 9, OriginalValue: "9", Date: "2024-01-01",
				Description: DefaultDescription, Type: TypePractical, Teacher: UnspecifiedTeacher, Period: UnspecifiedPeriod,
			},
			wantOk: true,
		},
		{name: "unparsable value", raw: RawGrade{"subjectDesc": "STORIA", "displayValue": "abc"}},
		{name: "zero value", raw: RawGrade{"subjectDesc": "STORIA", "displayValue": "0"}},
		{name: "negative value", raw: RawGrade{"subjectDesc": "STORIA", "displayValue": "-1"}},
		{name: "missing value", raw: RawGrade{"subjectDesc": "STORIA"}},
		{name: "bad date falls back to today", raw: RawGrade{"evtId": "d4", "displayValue": "7", "evtDate": "yesterday"}, want: Grade{
			ID: "d4", Subject: UnknownSubject, Value: 7, OriginalValue: "7", Date: "2024-05-02",
			Description: DefaultDescription, Type: TypeWritten, Teacher: UnspecifiedTeacher, Period: UnspecifiedPeriod,
		}, wantOk: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw, ResolveSubject)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_generatedIDIsDeterministic(t *testing.T) {
	raw := RawGrade{"subjectDesc": "ARTE", "displayValue": "8", "evtDate": "2024-01-10", "notesForFamily": "Disegno"}
	g1, ok := Normalize(raw, nil)
	require.True(t, ok)
	g2, ok := Normalize(raw, nil)
	require.True(t, ok)
	assert.NotEmpty(t, g1.ID)
	assert.Equal(t, g1.ID, g2.ID)

	other := RawGrade{"subjectDesc": "ARTE", "displayValue": "8", "evtDate": "2024-01-11", "notesForFamily": "Disegno"}
	g3, ok := Normalize(other, nil)
	require.True(t, ok)
	assert.NotEqual(t, g1.ID, g3.ID)
}

func TestNormalize_customResolver(t *testing.T) {
	resolve := func(r RawGrade) string { return r.StringOr("Altro", "subjectId") }
	g, ok := Normalize(RawGrade{"subjectId": float64(42), "displayValue": "6"}, resolve)
	require.True(t, ok)
	assert.Equal(t, "42", g.Subject)
}

func TestNormalizeAll(t *testing.T) {
	raws := []RawGrade{
		{"subjectDesc": "Matematica", "displayValue": "8"},
		{"subjectDesc": "Matematica", "displayValue": "abc"},
		{"subjectDesc": "Italiano", "displayValue": "7"},
	}
	grades, dropped := NormalizeAll(raws, ResolveSubject)
	assert.Equal(t, 1, dropped)
	require.Len(t, grades, 2)
	assert.Equal(t, "Matematica", grades[0].Subject)
	assert.Equal(t, "Italiano", grades[1].Subject)
}
