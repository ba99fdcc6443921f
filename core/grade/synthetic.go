package grade

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"time"

	"github.com/gablilli/selfhosted-classeviva/core"
)

// Source provides placeholder subjects for the demo user and for upstream outages.
type Source interface {
	Subjects(userID string) []Subject
}

// FixedSource always returns the same three subjects.
type FixedSource struct{}

var _ Source = FixedSource{}

func fixed(id, subject string, value float64, date, desc string, typ Type, teacher, period string) Grade {
	return Grade{
		ID:          id,
		Subject:     subject,
		Value:       value,
		Date:        date,
		Description: desc,
		Type:        typ,
		Teacher:     teacher,
		Period:      period,
	}
}

func (FixedSource) Subjects(string) []Subject {
	const first, second = "Primo Quadrimestre", "Secondo Quadrimestre"
	return Aggregate([]Grade{
		fixed("1", "Matematica", 8, "2024-01-15", "Verifica equazioni", TypeWritten, "Prof. Rossi", first),
		fixed("2", "Matematica", 7.5, "2024-02-10", "Interrogazione funzioni", TypeOral, "Prof. Rossi", first),
		fixed("3", "Matematica", 9, "2024-02-28", "Compito geometria", TypeWritten, "Prof. Rossi", second),
		fixed("4", "Italiano", 8, "2024-01-20", "Tema su Leopardi", TypeWritten, "Prof. Bianchi", first),
		fixed("5", "Italiano", 7.5, "2024-02-15", "Analisi del testo", TypeOral, "Prof. Bianchi", first),
		fixed("6", "Italiano", 8, "2024-03-05", "Verifica grammatica", TypeWritten, "Prof. Bianchi", second),
		fixed("7", "Storia", 7, "2024-01-25", "Prima Guerra Mondiale", TypeOral, "Prof. Verdi", first),
		fixed("8", "Storia", 7.5, "2024-02-20", "Rivoluzione Russa", TypeWritten, "Prof. Verdi", first),
		fixed("9", "Storia", 7.5, "2024-03-10", "Fascismo in Italia", TypeOral, "Prof. Verdi", second),
	})
}

var (
	randomSubjects = []string{
		"Matematica", "Italiano", "Storia", "Geografia", "Scienze",
		"Inglese", "Arte", "Educazione Fisica", "Tecnologia", "Musica",
	}
	randomTeachers = []string{"Bianchi", "Verdi", "Neri", "Gialli", "Blu"}
)

// RandomSource generates a plausible school year of grades.
// Output depends only on Seed, the user id and the current day.
type RandomSource struct {
	Seed int64
	Now  func() time.Time
}

var _ Source = RandomSource{}

func NewRandomSource(seed int64) RandomSource {
	return RandomSource{Seed: seed, Now: time.Now}
}

// NewSource picks the placeholder source configured for the deployment.
func NewSource(conf core.SyntheticConfig) Source {
	if conf.Random {
		return NewRandomSource(conf.Seed)
	}
	return FixedSource{}
}

func (src RandomSource) Subjects(userID string) []Subject {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	rnd := rand.New(rand.NewSource(src.Seed ^ int64(h.Sum64())))

	now := time.Now
	if src.Now != nil {
		now = src.Now
	}
	today := now()

	grades := make([]Grade, 0, len(randomSubjects)*7)
	for _, subject := range randomSubjects {
		n := rnd.Intn(5) + 3
		for i := 0; i < n; i++ {
			display := strconv.Itoa(rnd.Intn(6) + 4)
			if rnd.Float64() < 0.3 {
				if rnd.Float64() < 0.5 {
					display += "+"
				} else {
					display += "-"
				}
			}
			value, _ := ParseValue(display)

			desc, typ := "Verifica scritta", TypeWritten
			if rnd.Float64() < 0.5 {
				desc = "Interrogazione"
			}
			if rnd.Float64() < 0.4 {
				typ = TypeOral
			}

			grades = append(grades, Grade{
				ID:            fmt.Sprintf("mock_%s_%d", subject, i),
				Subject:       subject,
				Value:         value,
				OriginalValue: display,
				Date:          today.Add(-time.Duration(rnd.Int63n(int64(90 * 24 * time.Hour)))).Format(dateLayout),
				Description:   desc,
				Type:          typ,
				Teacher:       "Prof. " + randomTeachers[rnd.Intn(len(randomTeachers))],
				Period:        "Primo Quadrimestre",
			})
		}
	}
	return Aggregate(grades)
}
