package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/grade"
)

type gradeKey struct {
	userID, subject, date, description string
}

type gradeRecord struct {
	id int64
	grade.StoredGrade
}

type gradeRepository struct {
	db *gradeTable
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db.grades}
}

func (repo *gradeRepository) InsertGrades(ctx context.Context, userID string, grades []grade.Grade) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var inserted int
	for _, g := range grades {
		key := gradeKey{userID: userID, subject: g.Subject, date: g.Date, description: g.Description}
		if _, ok := repo.db.table[key]; ok {
			continue
		}
		repo.db.pk++
		repo.db.table[key] = &gradeRecord{id: repo.db.pk, StoredGrade: grade.StoredGrade{Grade: g, UserID: userID}}
		inserted++
	}
	return inserted, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, userID string, orderings []core.DBOrdering) ([]grade.StoredGrade, error) {
	repo.db.mutex.RLock()
	records := make([]*gradeRecord, 0)
	for _, rec := range repo.db.table {
		if rec.UserID == userID {
			records = append(records, rec)
		}
	}
	repo.db.mutex.RUnlock()

	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "date"}}
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, ord := range orderings {
			c := compare(records[i], records[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return records[i].id > records[j].id
	})

	grades := make([]grade.StoredGrade, 0, len(records))
	for _, rec := range records {
		grades = append(grades, rec.StoredGrade)
	}
	return grades, nil
}

func compare(a, b *gradeRecord, field string) int {
	switch grade.OrderingFields[field] {
	case "subject":
		return strings.Compare(a.Subject, b.Subject)
	case "grade_value":
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	case "grade_date":
		return strings.Compare(a.Date, b.Date)
	case "grade_type":
		return strings.Compare(string(a.Type), string(b.Type))
	case "description":
		return strings.Compare(a.Description, b.Description)
	}
	return 0
}
