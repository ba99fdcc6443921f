package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/grade"
)

type gradeRow struct {
	UserID        string      `db:"user_id"`
	ExternalID    string      `db:"external_id"`
	Subject       string      `db:"subject"`
	Value         float64     `db:"grade_value"`
	OriginalValue null.String `db:"original_value"`
	Date          time.Time   `db:"grade_date"`
	Description   string      `db:"description"`
	Type          string      `db:"grade_type"`
	Teacher       string      `db:"teacher"`
	Period        string      `db:"period"`
}

func newGradeRow(userID string, g grade.Grade) (gradeRow, error) {
	date, err := time.Parse("2006-01-02", g.Date)
	if err != nil {
		return gradeRow{}, errors.Wrapf(err, "parsing date of grade %s", g.ID)
	}
	return gradeRow{
		UserID:        userID,
		ExternalID:    g.ID,
		Subject:       g.Subject,
		Value:         g.Value,
		OriginalValue: null.NewString(g.OriginalValue, g.OriginalValue != ""),
		Date:          date,
		Description:   g.Description,
		Type:          string(g.Type),
		Teacher:       g.Teacher,
		Period:        g.Period,
	}, nil
}

func (row gradeRow) stored() grade.StoredGrade {
	return grade.StoredGrade{
		UserID: row.UserID,
		Grade: grade.Grade{
			ID:            row.ExternalID,
			Subject:       row.Subject,
			Value:         row.Value,
			OriginalValue: row.OriginalValue.String,
			Date:          row.Date.Format("2006-01-02"),
			Description:   row.Description,
			Type:          grade.Type(row.Type),
			Teacher:       row.Teacher,
			Period:        row.Period,
		},
	}
}

const (
	gradeColumns = `user_id, external_id, subject, grade_value, original_value, grade_date, description, grade_type, teacher, period`

	insertGradeQuery = `
INSERT INTO grades (` + gradeColumns + `)
VALUES (:user_id, :external_id, :subject, :grade_value, :original_value, :grade_date, :description, :grade_type, :teacher, :period)
ON CONFLICT (user_id, subject, grade_date, description) DO NOTHING`

	defaultGradeOrdering = "grade_date DESC, id DESC"
)

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) InsertGrades(ctx context.Context, userID string, grades []grade.Grade) (inserted int, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertGradeQuery)
	if err != nil {
		return 0, errors.Wrap(err, "preparing insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, g := range grades {
		row, err := newGradeRow(userID, g)
		if err != nil {
			return 0, err
		}
		res, err := stmt.ExecContext(ctx, row)
		if err != nil {
			return 0, errors.Wrap(err, "inserting grade")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "counting inserted grades")
		}
		inserted += int(n)
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing grades")
	}
	return inserted, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, userID string, orderings []core.DBOrdering) ([]grade.StoredGrade, error) {
	orderBy := core.OrderByClause(orderings, grade.OrderingFields, defaultGradeOrdering)

	var rows []gradeRow
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE user_id = $1 ORDER BY ` + orderBy
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "selecting grades")
	}

	grades := make([]grade.StoredGrade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, row.stored())
	}
	return grades, nil
}
