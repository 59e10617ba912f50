package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiForms/internal/db"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

type SubmissionRepo struct {
	db *db.DB
}

func NewSubmissionRepo(d *db.DB) *SubmissionRepo {
	return &SubmissionRepo{db: d}
}

// CreateSubmission inserts the submission and its values in one transaction.
func (r *SubmissionRepo) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	return withTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO submissions (id, form_id, token, created_at) VALUES (?, ?, ?, ?)`,
			sub.ID, sub.FormID, sub.Token, toUnix(sub.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		for i, v := range sub.Values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO submission_values (id, submission_id, field_id, position, value) VALUES (?, ?, ?, ?, ?)`,
				v.ID, sub.ID, v.FieldID, i, v.Value,
			); err != nil {
				return fmt.Errorf("insert submission value: %w", err)
			}
		}
		return nil
	})
}

// FindByFormID returns the form's submissions, newest first.
func (r *SubmissionRepo) FindByFormID(ctx context.Context, formID string) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, form_id, token, created_at FROM submissions WHERE form_id = ? ORDER BY created_at DESC, id`, formID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	subs := []models.Submission{}
	index := make(map[string]int)
	for rows.Next() {
		var s models.Submission
		var created int64
		if err := rows.Scan(&s.ID, &s.FormID, &s.Token, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.CreatedAt = fromUnix(created)
		s.Values = []models.SubmissionValue{}
		index[s.ID] = len(subs)
		subs = append(subs, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	if len(subs) == 0 {
		return subs, nil
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT v.submission_id, v.id, v.field_id, v.value
		FROM submission_values v
		JOIN submissions s ON s.id = v.submission_id
		WHERE s.form_id = ?
		ORDER BY v.submission_id, v.position`, formID)
	if err != nil {
		return nil, fmt.Errorf("query submission values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subID string
		var v models.SubmissionValue
		if err := rows.Scan(&subID, &v.ID, &v.FieldID, &v.Value); err != nil {
			return nil, fmt.Errorf("scan submission value: %w", err)
		}
		if i, ok := index[subID]; ok {
			subs[i].Values = append(subs[i].Values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission values: %w", err)
	}
	return subs, nil
}

func (r *SubmissionRepo) CountByFormID(ctx context.Context, formID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE form_id = ?`, formID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}
