package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiForms/internal/db"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

type FormRepo struct {
	db *db.DB
}

func NewFormRepo(d *db.DB) *FormRepo {
	return &FormRepo{db: d}
}

// CreateForm inserts the form with all its sections and fields in one transaction.
func (r *FormRepo) CreateForm(ctx context.Context, form *models.Form) error {
	return withTx(ctx, r.db.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO forms (id, title, token, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			form.ID, form.Title, form.Token, toUnix(form.CreatedAt), toUnix(form.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert form: %w", err)
		}
		for _, s := range form.Sections {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sections (id, form_id, name, position) VALUES (?, ?, ?, ?)`,
				s.ID, form.ID, s.Name, s.Order,
			); err != nil {
				return fmt.Errorf("insert section: %w", err)
			}
			for _, f := range s.Fields {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO fields (id, section_id, label, type, position) VALUES (?, ?, ?, ?, ?)`,
					f.ID, s.ID, f.Label, f.Type, f.Order,
				); err != nil {
					return fmt.Errorf("insert field: %w", err)
				}
			}
		}
		return nil
	})
}

func (r *FormRepo) FindByToken(ctx context.Context, tok string) (*models.Form, error) {
	return r.findOne(ctx, `token = ?`, tok)
}

func (r *FormRepo) FindByID(ctx context.Context, id string) (*models.Form, error) {
	return r.findOne(ctx, `id = ?`, id)
}

// FindAll returns every form, newest first.
func (r *FormRepo) FindAll(ctx context.Context) ([]models.Form, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, token, created_at, updated_at FROM forms ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query forms: %w", err)
	}
	var forms []models.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		forms = append(forms, *f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forms: %w", err)
	}

	for i := range forms {
		if err := r.loadSections(ctx, &forms[i]); err != nil {
			return nil, err
		}
	}
	return forms, nil
}

func (r *FormRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count forms: %w", err)
	}
	return n, nil
}

func (r *FormRepo) findOne(ctx context.Context, where string, arg any) (*models.Form, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, token, created_at, updated_at FROM forms WHERE `+where, arg)
	form, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSections(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (r *FormRepo) loadSections(ctx context.Context, form *models.Form) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.position, f.id, f.label, f.type, f.position
		FROM sections s
		JOIN fields f ON f.section_id = s.id
		WHERE s.form_id = ?
		ORDER BY s.position, f.position`, form.ID)
	if err != nil {
		return fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	form.Sections = form.Sections[:0]
	for rows.Next() {
		var s models.Section
		var f models.Field
		if err := rows.Scan(&s.ID, &s.Name, &s.Order, &f.ID, &f.Label, &f.Type, &f.Order); err != nil {
			return fmt.Errorf("scan section: %w", err)
		}
		if n := len(form.Sections); n == 0 || form.Sections[n-1].ID != s.ID {
			form.Sections = append(form.Sections, s)
		}
		last := &form.Sections[len(form.Sections)-1]
		last.Fields = append(last.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sections: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(s scanner) (*models.Form, error) {
	var f models.Form
	var created, updated int64
	if err := s.Scan(&f.ID, &f.Title, &f.Token, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan form: %w", err)
	}
	f.CreatedAt = fromUnix(created)
	f.UpdatedAt = fromUnix(updated)
	f.Sections = []models.Section{}
	return &f, nil
}
