package service

import (
	"context"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

// FormStore persists forms. Find methods return (nil, nil) when nothing matches.
type FormStore interface {
	CreateForm(ctx context.Context, form *models.Form) error
	FindByToken(ctx context.Context, tok string) (*models.Form, error)
	FindByID(ctx context.Context, id string) (*models.Form, error)
	FindAll(ctx context.Context) ([]models.Form, error)
}

// SubmissionStore persists submissions. Submissions are append-only.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub *models.Submission) error
	FindByFormID(ctx context.Context, formID string) ([]models.Submission, error)
	CountByFormID(ctx context.Context, formID string) (int, error)
}
