package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiForms/internal/access"
	"github.com/parisxmas/OxiDB/OxiForms/internal/apperr"
	"github.com/parisxmas/OxiDB/OxiForms/internal/metrics"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
	"github.com/parisxmas/OxiDB/OxiForms/internal/token"
)

const submittedMessage = "Form submitted successfully"

type SubmissionService struct {
	subs    SubmissionStore
	forms   FormStore
	metrics *metrics.Registry
	log     *zap.Logger

	newID func() string
	now   func() time.Time
}

func NewSubmissionService(subs SubmissionStore, forms FormStore, m *metrics.Registry, log *zap.Logger) *SubmissionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubmissionService{
		subs:    subs,
		forms:   forms,
		metrics: m,
		log:     log.Named("submissions"),
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SubmitResult acknowledges a stored submission.
type SubmitResult struct {
	Message      string    `json:"message"`
	SubmissionID string    `json:"submissionId"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Submit stores the answers in body against the form tok grants access to.
// Nothing is stored unless every answer belongs to the form.
func (s *SubmissionService) Submit(ctx context.Context, tok string, body []byte) (*SubmitResult, error) {
	req, form, err := access.AuthorizeSubmission(ctx, tok, body, s.forms)
	if err != nil {
		rejected(s.metrics, s.log, "submission", tok, err)
		return nil, err
	}

	sub := models.BuildSubmission(form, *req, s.newID, s.now())
	if err := s.subs.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	s.metrics.SubmissionAccepted()
	s.log.Info("submission stored",
		zap.String("form_id", form.ID),
		zap.String("submission_id", sub.ID),
		zap.String("token", token.Short(tok)),
		zap.Int("answers", len(sub.Values)),
	)
	return &SubmitResult{
		Message:      submittedMessage,
		SubmissionID: sub.ID,
		SubmittedAt:  sub.CreatedAt,
	}, nil
}

// ListByForm returns the form's submissions, newest first, with each answer's
// field and section attached.
func (s *SubmissionService) ListByForm(ctx context.Context, formID string) ([]models.Submission, error) {
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("find form: %w", err)
	}
	if form == nil {
		return nil, &apperr.NotFoundError{Resource: "form"}
	}
	subs, err := s.subs.FindByFormID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	for i := range subs {
		subs[i].AttachFields(form)
	}
	return subs, nil
}
