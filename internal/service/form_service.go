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
	"github.com/parisxmas/OxiDB/OxiForms/internal/validation"
)

type FormService struct {
	forms   FormStore
	subs    SubmissionStore
	baseURL string
	metrics *metrics.Registry
	log     *zap.Logger

	newID func() string
	now   func() time.Time
}

func NewFormService(forms FormStore, subs SubmissionStore, baseURL string, m *metrics.Registry, log *zap.Logger) *FormService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FormService{
		forms:   forms,
		subs:    subs,
		baseURL: baseURL,
		metrics: m,
		log:     log.Named("forms"),
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateResult is returned to the administrator after a form is created.
type CreateResult struct {
	Form *models.Form `json:"form"`
	URL  string       `json:"url"`
}

// Create validates a form definition, mints its token and stores the
// complete form.
func (s *FormService) Create(ctx context.Context, body []byte) (*CreateResult, error) {
	def, err := validation.ParseFormDefinition(body)
	if err != nil {
		return nil, err
	}
	tok, err := token.Generate()
	if err != nil {
		return nil, err
	}

	form := models.BuildForm(*def, tok, s.newID, s.now())
	if err := s.forms.CreateForm(ctx, form); err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	s.metrics.FormCreated()
	s.log.Info("form created",
		zap.String("form_id", form.ID),
		zap.String("token", token.Short(tok)),
		zap.Int("sections", len(form.Sections)),
		zap.Int("fields", form.FieldCount()),
	)
	return &CreateResult{Form: form, URL: token.AccessURL(s.baseURL, tok)}, nil
}

// List returns every form, newest first, with its access URL and
// submission count.
func (s *FormService) List(ctx context.Context) ([]models.FormSummary, error) {
	forms, err := s.forms.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	out := make([]models.FormSummary, 0, len(forms))
	for _, f := range forms {
		n, err := s.subs.CountByFormID(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("count submissions: %w", err)
		}
		out = append(out, models.FormSummary{
			Form:            f,
			URL:             token.AccessURL(s.baseURL, f.Token),
			SubmissionCount: n,
		})
	}
	return out, nil
}

// GetByToken returns the form tok grants access to.
func (s *FormService) GetByToken(ctx context.Context, tok string) (*models.Form, error) {
	form, err := access.AuthorizeRetrieval(ctx, tok, s.forms)
	if err != nil {
		rejected(s.metrics, s.log, "retrieval", tok, err)
		return nil, err
	}
	return form, nil
}

// rejected counts and logs a refused retrieval or submission. Storage
// failures are left to the caller.
func rejected(m *metrics.Registry, log *zap.Logger, op, tok string, err error) {
	reason := apperr.Reason(err)
	if reason == apperr.ReasonInternal {
		return
	}
	m.Rejected(reason)
	log.Debug(op+" rejected",
		zap.String("token", token.Short(tok)),
		zap.String("reason", reason),
	)
}
