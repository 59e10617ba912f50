// Package access decides whether a token grants access to a form and
// whether a submission may be stored against it.
//
// The token format is checked before any lookup, so malformed tokens never
// reach storage.
package access

import (
	"context"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiForms/internal/apperr"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
	"github.com/parisxmas/OxiDB/OxiForms/internal/token"
	"github.com/parisxmas/OxiDB/OxiForms/internal/validation"
)

// FormLookup finds a form by its token. It returns (nil, nil) when no form
// has the token.
type FormLookup interface {
	FindByToken(ctx context.Context, tok string) (*models.Form, error)
}

// LookupFunc adapts a function to FormLookup.
type LookupFunc func(ctx context.Context, tok string) (*models.Form, error)

func (f LookupFunc) FindByToken(ctx context.Context, tok string) (*models.Form, error) {
	return f(ctx, tok)
}

// AuthorizeRetrieval returns the form tok grants access to.
func AuthorizeRetrieval(ctx context.Context, tok string, lookup FormLookup) (*models.Form, error) {
	if !token.IsValid(tok) {
		return nil, &apperr.FormatError{}
	}
	form, err := lookup.FindByToken(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("find form by token: %w", err)
	}
	if form == nil {
		return nil, &apperr.NotFoundError{Resource: "form"}
	}
	return form, nil
}

// AuthorizeSubmission checks that body is an acceptable submission for the
// form tok grants access to, and returns both.
func AuthorizeSubmission(ctx context.Context, tok string, body []byte, lookup FormLookup) (*models.SubmissionRequest, *models.Form, error) {
	form, err := AuthorizeRetrieval(ctx, tok, lookup)
	if err != nil {
		return nil, nil, err
	}
	req, err := validation.ParseSubmission(body)
	if err != nil {
		return nil, nil, err
	}
	if foreign := CheckSubmissionAgainstForm(req, FieldIDs(form)); len(foreign) > 0 {
		return nil, nil, &apperr.ForeignReferenceError{IDs: foreign}
	}
	return req, form, nil
}

// FieldIDs returns the set of field ids belonging to form.
func FieldIDs(form *models.Form) map[string]struct{} {
	return form.FieldIDs()
}

// CheckSubmissionAgainstForm returns the submitted field ids that are not in
// known, in submission order and without repeats. An empty result means every
// answer belongs to the form; answering only some fields is allowed.
func CheckSubmissionAgainstForm(req *models.SubmissionRequest, known map[string]struct{}) []string {
	var foreign []string
	seen := make(map[string]bool)
	for _, id := range req.FieldIDs() {
		if _, ok := known[id]; ok || seen[id] {
			continue
		}
		seen[id] = true
		foreign = append(foreign, id)
	}
	return foreign
}
