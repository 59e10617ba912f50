package models

import "time"

// AnswerInput is one (fieldId, value) pair of an incoming submission.
// Value is a pointer so that a missing value can be told apart from "".
type AnswerInput struct {
	FieldID string  `json:"fieldId" validate:"required,guid"`
	Value   *string `json:"value" validate:"required"`
}

// SubmissionRequest is the payload a respondent posts to a form's token.
type SubmissionRequest struct {
	Values []AnswerInput `json:"values" validate:"required,min=1,dive"`
}

// FieldIDs returns the submitted field ids in order.
func (r *SubmissionRequest) FieldIDs() []string {
	ids := make([]string, len(r.Values))
	for i, v := range r.Values {
		ids[i] = v.FieldID
	}
	return ids
}

// FieldInfo describes the field an answer belongs to.
type FieldInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	SectionID   string `json:"sectionId"`
	SectionName string `json:"sectionName"`
}

// SubmissionValue is a stored answer.
type SubmissionValue struct {
	ID      string     `json:"id"`
	FieldID string     `json:"fieldId"`
	Value   string     `json:"value"`
	Field   *FieldInfo `json:"field,omitempty"`
}

// Submission is one respondent's stored answers to a form.
type Submission struct {
	ID        string            `json:"id"`
	FormID    string            `json:"formId"`
	Token     string            `json:"token"`
	Values    []SubmissionValue `json:"values"`
	CreatedAt time.Time         `json:"createdAt"`
}

// BuildSubmission creates a Submission for form from a checked request.
func BuildSubmission(form *Form, req SubmissionRequest, newID func() string, now time.Time) *Submission {
	sub := &Submission{
		ID:        newID(),
		FormID:    form.ID,
		Token:     form.Token,
		Values:    make([]SubmissionValue, 0, len(req.Values)),
		CreatedAt: now,
	}
	for _, v := range req.Values {
		val := ""
		if v.Value != nil {
			val = *v.Value
		}
		sub.Values = append(sub.Values, SubmissionValue{
			ID:      newID(),
			FieldID: v.FieldID,
			Value:   val,
		})
	}
	return sub
}

// AttachFields fills in Field on every value whose field belongs to form.
func (s *Submission) AttachFields(form *Form) {
	infos := make(map[string]*FieldInfo)
	for _, sec := range form.Sections {
		for _, f := range sec.Fields {
			infos[f.ID] = &FieldInfo{
				ID:          f.ID,
				Label:       f.Label,
				Type:        f.Type,
				SectionID:   sec.ID,
				SectionName: sec.Name,
			}
		}
	}
	for i := range s.Values {
		s.Values[i].Field = infos[s.Values[i].FieldID]
	}
}
