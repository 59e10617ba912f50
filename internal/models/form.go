package models

import "time"

// Field types accepted in a form definition.
const (
	FieldTypeText   = "text"
	FieldTypeNumber = "number"
)

// DefaultFormTitle is stored when a definition has no title.
const DefaultFormTitle = "Untitled Form"

// FieldDefinition is one field of an incoming form definition.
type FieldDefinition struct {
	Label string `json:"label" validate:"required,min=1,max=100"`
	Type  string `json:"type" validate:"required,oneof=text number"`
}

// SectionDefinition is one section of an incoming form definition.
type SectionDefinition struct {
	Name   string            `json:"name" validate:"required,min=1,max=100"`
	Fields []FieldDefinition `json:"fields" validate:"required,min=1,dive"`
}

// FormDefinition is the payload an administrator sends to create a form.
type FormDefinition struct {
	Title    *string             `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Sections []SectionDefinition `json:"sections" validate:"required,min=1,dive"`
}

// Field is a stored form field. IDs are assigned when the form is built.
type Field struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Order int    `json:"order"`
}

// Section is a stored, ordered group of fields.
type Section struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Order  int     `json:"order"`
	Fields []Field `json:"fields"`
}

// Form is the stored form aggregate. It is never modified after creation.
type Form struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Token     string    `json:"token"`
	Sections  []Section `json:"sections"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FormSummary is a form as listed to the administrator.
type FormSummary struct {
	Form
	URL             string `json:"url"`
	SubmissionCount int    `json:"submissionCount"`
}

// BuildForm turns a validated definition into a complete Form, assigning
// ids to the form and every section and field. newID is called once per
// entity, form first, then each section followed by its fields.
func BuildForm(def FormDefinition, tok string, newID func() string, now time.Time) *Form {
	title := DefaultFormTitle
	if def.Title != nil && *def.Title != "" {
		title = *def.Title
	}

	form := &Form{
		ID:        newID(),
		Title:     title,
		Token:     tok,
		Sections:  make([]Section, 0, len(def.Sections)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for si, sd := range def.Sections {
		section := Section{
			ID:     newID(),
			Name:   sd.Name,
			Order:  si,
			Fields: make([]Field, 0, len(sd.Fields)),
		}
		for fi, fd := range sd.Fields {
			section.Fields = append(section.Fields, Field{
				ID:    newID(),
				Label: fd.Label,
				Type:  fd.Type,
				Order: fi,
			})
		}
		form.Sections = append(form.Sections, section)
	}
	return form
}

// FieldIDs returns the ids of every field across all sections.
func (f *Form) FieldIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, s := range f.Sections {
		for _, fd := range s.Fields {
			ids[fd.ID] = struct{}{}
		}
	}
	return ids
}

// FieldCount returns the number of fields across all sections.
func (f *Form) FieldCount() int {
	n := 0
	for _, s := range f.Sections {
		n += len(s.Fields)
	}
	return n
}
