package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/OxiDB/OxiForms/internal/apperr"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

func violations(t *testing.T, err error) []apperr.Violation {
	t.Helper()
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Violations
}

func paths(vs []apperr.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Path
	}
	return out
}

func TestParseFormDefinition_Valid(t *testing.T) {
	def, err := ParseFormDefinition([]byte(`{
		"title": "Test Form",
		"sections": [{
			"name": "Personal Info",
			"fields": [
				{"label": "Full Name", "type": "text"},
				{"label": "Age", "type": "number"}
			]
		}]
	}`))
	require.NoError(t, err)
	require.NotNil(t, def.Title)
	assert.Equal(t, "Test Form", *def.Title)
	require.Len(t, def.Sections, 1)
	assert.Len(t, def.Sections[0].Fields, 2)
}

func TestParseFormDefinition_WithoutTitle(t *testing.T) {
	def, err := ParseFormDefinition([]byte(`{"sections":[{"name":"S","fields":[{"label":"L","type":"text"}]}]}`))
	require.NoError(t, err)
	assert.Nil(t, def.Title)
}

func TestParseFormDefinition_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		path    string
		message string
	}{
		{
			name:    "no sections",
			body:    `{"title":"T","sections":[]}`,
			path:    "sections",
			message: "sections must contain at least 1 item",
		},
		{
			name:    "missing sections",
			body:    `{"title":"T"}`,
			path:    "sections",
			message: "sections is required",
		},
		{
			name:    "section without fields",
			body:    `{"sections":[{"name":"Empty Section","fields":[]}]}`,
			path:    "sections[0].fields",
			message: "sections[0].fields must contain at least 1 item",
		},
		{
			name:    "invalid field type",
			body:    `{"sections":[{"name":"S","fields":[{"label":"L","type":"invalid-type"}]}]}`,
			path:    "sections[0].fields[0].type",
			message: "sections[0].fields[0].type must be one of [text, number]",
		},
		{
			name:    "empty title",
			body:    `{"title":"","sections":[{"name":"S","fields":[{"label":"L","type":"text"}]}]}`,
			path:    "title",
			message: "title length must be at least 1 character long",
		},
		{
			name:    "long title",
			body:    `{"title":"` + strings.Repeat("t", 201) + `","sections":[{"name":"S","fields":[{"label":"L","type":"text"}]}]}`,
			path:    "title",
			message: "title length must be at most 200 characters long",
		},
		{
			name:    "long section name",
			body:    `{"sections":[{"name":"` + strings.Repeat("n", 101) + `","fields":[{"label":"L","type":"text"}]}]}`,
			path:    "sections[0].name",
			message: "sections[0].name length must be at most 100 characters long",
		},
		{
			name:    "missing label",
			body:    `{"sections":[{"name":"S","fields":[{"type":"text"}]}]}`,
			path:    "sections[0].fields[0].label",
			message: "sections[0].fields[0].label is required",
		},
		{
			name:    "wrong type",
			body:    `{"sections":"nope"}`,
			path:    "sections",
			message: "sections must be of type array",
		},
		{
			name:    "not json",
			body:    `{sections`,
			path:    "body",
			message: "body must be valid JSON",
		},
		{
			name:    "empty body",
			body:    ``,
			path:    "body",
			message: "body is required",
		},
		{
			name:    "null body",
			body:    `null`,
			path:    "body",
			message: "body must be a JSON object",
		},
		{
			name:    "trailing data",
			body:    `{"sections":[]} {}`,
			path:    "body",
			message: "body must contain a single JSON object",
		},
		{
			name:    "array body",
			body:    `[]`,
			path:    "body",
			message: "body must be a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFormDefinition([]byte(tt.body))
			vs := violations(t, err)
			require.Len(t, vs, 1, "violations: %v", vs)
			assert.Equal(t, tt.path, vs[0].Path)
			assert.Equal(t, tt.message, vs[0].Message)
		})
	}
}

func TestParseFormDefinition_ShapeAndRuleViolationsTogether(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		paths []string
	}{
		{
			name:  "unknown key with empty sections",
			body:  `{"sections":[],"color":"red"}`,
			paths: []string{"color", "sections"},
		},
		{
			name:  "several unknown keys",
			body:  `{"sections":[{"name":"","fields":[]}],"a":1,"b":2}`,
			paths: []string{"a", "b", "sections[0].name", "sections[0].fields"},
		},
		{
			name:  "wrong type next to empty title",
			body:  `{"title":"","sections":"nope"}`,
			paths: []string{"title", "sections"},
		},
		{
			name:  "nested unknown key and wrong type",
			body:  `{"sections":[{"name":"S","extra":true,"fields":[{"label":7,"type":"text"}]}]}`,
			paths: []string{"sections[0].extra", "sections[0].fields[0].label"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFormDefinition([]byte(tt.body))
			vs := violations(t, err)
			assert.ElementsMatch(t, tt.paths, paths(vs), "violations: %v", vs)
		})
	}
}

func TestParseFormDefinition_ViolationMessages(t *testing.T) {
	_, err := ParseFormDefinition([]byte(`{"sections":[{"name":"S","extra":1,"fields":[{"label":7,"type":"text"}]}],"color":"red"}`))
	vs := violations(t, err)

	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.Message
	}
	assert.ElementsMatch(t, []string{
		`"color" is not allowed`,
		`"sections[0].extra" is not allowed`,
		"sections[0].fields[0].label must be of type string",
	}, msgs)
}

func TestParseFormDefinition_CaseInsensitiveKeys(t *testing.T) {
	def, err := ParseFormDefinition([]byte(`{"Sections":[{"Name":"S","fields":[{"label":"L","type":"text"}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "S", def.Sections[0].Name)
}

func TestValidateFormDefinition_ReportsEveryViolation(t *testing.T) {
	long := strings.Repeat("x", 201)
	def := &models.FormDefinition{
		Title: &long,
		Sections: []models.SectionDefinition{
			{Name: "", Fields: []models.FieldDefinition{{Label: "ok", Type: "date"}}},
			{Name: "Second", Fields: []models.FieldDefinition{}},
		},
	}

	_, err := ValidateFormDefinition(def)
	vs := violations(t, err)
	assert.ElementsMatch(t, []string{
		"title",
		"sections[0].name",
		"sections[0].fields[0].type",
		"sections[1].fields",
	}, paths(vs))
}

func TestValidateFormDefinition_Nil(t *testing.T) {
	_, err := ValidateFormDefinition(nil)
	vs := violations(t, err)
	assert.Equal(t, "body", vs[0].Path)
}

const fieldA = "6f1c2a9e-3b4d-4c5e-8f70-112233445566"

func TestParseSubmission(t *testing.T) {
	t.Run("empty string value allowed", func(t *testing.T) {
		req, err := ParseSubmission([]byte(`{"values":[{"fieldId":"` + fieldA + `","value":""}]}`))
		require.NoError(t, err)
		require.Len(t, req.Values, 1)
		require.NotNil(t, req.Values[0].Value)
		assert.Equal(t, "", *req.Values[0].Value)
	})

	t.Run("uppercase guid allowed", func(t *testing.T) {
		_, err := ParseSubmission([]byte(`{"values":[{"fieldId":"` + strings.ToUpper(fieldA) + `","value":"x"}]}`))
		require.NoError(t, err)
	})

	t.Run("zero values", func(t *testing.T) {
		_, err := ParseSubmission([]byte(`{"values":[]}`))
		vs := violations(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "values must contain at least 1 item", vs[0].Message)
	})

	t.Run("non uuid field id", func(t *testing.T) {
		_, err := ParseSubmission([]byte(`{"values":[{"fieldId":"field-1","value":"x"}]}`))
		vs := violations(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "values[0].fieldId", vs[0].Path)
		assert.Equal(t, "values[0].fieldId must be a valid GUID", vs[0].Message)
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := ParseSubmission([]byte(`{"values":[{"fieldId":"` + fieldA + `"}]}`))
		vs := violations(t, err)
		require.Len(t, vs, 1)
		assert.Equal(t, "values[0].value is required", vs[0].Message)
	})

	t.Run("numeric value rejected", func(t *testing.T) {
		_, err := ParseSubmission([]byte(`{"values":[{"fieldId":"` + fieldA + `","value":42}]}`))
		vs := violations(t, err)
		require.Len(t, vs, 1, "violations: %v", vs)
		assert.Equal(t, "values[0].value", vs[0].Path)
		assert.Equal(t, "values[0].value must be of type string", vs[0].Message)
	})

	t.Run("type mismatch keeps other violations", func(t *testing.T) {
		_, err := ParseSubmission([]byte(`{"values":[{"fieldId":"bad","value":42},{"fieldId":"also-bad","value":"x"}]}`))
		vs := violations(t, err)
		assert.ElementsMatch(t, []string{"values[0].value", "values[0].fieldId", "values[1].fieldId"}, paths(vs))
	})

	t.Run("mismatch at index names that element", func(t *testing.T) {
		_, err := ParseSubmission([]byte(`{"values":[{"fieldId":"` + fieldA + `","value":"ok"},{"fieldId":"` + fieldA + `","value":false}]}`))
		vs := violations(t, err)
		require.Len(t, vs, 1, "violations: %v", vs)
		assert.Equal(t, "values[1].value", vs[0].Path)
	})

	t.Run("every violation reported", func(t *testing.T) {
		_, err := ParseSubmission([]byte(`{"values":[{"fieldId":"bad","value":"x"},{"fieldId":"` + fieldA + `"},{"value":"y"}]}`))
		vs := violations(t, err)
		assert.ElementsMatch(t, []string{"values[0].fieldId", "values[1].value", "values[2].fieldId"}, paths(vs))
	})
}

func TestParseCredentials(t *testing.T) {
	c, err := ParseCredentials([]byte(`{"username":"admin","password":"secret1"}`))
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Username)

	_, err = ParseCredentials([]byte(`{"username":"ab","password":"123"}`))
	vs := violations(t, err)
	assert.ElementsMatch(t, []string{"username", "password"}, paths(vs))

	_, err = ParseCredentials([]byte(`{"username":"` + strings.Repeat("u", 51) + `","password":"secret1"}`))
	vs = violations(t, err)
	assert.Equal(t, "username length must be at most 50 characters long", vs[0].Message)
}
