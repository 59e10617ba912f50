// Package validation checks form definitions, submissions and login
// credentials against their structural rules.
//
// Rules live as validator tags on the payload types in the models package.
// A failed check never stops at the first problem: the returned
// *apperr.ValidationError lists every broken rule with its field path.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/parisxmas/OxiDB/OxiForms/internal/apperr"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

var guidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// Canonical 8-4-4-4-12 form only; uuid.Parse would also take URNs and braces.
	if err := v.RegisterValidation("guid", func(fl validator.FieldLevel) bool {
		return guidPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateFormDefinition checks def and returns it unchanged when valid.
func ValidateFormDefinition(def *models.FormDefinition) (*models.FormDefinition, error) {
	if def == nil {
		return nil, bodyRequired()
	}
	if err := check(def); err != nil {
		return nil, err
	}
	return def, nil
}

// ValidateSubmission checks req and returns it unchanged when valid.
// It does not know which fields the target form has; see access.
func ValidateSubmission(req *models.SubmissionRequest) (*models.SubmissionRequest, error) {
	if req == nil {
		return nil, bodyRequired()
	}
	if err := check(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ValidateCredentials checks the shape of a login payload.
func ValidateCredentials(c *models.Credentials) (*models.Credentials, error) {
	if c == nil {
		return nil, bodyRequired()
	}
	if err := check(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseFormDefinition decodes a JSON body and validates it.
func ParseFormDefinition(body []byte) (*models.FormDefinition, error) {
	var def models.FormDefinition
	if err := parse(body, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseSubmission decodes a JSON body and validates it.
func ParseSubmission(body []byte) (*models.SubmissionRequest, error) {
	var req models.SubmissionRequest
	if err := parse(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ParseCredentials decodes a JSON body and validates it.
func ParseCredentials(body []byte) (*models.Credentials, error) {
	var c models.Credentials
	if err := parse(body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// parse decodes body into dst and reports shape problems (unknown keys,
// mismatched types) together with every broken validator rule.
func parse(body []byte, dst any) error {
	shape, err := decode(body, dst)
	if err != nil {
		return err
	}
	rules, err := ruleViolations(dst)
	if err != nil {
		return err
	}
	vs := append(shape, uncovered(rules, shape)...)
	if len(vs) == 0 {
		return nil
	}
	return &apperr.ValidationError{Violations: vs}
}

func check(payload any) error {
	vs, err := ruleViolations(payload)
	if err != nil {
		return err
	}
	if len(vs) == 0 {
		return nil
	}
	return &apperr.ValidationError{Violations: vs}
}

func ruleViolations(payload any) ([]apperr.Violation, error) {
	err := validate.Struct(payload)
	if err == nil {
		return nil, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validate: %w", err)
	}
	out := make([]apperr.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := pathOf(fe)
		out = append(out, apperr.Violation{
			Path:    path,
			Message: describe(path, fe),
		})
	}
	return out, nil
}

// uncovered drops rule violations at or below a path that already failed
// its type check; a mistyped value is left zero and would otherwise also
// read as missing.
func uncovered(rules, shape []apperr.Violation) []apperr.Violation {
	out := rules[:0]
	for _, r := range rules {
		hidden := false
		for _, s := range shape {
			if r.Path == s.Path || strings.HasPrefix(r.Path, s.Path+".") || strings.HasPrefix(r.Path, s.Path+"[") {
				hidden = true
				break
			}
		}
		if !hidden {
			out = append(out, r)
		}
	}
	return out
}

// pathOf drops the root type name from the namespace:
// "FormDefinition.sections[0].name" becomes "sections[0].name".
func pathOf(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(path string, fe validator.FieldError) string {
	collection := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "min":
		if collection {
			return fmt.Sprintf("%s must contain at least %s %s", path, fe.Param(), plural(fe.Param(), "item"))
		}
		return fmt.Sprintf("%s length must be at least %s %s long", path, fe.Param(), plural(fe.Param(), "character"))
	case "max":
		if collection {
			return fmt.Sprintf("%s must contain at most %s %s", path, fe.Param(), plural(fe.Param(), "item"))
		}
		return fmt.Sprintf("%s length must be at most %s %s long", path, fe.Param(), plural(fe.Param(), "character"))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", path, strings.Join(strings.Fields(fe.Param()), ", "))
	case "guid":
		return path + " must be a valid GUID"
	default:
		return fmt.Sprintf("%s failed rule %q", path, fe.Tag())
	}
}

func plural(n, word string) string {
	if n == "1" {
		return word
	}
	return word + "s"
}

// decode fails only when body is not a single JSON object. Unknown keys
// and mismatched types come back as violations; matching values are
// decoded into dst as usual.
func decode(body []byte, dst any) ([]apperr.Violation, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, bodyRequired()
		}
		return nil, single("body", "body must be valid JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, single("body", "body must contain a single JSON object")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, single("body", "body must be a JSON object")
	}

	var vs []apperr.Violation
	walk(reflect.TypeOf(dst), obj, "", &vs)

	// Mistyped values were reported by walk and stay zero in dst.
	var typeErr *json.UnmarshalTypeError
	if err := json.Unmarshal(body, dst); err != nil && !errors.As(err, &typeErr) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return vs, nil
}

// walk checks v against t, appending a violation for each unknown object
// key and each value whose JSON type does not fit. Paths use the same
// "sections[0].name" form as validator violations.
func walk(t reflect.Type, v any, path string, out *[]apperr.Violation) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if v == nil {
		return
	}
	if !fits(t, v) {
		*out = append(*out, apperr.Violation{
			Path:    path,
			Message: fmt.Sprintf("%s must be of type %s", path, jsonKind(t)),
		})
		return
	}
	switch t.Kind() {
	case reflect.Struct:
		obj := v.(map[string]any)
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			f, name, ok := fieldFor(t, k)
			if !ok {
				p := join(path, k)
				*out = append(*out, apperr.Violation{Path: p, Message: fmt.Sprintf("%q is not allowed", p)})
				continue
			}
			walk(f.Type, obj[k], join(path, name), out)
		}
	case reflect.Slice, reflect.Array:
		for i, elem := range v.([]any) {
			walk(t.Elem(), elem, fmt.Sprintf("%s[%d]", path, i), out)
		}
	}
}

func fits(t reflect.Type, v any) bool {
	switch v.(type) {
	case map[string]any:
		return t.Kind() == reflect.Struct || t.Kind() == reflect.Map || t.Kind() == reflect.Interface
	case []any:
		return t.Kind() == reflect.Slice || t.Kind() == reflect.Array || t.Kind() == reflect.Interface
	case string:
		return t.Kind() == reflect.String || t.Kind() == reflect.Interface
	case bool:
		return t.Kind() == reflect.Bool || t.Kind() == reflect.Interface
	case json.Number:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.Interface:
			return true
		}
	}
	return false
}

// fieldFor resolves a JSON key to a struct field the way encoding/json
// does: exact tag name first, then a case-insensitive match.
func fieldFor(t reflect.Type, key string) (reflect.StructField, string, bool) {
	var (
		fold     reflect.StructField
		foldName string
		found    bool
	)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if name == key {
			return f, name, true
		}
		if !found && strings.EqualFold(name, key) {
			fold, foldName, found = f, name, true
		}
	}
	return fold, foldName, found
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Bool:
		return "boolean"
	default:
		return "number"
	}
}

func single(path, msg string) *apperr.ValidationError {
	return &apperr.ValidationError{Violations: []apperr.Violation{{Path: path, Message: msg}}}
}

func bodyRequired() *apperr.ValidationError {
	return single("body", "body is required")
}
