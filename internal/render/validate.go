package render

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTemplate marks author-time validation failures so callers can
// tell a rejected template apart from a storage error.
var ErrInvalidTemplate = errors.New("invalid template variables")

// allowedFields is the author-time allow-list: a template may only reference
// these categories and fields. Send-time rendering stays lenient regardless.
var allowedFields = map[string][]string{
	"customer": {
		"full_name",
		"email",
		"phone_number",
		"address",
		"driver_license",
	},
	"agreement": {
		"agreement_number",
		"start_date",
		"end_date",
		"rent_amount",
		"agreement_duration",
	},
	"vehicle": {
		"make",
		"model",
		"year",
		"license_plate",
		"color",
	},
}

// AllowedFields returns a copy of the declared field list for a category,
// or nil for an unknown category.
func AllowedFields(category string) []string {
	fields, ok := allowedFields[category]
	if !ok {
		return nil
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// Validate rejects a template body that references any category outside the
// allow-list or any field not declared for its category. The returned error
// names every offending token so the author can fix them in one pass.
func Validate(body string) error {
	var invalid []string

	for _, tok := range Tokens(body) {
		fields, ok := allowedFields[tok.Category]
		if !ok {
			invalid = append(invalid, tok.Raw)
			continue
		}
		if !contains(fields, tok.Field) {
			invalid = append(invalid, tok.Raw)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(invalid, ", "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
