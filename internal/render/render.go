// Package render substitutes {{category.field}} placeholders from entity
// data into template bodies. Rendering is best-effort: unknown categories or
// fields resolve to the empty string. The stricter companion Validate is used
// only when an operator saves a template.
package render

import "regexp"

// Bundle holds the flat field maps a template is rendered against, keyed by
// category (customer, agreement, vehicle).
type Bundle map[string]map[string]string

var tokenRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\.([a-zA-Z_]+)\s*\}\}`)

// Render replaces every {{category.field}} token in body with the matching
// bundle value, or the empty string when the category or field is absent.
// Pure function: no I/O, deterministic, never fails.
func Render(body string, bundle Bundle) string {
	return tokenRe.ReplaceAllStringFunc(body, func(tok string) string {
		m := tokenRe.FindStringSubmatch(tok)
		fields, ok := bundle[m[1]]
		if !ok {
			return ""
		}
		return fields[m[2]]
	})
}

// Token is one placeholder occurrence in a template body.
type Token struct {
	Raw      string
	Category string
	Field    string
}

// Tokens returns every placeholder in body, in order of appearance.
func Tokens(body string) []Token {
	matches := tokenRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, Token{Raw: m[0], Category: m[1], Field: m[2]})
	}
	return tokens
}
