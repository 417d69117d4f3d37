package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// StripTags removes every HTML element and returns plain text, used for single-line fields like titles and names.
func StripTags(input string) string {
	return html.UnescapeString(stripper.Sanitize(input))
}
