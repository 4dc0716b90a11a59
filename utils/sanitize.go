package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans operator-supplied HTML before it reaches the browser.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
