// Package match turns literal error message templates into matchers.
//
// Error messages returned by the Docker daemon contain characters that are
// significant to regular expressions, for example the parenthesized error
// code in "(InternalError) volume creation failed".  Templates are escaped
// before compilation so they only ever match themselves.
package match

import (
	"regexp"
	"strings"
)

// Metacharacters is the set of characters escaped by EscapeForLiteralMatch.
// It is the complete set of characters with special meaning in RE2 syntax
// outside of a character class.
const Metacharacters = `\.+*?()|[]{}^$`

// EscapeForLiteralMatch returns a regular expression that matches text
// literally by prefixing every metacharacter with a backslash.
func EscapeForLiteralMatch(text string) string {
	var b strings.Builder

	b.Grow(len(text))

	for _, r := range text {
		if strings.ContainsRune(Metacharacters, r) {
			b.WriteByte('\\')
		}

		b.WriteRune(r)
	}

	return b.String()
}

// Compile returns a regular expression that matches the template literally.
func Compile(template string) *regexp.Regexp {
	// An escaped template is always a valid expression.
	return regexp.MustCompile(EscapeForLiteralMatch(template))
}

// Find searches text for the template.  When found the matched substring is
// returned, otherwise the whole of text is returned.  Callers compare the
// result against the template, so a mismatch reports the full text that was
// searched rather than a bare "no match".
func Find(text, template string) string {
	if matched := Compile(template).FindString(text); matched != "" {
		return matched
	}

	return text
}
