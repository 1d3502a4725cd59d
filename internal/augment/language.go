package augment

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName expands a BCP 47 tag such as "fr" or "pt-BR" into its English
// name. Anything else, including plain names like "Spanish", is returned
// trimmed but otherwise untouched.
func LanguageName(target string) string {
	s := strings.TrimSpace(target)
	if s == "" || strings.ContainsAny(s, " \t") {
		return s
	}

	tag, err := language.Parse(s)
	if err != nil {
		return s
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return s
}
