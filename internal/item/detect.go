package item

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

var (
	hexColorPattern  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColorPattern = regexp.MustCompile(`(?i)^(?:rgba?|hsla?)\(\s*[\d.]+%?\s*(?:,\s*|\s+)[\d.]+%?\s*(?:,\s*|\s+)[\d.]+%?\s*(?:(?:,|/)\s*[\d.]+%?\s*)?\)$`)
	phonePattern     = regexp.MustCompile(`^\+?\(?[0-9][0-9 ().\-]{5,}[0-9]$`)
	datePattern      = regexp.MustCompile(`^\d{4}[-.]\d{1,2}[-.]\d{1,2}$|^\d{1,2}[-.]\d{1,2}[-.]\d{4}$`)

	// Tokens that rarely show up in prose but are common in source code
	codeMarkers = []string{
		"func ", "def ", "class ", "import ", "package ", "return ", "const ",
		"let ", "var ", "=> ", "#include", "public static", "SELECT ", "fn ",
		"console.log", "println", "printf(", "</", "/>",
	}
)

// Detect guesses the type of captured text
func Detect(text string) Type {
	s := strings.TrimSpace(text)
	if s == "" {
		return TypeText
	}

	if !strings.ContainsAny(s, " \t\n") {
		if isLink(s) {
			return TypeLink
		}
		if isEmail(s) {
			return TypeEmail
		}
	}
	if isColor(s) {
		return TypeColor
	}
	if isPhone(s) {
		return TypePhone
	}
	if looksLikeCode(s) {
		return TypeCode
	}
	return TypeText
}

func isLink(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return u.Host != ""
	default:
		return false
	}
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// ParseAddress accepts "Name <addr>" forms; only bare addresses count
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

func isColor(s string) bool {
	return hexColorPattern.MatchString(s) || funcColorPattern.MatchString(s)
}

func isPhone(s string) bool {
	if !phonePattern.MatchString(s) || datePattern.MatchString(s) {
		return false
	}
	digits, separators := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r != '+':
			separators++
		}
	}
	// Bare integers need an international prefix to count
	if separators == 0 && !strings.HasPrefix(s, "+") {
		return false
	}
	// A lone dot is a decimal number
	if separators == 1 && strings.Count(s, ".") == 1 {
		return false
	}
	return digits >= 7 && digits <= 15
}

func looksLikeCode(s string) bool {
	score := 0
	for _, marker := range codeMarkers {
		if strings.Contains(s, marker) {
			score++
		}
	}
	if strings.Contains(s, "{") && strings.Contains(s, "}") {
		score++
	}

	lines := strings.Split(s, "\n")
	if len(lines) > 1 {
		terminated := 0
		indented := 0
		for _, line := range lines {
			trimmed := strings.TrimRight(line, " \t")
			if strings.HasSuffix(trimmed, ";") || strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, "}") {
				terminated++
			}
			if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ") {
				indented++
			}
		}
		if terminated*2 >= len(lines) {
			score++
		}
		if indented > 0 {
			score++
		}
	}

	return score >= 2
}
