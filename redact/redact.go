// Package redact masks credential-shaped values before file content is persisted.
package redact

import (
	"regexp"
	"strings"
)

// Mask replaces every redacted value.
const Mask = "***"

// secretKey matches identifiers that end with a recognised secret name,
// e.g. password, DB_PASSWORD, github_token, AWS_SECRET_ACCESS_KEY.
const secretKey = `[\w.-]*?(?:password|passwd|pwd|secret|token|api[_-]?key|apikey|private[_-]?key|secret[_-]?key|access[_-]?key)`

var (
	// Authorization: Bearer <token>
	bearerPattern = regexp.MustCompile(`(?i)(authorization["']?[ \t]*[:=][ \t]*["']?bearer[ \t]+)([^\s"',;]+)`)

	// "api_key": "value"
	jsonPattern = regexp.MustCompile(`(?i)("` + secretKey + `"[ \t]*:[ \t]*")([^"\n]*)(")`)

	// password=value, password: value, TOKEN = "value"
	// The value may not start with '=' so comparisons like `password == x` stay intact.
	assignPattern = regexp.MustCompile(`(?i)\b(` + secretKey + `[ \t]*[:=][ \t]*)("[^"\n]*"|'[^'\n]*'|[^\s"',;=][^\s"',;]*)`)
)

// Text returns text with secret values replaced by Mask. Only the value is
// replaced; key, separator, quotes and the rest of the line are kept verbatim.
// Values never span lines, so the line count is unchanged.
func Text(text string) string {
	if text == "" {
		return text
	}
	text = maskGroup(bearerPattern, text, 2)
	text = maskGroup(jsonPattern, text, 2)
	text = maskGroup(assignPattern, text, 2)
	return text
}

// maskGroup replaces submatch group of every match of re with Mask.
// Quoted values keep their quotes.
func maskGroup(re *regexp.Regexp, text string, group int) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text))
	last := 0
	for _, m := range matches {
		start, end := m[2*group], m[2*group+1]
		if start < 0 {
			continue
		}
		builder.WriteString(text[last:start])
		builder.WriteString(maskValue(text[start:end]))
		last = end
	}
	builder.WriteString(text[last:])
	return builder.String()
}

func maskValue(value string) string {
	if len(value) >= 2 {
		quote := value[0]
		if (quote == '"' || quote == '\'') && value[len(value)-1] == quote {
			return string(quote) + Mask + string(quote)
		}
	}
	return Mask
}
