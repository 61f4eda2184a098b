package routegen

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Upstream responses are supposed to be bare JSON but routinely arrive
// wrapped in markdown fences, sprinkled with trailing commas or annotated
// with comments. The sanitizer repairs those artifacts; it never invents
// content, and when the payload stays unparseable the raw text is handed
// back to the caller with ok=false.

const trailingCommaPasses = 5

var blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)

// CleanResponse strips markdown code-block markers and surrounding prose
// from a raw model response.
func CleanResponse(response string) string {
	response = strings.TrimSpace(response)

	// Remove markdown code block markers
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}

	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}

	return strings.TrimSpace(response)
}

// SanitizeJSON runs the full repair pipeline over a raw response and returns
// the parseable JSON payload. When no repair produces valid JSON the cleaned
// text is returned with ok=false so callers can decide what to degrade.
func SanitizeJSON(raw string) (json.RawMessage, bool) {
	cleaned := CleanResponse(raw)

	candidate := stripComments(stripTrailingCommas(cleaned))
	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), true
	}

	// The model sometimes wraps the object in explanatory text. Extract the
	// substring between the first { and the last } and repair once more.
	firstBrace := strings.Index(cleaned, "{")
	lastBrace := strings.LastIndex(cleaned, "}")
	if firstBrace == -1 || lastBrace <= firstBrace {
		return json.RawMessage(cleaned), false
	}

	candidate = stripComments(stripTrailingCommas(cleaned[firstBrace : lastBrace+1]))
	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), true
	}

	return json.RawMessage(cleaned), false
}

// stripTrailingCommas removes commas that directly precede a closing bracket
// or brace. Runs iteratively because a removal can expose another trailing
// comma; capped so malformed input cannot loop forever.
func stripTrailingCommas(s string) string {
	for i := 0; i < trailingCommaPasses; i++ {
		next := stripTrailingCommasOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// stripTrailingCommasOnce walks the input with the same string tracking as
// the comment stripper, so a literal ",]" or ",}" inside a string value is
// left alone.
func stripTrailingCommasOnce(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\r' || s[j] == '\n') {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// stripComments removes // line comments and /* */ block comments. Line
// comments are stripped with a small scanner rather than a regex so that
// URLs inside string values ("https://...") survive.
func stripComments(s string) string {
	s = blockCommentRe.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			continue
		}
		if ch == '/' && i+1 < len(s) && s[i+1] == '/' {
			// Skip to end of line
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
