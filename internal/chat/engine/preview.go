package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// Best-effort extraction of a partial HTML document from the incomplete
// JSON arguments of a streaming write_document call. The output is only
// ever used for progressive UI feedback; the persisted content always comes
// from the fully parsed arguments after the stream finishes. The parsing
// here is deliberately naive (string scan, no HTML parser) and may emit
// fragments with unterminated tags.

var (
	styleBlockRe     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	inlineStyleRe    = regexp.MustCompile(`(?i)\s+style\s*=\s*("[^"]*"|'[^']*')`)
	documentNameRe   = regexp.MustCompile(`"documentName"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	documentStepIDRe = regexp.MustCompile(`"stepId"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// extractDocumentPreview pulls a displayable HTML fragment out of a partial
// arguments string: everything after the "content" key up to the last
// completed '>' seen so far, JSON-unescaped and style-stripped.
func extractDocumentPreview(arguments string) (string, bool) {
	start := strings.Index(arguments, `"content":"`)
	offset := len(`"content":"`)
	if start < 0 {
		start = strings.Index(arguments, `"content": "`)
		offset = len(`"content": "`)
	}
	if start < 0 {
		return "", false
	}

	fragment := arguments[start+offset:]

	end := strings.LastIndex(fragment, ">")
	if end < 0 {
		return "", false
	}
	fragment = fragment[:end+1]

	html := unescapeJSONFragment(fragment)
	html = styleBlockRe.ReplaceAllString(html, "")
	html = inlineStyleRe.ReplaceAllString(html, "")

	if html == "" {
		return "", false
	}
	return html, true
}

// extractDocumentName returns the documentName value from a possibly
// incomplete arguments string
func extractDocumentName(arguments string) string {
	if m := documentNameRe.FindStringSubmatch(arguments); m != nil {
		return unescapeJSONFragment(m[1])
	}
	return ""
}

// extractDocumentStepID returns the stepId value from a possibly incomplete
// arguments string
func extractDocumentStepID(arguments string) string {
	if m := documentStepIDRe.FindStringSubmatch(arguments); m != nil {
		return unescapeJSONFragment(m[1])
	}
	return ""
}

// unescapeJSONFragment undoes JSON string escaping on a fragment that is
// not necessarily a complete JSON string. Unknown or truncated escape
// sequences are passed through as-is.
func unescapeJSONFragment(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}

		switch s[i+1] {
		case '"':
			sb.WriteByte('"')
			i++
		case '\\':
			sb.WriteByte('\\')
			i++
		case '/':
			sb.WriteByte('/')
			i++
		case 'n':
			sb.WriteByte('\n')
			i++
		case 't':
			sb.WriteByte('\t')
			i++
		case 'r':
			sb.WriteByte('\r')
			i++
		case 'u':
			if i+5 < len(s) {
				if code, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					sb.WriteRune(rune(code))
					i += 5
					continue
				}
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}
