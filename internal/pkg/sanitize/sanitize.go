// Package sanitize cleans untrusted input before it reaches logs, search
// backends or the corpus.
package sanitize

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxQueryLength bounds a retrieval query after cleaning.
const MaxQueryLength = 512

// MaxIDLength bounds a document identifier.
const MaxIDLength = 256

// ForLog makes s safe to put in a log line: newlines are escaped, other
// control characters dropped and the result truncated to 200 runes.
func ForLog(s string) string {
	return ForLogWithLength(s, 200)
}

// ForLogWithLength is ForLog with a custom maximum length.
func ForLogWithLength(s string, maxLen int) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(min(len(s), maxLen+10))

	count := 0
	for _, r := range s {
		if count >= maxLen {
			b.WriteString("...")
			break
		}

		switch r {
		case '\n':
			b.WriteString("\\n")
			count += 2
		case '\r':
			b.WriteString("\\r")
			count += 2
		case '\t':
			b.WriteString("\\t")
			count += 2
		default:
			if !unicode.IsControl(r) {
				b.WriteRune(r)
				count++
			}
		}
	}

	return b.String()
}

// Query cleans a retrieval query: control characters are removed, runs of
// whitespace collapse to one space and the result is cut at MaxQueryLength
// runes.
func Query(query string) string {
	if query == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, query)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if utf8.RuneCountInString(cleaned) > MaxQueryLength {
		cleaned = string([]rune(cleaned)[:MaxQueryLength])
	}
	return cleaned
}

// Queries cleans every query and drops the duplicates that cleaning
// produces, keeping first occurrences. An empty query survives once.
func Queries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = Query(q)
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

// IDError describes an unusable document identifier.
type IDError struct {
	Reason string
	ID     string
}

func (e *IDError) Error() string {
	return e.Reason + ": " + e.ID
}

// ValidateID checks a document identifier is printable UTF-8 without
// surrounding whitespace and at most MaxIDLength bytes. Identifiers end up
// in CSV cells, Redis hash fields and Qdrant payloads.
func ValidateID(id string) error {
	switch {
	case !utf8.ValidString(id):
		return &IDError{Reason: "document id is not valid UTF-8", ID: ForLog(id)}
	case len(id) > MaxIDLength:
		return &IDError{Reason: "document id exceeds maximum length", ID: ForLogWithLength(id, 50)}
	case strings.TrimSpace(id) != id:
		return &IDError{Reason: "document id has surrounding whitespace", ID: ForLog(id)}
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return &IDError{Reason: "document id contains control characters", ID: ForLog(id)}
		}
	}
	return nil
}

// MaskURL hides the password of a connection URL so it can be logged.
// Unparseable input is replaced entirely.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid url]"
	}
	if u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
