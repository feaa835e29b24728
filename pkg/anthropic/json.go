package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoJSON is returned when a response contains no JSON object.
var ErrNoJSON = eris.New("anthropic: no JSON object in response")

// ExtractJSON returns the first balanced top-level JSON object in text.
// Models often wrap JSON in prose or ```json fences.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text[start:]); end > 0 {
			candidate := text[start : start+end]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

// DecodeJSON extracts the first JSON object in the response text and decodes
// it into v.
func DecodeJSON(resp *MessageResponse, v any) error {
	raw, err := ExtractJSON(resp.Text())
	if err != nil {
		return err
	}
	return eris.Wrap(json.Unmarshal([]byte(raw), v), "anthropic: decode JSON response")
}

// matchBrace returns the length of the brace-balanced prefix of s (which
// starts with '{'), honouring string literals, or -1.
func matchBrace(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
