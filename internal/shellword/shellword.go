// Package shellword decodes single-quoted shell text as printed by build tools.
//
// A token is either bare (it ends at the next space) or single-quoted. Inside a
// quoted token the sequence '\'' closes the quote, emits a literal quote and
// reopens the quote, which is how POSIX shells escape a quote inside quotes.
package shellword

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMalformed is returned when the text cannot be decoded.
	ErrMalformed = errors.New("malformed shell text")
	// ErrInvalidKey is returned when an assignment key is not [A-Za-z0-9_]+.
	ErrInvalidKey = errors.New("invalid assignment key")
)

const escapedQuote = `\''`

// Assignment is one decoded key=value pair.
type Assignment struct {
	Key   string
	Value string
}

type scanner struct {
	s   string
	pos int
}

func (sc *scanner) done() bool {
	return sc.pos >= len(sc.s)
}

func (sc *scanner) skipSpaces() {
	for !sc.done() && sc.s[sc.pos] == ' ' {
		sc.pos++
	}
}

// value decodes one token starting at the current position and stops at the
// separating space (not consumed) or at end of input.
func (sc *scanner) value() (string, error) {
	if sc.done() || sc.s[sc.pos] != '\'' {
		end := strings.IndexByte(sc.s[sc.pos:], ' ')
		if end < 0 {
			end = len(sc.s) - sc.pos
		}
		v := sc.s[sc.pos : sc.pos+end]
		sc.pos += end
		return v, nil
	}
	start := sc.pos
	var b strings.Builder
	sc.pos++
	for {
		end := strings.IndexByte(sc.s[sc.pos:], '\'')
		if end < 0 {
			return "", errors.Wrapf(ErrMalformed, "unclosed quote at offset %d in %q", start, sc.s)
		}
		chunk := sc.s[sc.pos : sc.pos+end]
		sc.pos += end + 1
		// 'it\'''s' is accepted as a spelling of 'it'\''s'.
		if strings.HasSuffix(chunk, `\`) && strings.HasPrefix(sc.s[sc.pos:], "''") {
			b.WriteString(chunk[:len(chunk)-1])
			b.WriteByte('\'')
			sc.pos += 2
			continue
		}
		b.WriteString(chunk)
		if sc.done() || sc.s[sc.pos] == ' ' {
			return b.String(), nil
		}
		if !strings.HasPrefix(sc.s[sc.pos:], escapedQuote) {
			return "", errors.Wrapf(ErrMalformed, "expected separator at offset %d in %q", sc.pos, sc.s)
		}
		b.WriteByte('\'')
		sc.pos += len(escapedQuote)
	}
}

func (sc *scanner) key() (string, error) {
	end := strings.IndexByte(sc.s[sc.pos:], '=')
	if end < 0 {
		return "", errors.Wrapf(ErrMalformed, "no \"=\" in %q", sc.s[sc.pos:])
	}
	k := sc.s[sc.pos : sc.pos+end]
	if err := ValidateKey(k); err != nil {
		return "", err
	}
	sc.pos += end + 1
	return k, nil
}

// ValidateKey reports whether k is a non-empty run of ASCII letters, digits
// and underscores.
func ValidateKey(k string) error {
	if k == "" {
		return errors.Wrap(ErrInvalidKey, "empty key")
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			continue
		}
		return errors.Wrapf(ErrInvalidKey, "%q", k)
	}
	return nil
}

// Split decodes every token of line.
func Split(line string) ([]string, error) {
	sc := &scanner{s: line}
	var tokens []string
	for sc.skipSpaces(); !sc.done(); sc.skipSpaces() {
		v, err := sc.value()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, v)
	}
	return tokens, nil
}

// ParseAssignments decodes a space-joined sequence of key=value assignments,
// preserving their order.
func ParseAssignments(line string) ([]Assignment, error) {
	sc := &scanner{s: line}
	var result []Assignment
	for sc.skipSpaces(); !sc.done(); sc.skipSpaces() {
		k, err := sc.key()
		if err != nil {
			return nil, err
		}
		v, err := sc.value()
		if err != nil {
			return nil, err
		}
		result = append(result, Assignment{Key: k, Value: v})
	}
	return result, nil
}

// CutAssignments decodes the key=value assignments leading line and returns
// them with the text that follows. A token starts an assignment when it holds
// "=" with no slash or quote before it; its key must then be valid.
func CutAssignments(line string) ([]Assignment, string, error) {
	sc := &scanner{s: line}
	var result []Assignment
	for sc.skipSpaces(); !sc.done() && sc.atAssignment(); sc.skipSpaces() {
		k, err := sc.key()
		if err != nil {
			return nil, "", err
		}
		v, err := sc.value()
		if err != nil {
			return nil, "", err
		}
		result = append(result, Assignment{Key: k, Value: v})
	}
	return result, sc.s[sc.pos:], nil
}

func (sc *scanner) atAssignment() bool {
	rest := sc.s[sc.pos:]
	if end := strings.IndexByte(rest, ' '); end >= 0 {
		rest = rest[:end]
	}
	eq := strings.IndexByte(rest, '=')
	return eq >= 0 && !strings.ContainsAny(rest[:eq], "/'")
}

// Unquote decodes s as exactly one token.
func Unquote(s string) (string, error) {
	sc := &scanner{s: s}
	v, err := sc.value()
	if err != nil {
		return "", err
	}
	if !sc.done() {
		return "", errors.Wrapf(ErrMalformed, "trailing text after token in %q", s)
	}
	return v, nil
}

// Quote encodes s so that Unquote(Quote(s)) == s.
func Quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " '\t\"\\$`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
