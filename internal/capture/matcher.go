package capture

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"elcc/internal/invocation"
	"elcc/internal/shellword"
)

// ErrNoInvocation is returned when the trace holds no compiler command.
var ErrNoInvocation = errors.New("could not find a compiler command")

// runningLine is the wrapper cargo-style tools print around a command.
var runningLine = regexp.MustCompile("^     Running `(.*)`$")

// Matcher picks the first compiler command out of a build trace fed to it
// line by line. Lines after the first match are ignored.
type Matcher struct {
	compiler  string
	sourceExt string
	quick     *regexp.Regexp

	lines int
	found *invocation.Invocation
	// Line is the trace line the invocation was taken from.
	Line string
}

// NewMatcher returns a matcher for commands whose binary is named compiler.
// Arguments ending in sourceExt are dropped from the result.
func NewMatcher(compiler, sourceExt string) *Matcher {
	return &Matcher{
		compiler:  compiler,
		sourceExt: sourceExt,
		quick:     regexp.MustCompile(`(?:^|[\s/` + "`" + `])` + regexp.QuoteMeta(compiler) + ` `),
	}
}

// Matched reports whether a command was found.
func (m *Matcher) Matched() bool {
	return m.found != nil
}

// Feed inspects one trace line and reports whether it was the match. An
// error means the line looked like a compiler command but its environment
// prefix could not be decoded.
func (m *Matcher) Feed(line string) (bool, error) {
	if m.found != nil {
		return false, nil
	}
	m.lines++
	if !m.quick.MatchString(line) {
		return false, nil
	}
	body := line
	if sub := runningLine.FindStringSubmatch(line); sub != nil {
		body = sub[1]
	}
	env, rest, err := shellword.CutAssignments(body)
	if err != nil {
		return false, errors.Wrapf(err, "environment of %q", line)
	}
	binary, args, _ := strings.Cut(rest, " ")
	if binary != m.compiler && !strings.HasSuffix(binary, "/"+m.compiler) {
		return false, nil
	}
	args = strings.TrimSpace(args)
	if args == "" {
		return false, nil
	}
	m.found = &invocation.Invocation{
		Args: NormalizeArgs(args, m.sourceExt),
		Env:  env,
	}
	m.Line = line
	return true, nil
}

// Invocation returns the matched invocation or ErrNoInvocation.
func (m *Matcher) Invocation() (*invocation.Invocation, error) {
	if m.found == nil {
		return nil, errors.Wrapf(ErrNoInvocation, "no %s command in %d lines", m.compiler, m.lines)
	}
	return m.found, nil
}

// NormalizeArgs splits a captured argument string into tokens. Machine
// readable diagnostic flags and source files are dropped, ", " is collapsed
// and stray single quotes are removed.
func NormalizeArgs(args, sourceExt string) []string {
	args = strings.ReplaceAll(args, ", ", ",")
	args = strings.ReplaceAll(args, "'", "")
	var tokens []string
	for _, tok := range strings.Fields(args) {
		switch {
		case tok == "--error-format=json":
		case strings.HasPrefix(tok, "--json="):
		case sourceExt != "" && strings.HasSuffix(tok, sourceExt):
		default:
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Scan reads a whole trace and returns its first compiler command.
func Scan(r io.Reader, compiler, sourceExt string) (*invocation.Invocation, error) {
	m := NewMatcher(compiler, sourceExt)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	for scanner.Scan() {
		ok, err := m.Feed(scanner.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read trace")
	}
	return m.Invocation()
}
