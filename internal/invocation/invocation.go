// Package invocation holds the compiler invocation captured from the build
// tool and its on-disk form.
//
// The persisted file has one "KEY = value" line per environment assignment, in
// capture order, followed by a single line with the space separated compiler
// arguments:
//
//	CGO_ENABLED = 0
//	GOFLAGS = '-mod=mod -trimpath'
//	-p main -lang=go1.22 -complete
package invocation

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"elcc/internal/shellword"
)

// ErrTruncated is returned when the persisted file lacks its argument line.
var ErrTruncated = errors.New("truncated invocation file")

var assignmentLine = regexp.MustCompile(`^[A-Za-z0-9_]+ = `)

// Invocation is a captured compiler command line and environment.
type Invocation struct {
	Args []string
	Env  []shellword.Assignment
}

// Environ applies the captured assignments on top of base, which has the
// form of os.Environ. Captured values replace existing ones in place.
func (inv *Invocation) Environ(base []string) []string {
	env := make([]string, len(base))
	copy(env, base)
	for _, a := range inv.Env {
		env = setEnvKey(env, a.Key, a.Value)
	}
	return env
}

func setEnvKey(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// MarshalText encodes the invocation in the persisted layout.
func (inv *Invocation) MarshalText() ([]byte, error) {
	var b strings.Builder
	for _, a := range inv.Env {
		if err := shellword.ValidateKey(a.Key); err != nil {
			return nil, err
		}
		b.WriteString(a.Key)
		b.WriteString(" = ")
		b.WriteString(shellword.Quote(a.Value))
		b.WriteByte('\n')
	}
	for _, arg := range inv.Args {
		if strings.ContainsAny(arg, "\n") {
			return nil, errors.Errorf("argument contains a new line: %q", arg)
		}
	}
	b.WriteString(strings.Join(inv.Args, " "))
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// UnmarshalText decodes the persisted layout.
func (inv *Invocation) UnmarshalText(data []byte) error {
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return errors.Wrap(ErrTruncated, "no lines found")
	}
	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	if assignmentLine.MatchString(last) {
		return errors.Wrapf(ErrTruncated, "last line is an assignment: %q", last)
	}
	var env []shellword.Assignment
	for _, line := range lines[:len(lines)-1] {
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return errors.Wrapf(shellword.ErrMalformed, "could not find \"=\" in %q", line)
		}
		key := strings.TrimSpace(line[:idx])
		if err := shellword.ValidateKey(key); err != nil {
			return errors.Wrapf(err, "line %q", line)
		}
		val, err := shellword.Unquote(strings.TrimLeft(line[idx+1:], " "))
		if err != nil {
			return errors.Wrapf(err, "line %q", line)
		}
		env = append(env, shellword.Assignment{Key: key, Value: val})
	}
	inv.Env = env
	inv.Args = strings.Fields(last)
	return nil
}

// Load reads the invocation persisted at path. A missing file is reported
// with an error matching os.ErrNotExist.
func Load(path string) (*Invocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "ReadFile")
	}
	inv := &Invocation{}
	if err := inv.UnmarshalText(data); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return inv, nil
}

// Save replaces the file at path with inv.
func Save(path string, inv *Invocation) error {
	data, err := inv.MarshalText()
	if err != nil {
		return errors.Wrap(err, "MarshalText")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "MkdirAll")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
