package replay

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elcc/internal/driver"
	"elcc/internal/invocation"
	"elcc/internal/report"
)

type fakeInitializer struct {
	path  string
	calls int
	err   error
}

func (f *fakeInitializer) Init(_ context.Context, force bool) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(f.path, []byte("FOO = 1\n--edition=2021 --crate-name=main\n"), 0644)
}

type fakeCompiler struct {
	args  []string
	env   []string
	stops []driver.Compilation
	err   error
}

func (f *fakeCompiler) Run(_ context.Context, args, env []string, cb driver.Callbacks) error {
	f.args, f.env = args, env
	if f.err != nil {
		return f.err
	}
	f.stops = append(f.stops, cb.AfterParsing(&driver.ParseResult{}))
	f.stops = append(f.stops, cb.AfterAnalysis(&driver.AnalysisResult{
		Items: []*report.Item{{Path: "example.com/m.main", Kind: "func"}},
	}))
	return nil
}

func newReplayer(t *testing.T) (*Replayer, *fakeInitializer, *fakeCompiler, *bytes.Buffer) {
	path := filepath.Join(t.TempDir(), "compile-settings")
	initr := &fakeInitializer{path: path}
	comp := &fakeCompiler{}
	out := &bytes.Buffer{}
	return &Replayer{
		Path:        path,
		Binary:      "rustc",
		Compiler:    comp,
		Initializer: initr,
		Out:         out,
	}, initr, comp, out
}

func Test_setupMissingInitializesOnce(t *testing.T) {
	r, initr, _, _ := newReplayer(t)
	rc, err := r.Setup(context.Background(), []string{"src/main.rs", "-O"})
	require.NoError(t, err)
	assert.Equal(t, 1, initr.calls)
	assert.Equal(t, []string{"rustc", "--edition=2021", "--crate-name=main", "src/main.rs", "-O"}, rc.Args)
	assert.Contains(t, rc.Env, "FOO=1")

	_, err = r.Setup(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, initr.calls, "existing artifact never triggers capture")
}

func Test_setupExistingArtifact(t *testing.T) {
	r, initr, _, _ := newReplayer(t)
	require.NoError(t, invocation.Save(r.Path, &invocation.Invocation{Args: []string{"-p", "main"}}))
	rc, err := r.Setup(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, initr.calls)
	assert.Equal(t, []string{"rustc", "-p", "main"}, rc.Args)
}

func Test_setupInitFails(t *testing.T) {
	r, initr, _, _ := newReplayer(t)
	initr.err = errors.New("no compiler command")
	_, err := r.Setup(context.Background(), nil)
	assert.ErrorContains(t, err, "no compiler command")
	assert.Equal(t, 1, initr.calls)
}

func Test_setupTruncated(t *testing.T) {
	r, initr, _, _ := newReplayer(t)
	require.NoError(t, os.WriteFile(r.Path, []byte("FOO = 1\n"), 0644))
	_, err := r.Setup(context.Background(), nil)
	assert.True(t, errors.Is(err, invocation.ErrTruncated), "%v", err)
	assert.Equal(t, 0, initr.calls)
}

func Test_run(t *testing.T) {
	r, _, comp, out := newReplayer(t)
	require.NoError(t, r.Run(context.Background(), []string{"./..."}))
	assert.Equal(t, []string{"rustc", "--edition=2021", "--crate-name=main", "./..."}, comp.args)
	assert.Contains(t, comp.env, "FOO=1")
	assert.Equal(t, []driver.Compilation{driver.Continue, driver.Stop}, comp.stops)
	assert.Contains(t, out.String(), "example.com/m.main")
}

func Test_runCompilerFails(t *testing.T) {
	r, _, comp, _ := newReplayer(t)
	comp.err = errors.New("exit status 1")
	err := r.Run(context.Background(), nil)
	assert.ErrorContains(t, err, "exit status 1")
}
