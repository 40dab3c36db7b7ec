package driver

import (
	"context"
	"go/ast"
	"go/scanner"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

const sampleMain = `package main

import "fmt"

//elc:contract pure
func add(a, b int) int {
	requires: {
		a >= 0 && b >= 0
	}
	ensures: {
		ret >= a
	}
	return a + b
}

type counter struct{ n int }

func (c *counter) inc() { c.n++ }

func main() {
	c := &counter{}
	c.inc()
	fmt.Println(add(1, 2), c.n)
}
`

type collector struct {
	recorder
	parsed   *ParseResult
	analyzed *AnalysisResult
}

func (c *collector) AfterParsing(res *ParseResult) Compilation {
	c.parsed = res
	return c.recorder.AfterParsing(res)
}

func (c *collector) AfterAnalysis(res *AnalysisResult) Compilation {
	c.analyzed = res
	return c.recorder.AfterAnalysis(res)
}

func writeModule(t *testing.T, src string) string {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/m\n\ngo 1.21\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0644))
	return dir
}

func Test_goCompilerRun(t *testing.T) {
	dir := writeModule(t, sampleMain)
	cb := &collector{recorder: recorder{afterAnalysis: Stop}}
	env := append(os.Environ(), "GOWORK=off", "GOFLAGS=")
	err := NewGoCompiler(dir).Run(context.Background(),
		[]string{"compile", "-p", "main", "-lang=go1.21", "."}, env, cb)
	require.NoError(t, err)
	assert.Equal(t, []string{"parsed", "analyzed"}, cb.calls)

	require.NotNil(t, cb.parsed)
	assert.Equal(t, 1, cb.parsed.Expanded)
	assert.Equal(t, "main", cb.parsed.Flags.Package)

	require.NotNil(t, cb.analyzed)
	kinds := make(map[string]string)
	for _, it := range cb.analyzed.Items {
		kinds[it.Path] = it.Kind
	}
	assert.Equal(t, "func", kinds["example.com/m.add"])
	assert.Equal(t, "func", kinds["example.com/m.main"])
	assert.Equal(t, "type", kinds["example.com/m.counter"])
	assert.Equal(t, "method", kinds["(*example.com/m.counter).inc"])
	// purity marker, precondition and postcondition
	for _, name := range []string{"add$1", "add$2", "add$3"} {
		assert.Equal(t, "closure", kinds["example.com/m."+name], name)
	}
	for _, it := range cb.analyzed.Items {
		if it.Path == "example.com/m.add" {
			assert.Equal(t, "main.go", it.File)
			assert.Equal(t, 6, it.Line)
		}
	}
}

func Test_goCompilerStopAfterParsing(t *testing.T) {
	dir := writeModule(t, sampleMain)
	cb := &collector{recorder: recorder{afterParsing: Stop}}
	err := NewGoCompiler(dir).Run(context.Background(), []string{"compile", "."}, nil, cb)
	require.NoError(t, err)
	assert.Equal(t, []string{"parsed"}, cb.calls)
	assert.Nil(t, cb.analyzed)
}

func Test_goCompilerTypeError(t *testing.T) {
	dir := writeModule(t, "package main\n\nfunc main() { var x int = \"s\" }\n")
	err := NewGoCompiler(dir).Run(context.Background(), []string{"compile", "."}, nil, &recorder{})
	assert.Error(t, err)
}

func Test_goCompilerBadDirective(t *testing.T) {
	dir := writeModule(t, "package main\n\n//elc:contract fast\nfunc main() {}\n")
	cb := &recorder{}
	err := NewGoCompiler(dir).Run(context.Background(), []string{"compile", "."}, nil, cb)
	assert.ErrorContains(t, err, "fast")
	assert.ErrorContains(t, err, "main.go:4:1: func main:")
	assert.Empty(t, cb.calls)
}

func Test_goCompilerStaleLang(t *testing.T) {
	dir := writeModule(t, sampleMain)
	cb := &recorder{}
	err := NewGoCompiler(dir).Run(context.Background(), []string{"compile", "-lang=go1.20", "."}, nil, cb)
	assert.True(t, errors.Is(err, ErrLangMismatch), "%v", err)
	assert.Empty(t, cb.calls)
}

func Test_analysisModeLoadsDeps(t *testing.T) {
	// export data would come from compiling the unexpanded source
	assert.NotZero(t, analysisMode&packages.NeedDeps)
	assert.NotZero(t, parseMode&packages.NeedModule)
}

func Test_parseFileExpands(t *testing.T) {
	var n int64
	f, err := parseFile(&n)(token.NewFileSet(), "main.go", []byte(sampleMain))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	fd := f.Decls[1].(*ast.FuncDecl)
	assert.Equal(t, "add", fd.Name.Name)
	assert.Nil(t, fd.Doc)
	for _, stmt := range fd.Body.List {
		_, labeled := stmt.(*ast.LabeledStmt)
		assert.False(t, labeled)
	}
}

func Test_parseFilePositionedError(t *testing.T) {
	var n int64
	_, err := parseFile(&n)(token.NewFileSet(), "main.go", []byte("package main\n\n//elc:contract fast\nfunc main() {}\n"))
	var list scanner.ErrorList
	require.True(t, errors.As(err, &list), "%T", err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].Pos.Line)
	assert.Equal(t, "main.go", list[0].Pos.Filename)
	assert.Contains(t, list[0].Msg, `func main: "fast": unknown identifier`)
}

func Test_checkLang(t *testing.T) {
	pkgs := []*packages.Package{
		{PkgPath: "example.com/m", Module: &packages.Module{Path: "example.com/m", GoVersion: "1.21.3"}},
		{PkgPath: "nomod"},
	}
	assert.NoError(t, checkLang("", pkgs))
	assert.NoError(t, checkLang("go1.21", pkgs))
	err := checkLang("go1.22", pkgs)
	assert.True(t, errors.Is(err, ErrLangMismatch), "%v", err)
	assert.ErrorContains(t, err, "example.com/m requires go1.21")
}

func Test_goCompilerNoPackage(t *testing.T) {
	err := NewGoCompiler("").Run(context.Background(), []string{"compile", "-p", "main"}, nil, &recorder{})
	assert.Error(t, err)
	err = NewGoCompiler("").Run(context.Background(), nil, nil, &recorder{})
	assert.Error(t, err)
}
