package driver

import (
	"context"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"go/version"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"elcc/internal/contract"
	"elcc/internal/report"
)

const (
	parseMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedModule

	// Every package is type checked from expanded syntax. Without NeedDeps
	// the loader would ask the go command for export data, which compiles the
	// contract blocks as written.
	analysisMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
		packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes |
		packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedDeps
)

// ErrLangMismatch is returned when the captured -lang differs from the
// version in go.mod, which means the captured options are stale.
var ErrLangMismatch = errors.New("language version differs from go.mod")

// maxErrors bounds the package errors quoted in a failure.
const maxErrors = 10

// ParseResult is handed to Callbacks.AfterParsing.
type ParseResult struct {
	Flags    *Flags
	Fset     *token.FileSet
	Packages []*packages.Package
	// Expanded is the number of functions whose contracts were expanded.
	Expanded int
}

// AnalysisResult is handed to Callbacks.AfterAnalysis.
type AnalysisResult struct {
	Flags    *Flags
	Fset     *token.FileSet
	Packages []*packages.Package
	Program  *ssa.Program
	SSA      []*ssa.Package
	// Items are the definitions of the loaded packages, sorted by path.
	Items []*report.Item
}

// GoCompiler loads packages with go/packages, expanding contracts while
// parsing, and builds their SSA form.
type GoCompiler struct {
	// Dir is the directory the package patterns are relative to.
	Dir string
}

func NewGoCompiler(dir string) *GoCompiler {
	return &GoCompiler{Dir: dir}
}

// Run compiles the packages named by the positional arguments in args[1:].
func (c *GoCompiler) Run(ctx context.Context, args []string, env []string, cb Callbacks) error {
	if len(args) == 0 {
		return errors.New("empty argument vector")
	}
	flags, err := ParseFlags(args[1:])
	if err != nil {
		return err
	}
	if len(flags.Patterns) == 0 {
		return errors.Errorf("no package given in `%s`", strings.Join(args, " "))
	}
	// -p names no packages to load; the patterns do.
	log.Debugf("compile %s (package %q, lang %q, ignored %v)",
		strings.Join(flags.Patterns, " "), flags.Package, flags.Lang, flags.Ignored)

	s := NewSession(cb)
	var expanded int64
	cfg := &packages.Config{
		Context:   ctx,
		Dir:       c.Dir,
		Env:       env,
		Mode:      parseMode,
		Fset:      token.NewFileSet(),
		ParseFile: parseFile(&expanded),
	}
	pkgs, err := load(cfg, flags.Patterns)
	if err != nil {
		return errors.Wrap(err, "parse")
	}
	if err := checkLang(flags.Lang, pkgs); err != nil {
		return err
	}
	ok, err := s.Parsed(&ParseResult{
		Flags:    flags,
		Fset:     cfg.Fset,
		Packages: pkgs,
		Expanded: int(atomic.LoadInt64(&expanded)),
	})
	if err != nil || !ok {
		return err
	}

	cfg.Mode = analysisMode
	cfg.Fset = token.NewFileSet()
	cfg.ParseFile = parseFile(new(int64))
	pkgs, err = load(cfg, flags.Patterns)
	if err != nil {
		return errors.Wrap(err, "analysis")
	}
	prog, ssaPkgs := ssautil.Packages(pkgs, ssa.SanityCheckFunctions)
	prog.Build()
	_, err = s.Analyzed(&AnalysisResult{
		Flags:    flags,
		Fset:     cfg.Fset,
		Packages: pkgs,
		Program:  prog,
		SSA:      ssaPkgs,
		Items:    collectItems(prog, ssaPkgs, c.Dir),
	})
	return err
}

// parseFile is the ParseFile hook of the loader. It may run concurrently.
func parseFile(expanded *int64) func(*token.FileSet, string, []byte) (*ast.File, error) {
	return func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
		f, err := parser.ParseFile(fset, filename, src, parser.AllErrors|parser.ParseComments)
		if err != nil {
			return f, err
		}
		n, err := contract.ExpandFile(fset, f)
		if err != nil {
			var cerr *contract.Error
			if errors.As(err, &cerr) {
				return f, scanner.ErrorList{{Pos: cerr.Pos, Msg: cerr.Msg()}}
			}
			return f, err
		}
		if n > 0 {
			atomic.AddInt64(expanded, int64(n))
			log.Debugf("expanded %d contract(s) in %s", n, filename)
		}
		return f, nil
	}
}

// checkLang compares the -lang flag with the go directive of the modules of
// pkgs.
func checkLang(lang string, pkgs []*packages.Package) error {
	if lang == "" {
		return nil
	}
	for _, p := range pkgs {
		if p.Module == nil || p.Module.GoVersion == "" {
			continue
		}
		want := version.Lang("go" + p.Module.GoVersion)
		if version.Lang(lang) != want {
			return errors.Wrapf(ErrLangMismatch, "-lang=%s but %s requires %s, run `elcc init -f`",
				lang, p.Module.Path, want)
		}
	}
	return nil
}

func load(cfg *packages.Config, patterns []string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", strings.Join(patterns, " "))
	}
	if len(pkgs) == 0 {
		return nil, errors.Errorf("no packages match %s", strings.Join(patterns, " "))
	}
	var msgs []string
	total := 0
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			total++
			if len(msgs) < maxErrors {
				msgs = append(msgs, e.Error())
			}
		}
	})
	if total > 0 {
		return nil, errors.Errorf("%d error(s):\n%s", total, strings.Join(msgs, "\n"))
	}
	return pkgs, nil
}

func collectItems(prog *ssa.Program, pkgs []*ssa.Package, dir string) []*report.Item {
	var items []*report.Item
	var addFunc func(fn *ssa.Function)
	addFunc = func(fn *ssa.Function) {
		if fn == nil || fn.Synthetic != "" {
			return
		}
		kind := "func"
		switch {
		case fn.Parent() != nil:
			kind = "closure"
		case fn.Signature.Recv() != nil:
			kind = "method"
		}
		items = append(items, newItem(prog, fn.RelString(nil), kind, fn.Pos(), dir))
		for _, anon := range fn.AnonFuncs {
			addFunc(anon)
		}
	}
	for _, p := range pkgs {
		if p == nil {
			continue
		}
		for _, m := range p.Members {
			// skips init$guard
			if strings.Contains(m.Name(), "$") {
				continue
			}
			switch m := m.(type) {
			case *ssa.Function:
				addFunc(m)
			case *ssa.Global:
				items = append(items, newItem(prog, m.RelString(nil), "var", m.Pos(), dir))
			case *ssa.NamedConst:
				items = append(items, newItem(prog, m.RelString(nil), "const", m.Pos(), dir))
			case *ssa.Type:
				items = append(items, newItem(prog, m.RelString(nil), "type", m.Pos(), dir))
				if named, ok := m.Type().(*types.Named); ok {
					for i := 0; i < named.NumMethods(); i++ {
						addFunc(prog.FuncValue(named.Method(i)))
					}
				}
			}
		}
	}
	report.Sort(items)
	return items
}

func newItem(prog *ssa.Program, path, kind string, pos token.Pos, dir string) *report.Item {
	it := &report.Item{Path: path, Kind: kind}
	if !pos.IsValid() {
		return it
	}
	p := prog.Fset.Position(pos)
	it.File, it.Line = p.Filename, p.Line
	if dir != "" {
		if rel, err := filepath.Rel(dir, p.Filename); err == nil && !strings.HasPrefix(rel, "..") {
			it.File = rel
		}
	}
	return it
}
