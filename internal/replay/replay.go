// Package replay reconstructs the captured compiler invocation and runs the
// compiler with it.
package replay

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"elcc/internal/driver"
	"elcc/internal/invocation"
	"elcc/internal/report"
)

// Initializer produces the persisted invocation.
type Initializer interface {
	Init(ctx context.Context, force bool) error
}

// Context is everything needed to invoke the compiler once.
type Context struct {
	// Env is the process environment with the captured assignments applied.
	Env []string
	// Args is the compiler name, the captured tokens, then the trailing
	// arguments.
	Args []string
}

type Replayer struct {
	// Path is the persisted invocation.
	Path string
	// Binary is the first element of the argument vector.
	Binary      string
	Compiler    driver.Compiler
	Initializer Initializer
	// Out receives the item listing.
	Out io.Writer
}

// Setup loads the persisted invocation, running the Initializer once if it
// does not exist yet, and builds the replay context.
func (r *Replayer) Setup(ctx context.Context, trailing []string) (*Context, error) {
	inv, err := invocation.Load(r.Path)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("...`%s` not found, initializing first...", r.Path)
		if err := r.Initializer.Init(ctx, false); err != nil {
			return nil, errors.Wrap(err, "init")
		}
		inv, err = invocation.Load(r.Path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read the compiler options")
	}
	args := make([]string, 0, 1+len(inv.Args)+len(trailing))
	args = append(args, r.Binary)
	args = append(args, inv.Args...)
	args = append(args, trailing...)
	return &Context{
		Env:  inv.Environ(os.Environ()),
		Args: args,
	}, nil
}

// Run replays the invocation with the stage callbacks of elcc.
func (r *Replayer) Run(ctx context.Context, trailing []string) error {
	rc, err := r.Setup(ctx, trailing)
	if err != nil {
		return err
	}
	log.Debugf("Running %s", strings.Join(rc.Args, " "))
	cb := &entry{out: r.Out}
	if err := r.Compiler.Run(ctx, rc.Args, rc.Env, cb); err != nil {
		return errors.Wrap(err, "compilation failed")
	}
	return cb.err
}

// entry holds the callbacks used by Run.
type entry struct {
	out io.Writer
	err error
}

func (e *entry) AfterParsing(res *driver.ParseResult) driver.Compilation {
	log.Debugf("parsed %d package(s), %d contract(s)", len(res.Packages), res.Expanded)
	log.Infof("...Success!")
	return driver.Continue
}

func (e *entry) AfterAnalysis(res *driver.AnalysisResult) driver.Compilation {
	if e.out != nil {
		e.err = report.Print(e.out, res.Items)
	}
	log.Warnf("Verification is not implemented yet")
	return driver.Stop
}
