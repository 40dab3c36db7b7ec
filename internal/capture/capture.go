// Package capture learns the compiler invocation of a project from the dry
// run trace of its build tool and persists it.
package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"elcc/internal/invocation"
	"elcc/internal/util"
)

// Options configure a Capturer.
type Options struct {
	// Command is the build tool binary.
	Command string
	// CheckArgs build the whole project before tracing. Empty skips the step.
	CheckArgs []string
	// TraceArgs make the build tool print its compiler commands on stderr.
	TraceArgs []string
	// Compiler is the base name of the compiler binary in the trace.
	Compiler string
	// SourceExt marks source file arguments to drop.
	SourceExt string
	// Dir is the working directory of the build tool.
	Dir string
	// Output is the path of the persisted invocation.
	Output string
	// Verbose echoes the trace to stderr.
	Verbose bool
}

// Capturer runs the build tool and extracts the compiler invocation.
type Capturer struct {
	opts Options
	run  func(ctx context.Context, args []string, processLine func(string)) error
}

// New returns a Capturer that executes the configured build tool.
func New(opts Options) *Capturer {
	c := &Capturer{opts: opts}
	c.run = c.exec
	return c
}

func (c *Capturer) exec(ctx context.Context, args []string, processLine func(string)) error {
	cmd := exec.CommandContext(ctx, c.opts.Command, args...)
	cmd.Dir = c.opts.Dir
	if processLine == nil {
		return util.ExecCommand(cmd)
	}
	return util.ExecCommandWithStderr(cmd, processLine)
}

func (c *Capturer) commandLine(args []string) string {
	return strings.Join(append([]string{c.opts.Command}, args...), " ")
}

// Capture runs the trace command and returns the first compiler invocation
// it prints.
func (c *Capturer) Capture(ctx context.Context) (*invocation.Invocation, error) {
	log.Infof("...Running `%s` to obtain options...", c.commandLine(c.opts.TraceArgs))
	var (
		m       = NewMatcher(c.opts.Compiler, c.opts.SourceExt)
		scanErr error
	)
	err := c.run(ctx, c.opts.TraceArgs, func(line string) {
		if c.opts.Verbose {
			fmt.Fprintln(os.Stderr, line)
		}
		if scanErr != nil {
			return
		}
		_, scanErr = m.Feed(line)
	})
	if err != nil {
		return nil, errors.Wrap(err, "trace")
	}
	if scanErr != nil {
		return nil, scanErr
	}
	inv, err := m.Invocation()
	if err != nil {
		return nil, errors.Wrapf(err, "output of `%s`", c.commandLine(c.opts.TraceArgs))
	}
	log.Debugf("Found a compiler command: %s", m.Line)
	for _, a := range inv.Env {
		log.Debugf("  Environment: %s=%s", a.Key, a.Value)
	}
	log.Debugf("  Arguments: %s", strings.Join(inv.Args, " "))
	return inv, nil
}

// Init captures the invocation and saves it to the output path. Unless force
// is set it does nothing when the output already exists.
func (c *Capturer) Init(ctx context.Context, force bool) error {
	if !force {
		exists, err := util.FileExists(c.opts.Output)
		if err != nil {
			return errors.Wrapf(err, "check if `%s` exists", c.opts.Output)
		}
		if exists {
			log.Infof("Already initialized. Pass -f or --force to force re-initialization.")
			return nil
		}
	}
	log.Infof("Initializing for elcc...")
	if len(c.opts.CheckArgs) > 0 {
		log.Infof("...Running `%s` to check the whole project...", c.commandLine(c.opts.CheckArgs))
		if err := c.run(ctx, c.opts.CheckArgs, nil); err != nil {
			return errors.Wrap(err, "check")
		}
	}
	inv, err := c.Capture(ctx)
	if err != nil {
		return err
	}
	log.Infof("...Saving the compiler options to `%s`...", c.opts.Output)
	if err := invocation.Save(c.opts.Output, inv); err != nil {
		return errors.Wrap(err, "could not write the compiler options")
	}
	log.Infof("...Done!")
	return nil
}
