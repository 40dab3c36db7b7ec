package util

import (
	"bufio"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrExitStatus is returned when a child process does not exit successfully.
var ErrExitStatus = errors.New("command failed")

// maxLine bounds a single line of child output; build tool command lines can
// be long.
const maxLine = 16 << 20

func describe(cmd *exec.Cmd) string {
	return strings.Join(cmd.Args, " ")
}

func wait(cmd *exec.Cmd) error {
	err := cmd.Wait()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return errors.Wrapf(ErrExitStatus, "%s: %s", describe(cmd), exitErr.ProcessState)
	}
	return errors.Wrapf(err, "wait %s", describe(cmd))
}

// ExecCommand runs cmd, streaming its stdout and stderr to ours.
func ExecCommand(cmd *exec.Cmd) error {
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	log.Debugf("exec %s", describe(cmd))
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "spawn %s", describe(cmd))
	}
	return wait(cmd)
}

// ExecCommandWithStderr runs cmd, streaming its stdout but handing each line
// of its stderr to processLine.
func ExecCommandWithStderr(cmd *exec.Cmd, processLine func(line string)) error {
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, "StderrPipe")
	}
	log.Debugf("exec %s", describe(cmd))
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "spawn %s", describe(cmd))
	}
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		processLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return errors.Wrap(err, "failed to get a line from stderr")
	}
	return wait(cmd)
}
