// Package driver runs the Go compiler front end on a package and stops at
// two interception points: after parsing and after type checking with SSA
// construction.
package driver

import (
	"context"

	"github.com/pkg/errors"
)

// Compilation tells the driver whether to go on after a stage.
type Compilation int

const (
	Continue Compilation = iota
	Stop
)

func (c Compilation) String() string {
	if c == Stop {
		return "stop"
	}
	return "continue"
}

// Callbacks are invoked by a Compiler at its interception points.
type Callbacks interface {
	// AfterParsing runs once every file is parsed and contracts are expanded.
	AfterParsing(res *ParseResult) Compilation
	// AfterAnalysis runs once the packages are type checked and lowered to SSA.
	AfterAnalysis(res *AnalysisResult) Compilation
}

// Compiler invokes a compiler with an argument vector whose first element is
// the compiler name, and an environment in the form of os.Environ.
type Compiler interface {
	Run(ctx context.Context, args []string, env []string, cb Callbacks) error
}

// State is the position of a Session in the pipeline.
type State int

const (
	NotStarted State = iota
	ParsedOK
	AnalysisDone
	Stopped
)

var stateNames = [...]string{
	NotStarted:   "not started",
	ParsedOK:     "parsed",
	AnalysisDone: "analysis done",
	Stopped:      "stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrTransition is returned when a stage is entered out of order.
var ErrTransition = errors.New("illegal stage transition")

// Session drives the callbacks through NotStarted, ParsedOK and AnalysisDone.
// A callback returning Stop moves it to Stopped, from which nothing follows.
type Session struct {
	cb    Callbacks
	state State
}

func NewSession(cb Callbacks) *Session {
	return &Session{cb: cb}
}

func (s *Session) State() State {
	return s.state
}

// Parsed enters the post-parse stage and reports whether to continue.
func (s *Session) Parsed(res *ParseResult) (bool, error) {
	if s.state != NotStarted {
		return false, errors.Wrapf(ErrTransition, "parsed from %s", s.state)
	}
	s.state = ParsedOK
	if s.cb.AfterParsing(res) == Stop {
		s.state = Stopped
		return false, nil
	}
	return true, nil
}

// Analyzed enters the post-analysis stage and reports whether to continue.
func (s *Session) Analyzed(res *AnalysisResult) (bool, error) {
	if s.state != ParsedOK {
		return false, errors.Wrapf(ErrTransition, "analyzed from %s", s.state)
	}
	s.state = AnalysisDone
	if s.cb.AfterAnalysis(res) == Stop {
		s.state = Stopped
		return false, nil
	}
	return true, nil
}
