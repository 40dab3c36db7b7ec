package driver

import (
	"strings"

	"github.com/pkg/errors"
)

// valueFlags are the flags of the Go compiler that take an argument.
var valueFlags = map[string]bool{
	"o":           true,
	"p":           true,
	"D":           true,
	"I":           true,
	"trimpath":    true,
	"buildid":     true,
	"goversion":   true,
	"importcfg":   true,
	"embedcfg":    true,
	"asmhdr":      true,
	"symabis":     true,
	"lang":        true,
	"pgoprofile":  true,
	"coveragecfg": true,
	"linkobj":     true,
}

// Flags is the part of a compiler command line the driver understands.
type Flags struct {
	// Package is the import path given with -p.
	Package string
	// Lang is the language version given with -lang.
	Lang string
	// Patterns are the positional arguments, passed to the package loader.
	Patterns []string
	// Ignored holds the flags that have no effect on the front end.
	Ignored []string
}

// ParseFlags reads compiler flags. Both -name=value and -name value are
// accepted for flags taking a value; "--" ends the flags.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			f.Patterns = append(f.Patterns, args[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.Patterns = append(f.Patterns, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		name, value, hasValue := strings.Cut(name, "=")
		if !valueFlags[name] {
			f.Ignored = append(f.Ignored, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, errors.Errorf("flag needs an argument: %s", arg)
			}
			i++
			value = args[i]
		}
		switch name {
		case "p":
			f.Package = value
		case "lang":
			f.Lang = value
		default:
			f.Ignored = append(f.Ignored, "-"+name+"="+value)
		}
	}
	return f, nil
}
