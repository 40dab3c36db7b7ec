package main

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"elcc/internal/capture"
	"elcc/internal/config"
	"elcc/internal/util"
)

// project is the module elcc runs in.
type project struct {
	// Root is the module root, or the working directory outside a module.
	Root       string
	Dir        string
	ConfigPath string
	Config     *config.Config
}

func loadProject() (*project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "Getwd")
	}
	root, modulePath, ok, err := util.ModuleRoot(wd)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Debugf("module %s at %s", modulePath, root)
	} else {
		log.Debugf("no go.mod above %s", wd)
		root = wd
	}
	p := &project{Root: root, Dir: wd, ConfigPath: ConfigPath}
	if p.ConfigPath == "" {
		p.ConfigPath = util.ResolvePath(root, config.DefaultPath)
	}
	p.Config, err = config.Load(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SettingsPath is where the captured invocation is persisted.
func (p *project) SettingsPath() string {
	return util.ResolvePath(p.Root, p.Config.Settings)
}

func (p *project) Capturer() *capture.Capturer {
	return capture.New(capture.Options{
		Command:   p.Config.Build.Command,
		CheckArgs: p.Config.Build.CheckArgs,
		TraceArgs: p.Config.Build.TraceArgs,
		Compiler:  p.Config.Compiler,
		SourceExt: p.Config.SourceExt,
		Dir:       p.Root,
		Output:    p.SettingsPath(),
		Verbose:   Verbose,
	})
}
