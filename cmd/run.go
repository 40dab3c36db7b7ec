package main

import (
	"os"

	"github.com/spf13/cobra"

	"elcc/internal/driver"
	"elcc/internal/replay"
)

var runCommand = &cobra.Command{
	Use:   "run <package> [-- compiler args...]",
	Short: "run the compiler front end with the captured options",
	Long: `run replays the captured compiler options followed by the given
arguments, initializing first when nothing was captured yet.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		r := &replay.Replayer{
			Path:        p.SettingsPath(),
			Binary:      p.Config.Compiler,
			Compiler:    driver.NewGoCompiler(p.Dir),
			Initializer: p.Capturer(),
			Out:         os.Stdout,
		}
		return r.Run(cmd.Context(), args)
	},
}
