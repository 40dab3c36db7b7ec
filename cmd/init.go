package main

import (
	"github.com/spf13/cobra"
)

var Force bool

var initCommand = &cobra.Command{
	Use:   "init",
	Short: "capture the compiler options of the module",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		return p.Capturer().Init(cmd.Context(), Force)
	},
}

func init() {
	initCommand.Flags().BoolVarP(&Force, "force", "f", false, "re-initialize even if already initialized")
}
