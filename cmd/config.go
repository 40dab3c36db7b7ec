package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"elcc/internal/util"
)

// Overwrite is the -f flag of config.
var Overwrite bool

var configCommand = &cobra.Command{
	Use:   "config",
	Short: "write the settings file with the values in use",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		exists, err := util.FileExists(p.ConfigPath)
		if err != nil {
			return err
		}
		if exists && !Overwrite {
			log.Infof("`%s` already exists. Pass -f or --force to overwrite it.", p.ConfigPath)
			return nil
		}
		if err := p.Config.Save(p.ConfigPath); err != nil {
			return err
		}
		log.Infof("Wrote `%s`", p.ConfigPath)
		return nil
	},
}

func init() {
	configCommand.Flags().BoolVarP(&Overwrite, "force", "f", false, "overwrite an existing file")
}
