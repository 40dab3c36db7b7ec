package main

import (
	goflag "flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var (
	Debug      bool
	Verbose    bool
	ConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "elcc",
	Short: "elcc, design-by-contract front end for go",
	Long: `elcc expands requires/ensures blocks of functions marked //elc:contract
and runs the compiler front end with the options the go command would use.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if Debug {
			Verbose = true
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "print debug logs, implies --verbose")
	rootCmd.PersistentFlags().BoolVar(&Verbose, "verbose", false, "echo the build tool output")
	rootCmd.PersistentFlags().StringVar(&ConfigPath, "config", "", "settings file (default .elc.yaml in the module root)")
}

func main() {
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	rootCmd.AddCommand(versionCommand)
	rootCmd.AddCommand(initCommand)
	rootCmd.AddCommand(runCommand)
	rootCmd.AddCommand(expandCommand)
	rootCmd.AddCommand(configCommand)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
