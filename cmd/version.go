package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	BuildBranch  string
	BuildVersion string
	BuildTime    string
	Builder      string
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "show version",
	Long:  ``,
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		printVersion()
	},
}

func printVersion() {
	fmt.Printf("\033[36m%-16s\033[0m %s\n", "BuildBranch", BuildBranch)
	fmt.Printf("\033[36m%-16s\033[0m %s\n", "BuildVersion", BuildVersion)
	fmt.Printf("\033[36m%-16s\033[0m %s\n", "BuildTime", BuildTime)
	fmt.Printf("\033[36m%-16s\033[0m %s\n", "Builder", Builder)
	fmt.Printf("\033[36m%-16s\033[0m %s\n", "GoVersion", runtime.Version())
}
