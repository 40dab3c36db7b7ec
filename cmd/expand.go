package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"elcc/internal/contract"
)

var Write bool

var expandCommand = &cobra.Command{
	Use:   "expand <file.go>",
	Short: "print a file with its contracts expanded",
	Long:  ``,
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return expand(args[0])
	},
}

func init() {
	expandCommand.Flags().BoolVarP(&Write, "write", "w", false, "write the result back to the file")
}

func expand(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "ReadFile")
	}
	out, err := contract.ExpandSource(path, src)
	if err != nil {
		return err
	}
	if Write {
		return errors.Wrap(os.WriteFile(path, out, 0644), "WriteFile")
	}
	_, err = fmt.Print(string(out))
	return err
}
