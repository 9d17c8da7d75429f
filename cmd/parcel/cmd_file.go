package main

import (
	"github.com/spf13/cobra"

	"github.com/parcelio/parcel/internal/client"
)

var fileOpts struct {
	update bool
}

var cmdFile = &cobra.Command{
	Use:   "file NAME [DIR]",
	Short: "Create an empty file on the server",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFile,
}

func init() {
	globalOptions.AddFlags(cmdFile.Flags())
	cmdFile.Flags().BoolVarP(&fileOpts.update, "update", "u", false, "tolerate an already-existing file instead of failing")
	cmdRoot.AddCommand(cmdFile)
}

func runFile(cmd *cobra.Command, args []string) error {
	name, dir := parseNameDir(args)

	c, err := dialFromGlobalOptions(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	err = c.CreateFile(name, dir)
	if fileOpts.update && client.IsFileExists(err) {
		return nil
	}
	return err
}

func parseNameDir(args []string) (name, dir string) {
	name = args[0]
	dir = "/"
	if len(args) == 2 {
		dir = args[1]
	}
	return name, dir
}
