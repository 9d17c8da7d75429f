package main

import (
	"github.com/spf13/cobra"
)

var cmdRemove = &cobra.Command{
	Use:   "remove NAME [DIR]",
	Short: "Remove a file or directory (recursively) on the server",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runRemove,
}

func init() {
	globalOptions.AddFlags(cmdRemove.Flags())
	cmdRoot.AddCommand(cmdRemove)
}

func runRemove(cmd *cobra.Command, args []string) error {
	name, dir := parseNameDir(args)

	c, err := dialFromGlobalOptions(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	return c.RemoveFile(name, dir)
}
