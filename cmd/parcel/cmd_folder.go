package main

import (
	"github.com/spf13/cobra"

	"github.com/parcelio/parcel/internal/client"
)

var folderOpts struct {
	update bool
}

var cmdFolder = &cobra.Command{
	Use:   "folder NAME [DIR]",
	Short: "Create an empty directory on the server",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFolder,
}

func init() {
	globalOptions.AddFlags(cmdFolder.Flags())
	cmdFolder.Flags().BoolVarP(&folderOpts.update, "update", "u", false, "tolerate an already-existing directory instead of failing")
	cmdRoot.AddCommand(cmdFolder)
}

func runFolder(cmd *cobra.Command, args []string) error {
	name, dir := parseNameDir(args)

	c, err := dialFromGlobalOptions(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	err = c.MakeDirectory(name, dir)
	if folderOpts.update && client.IsFileExists(err) {
		return nil
	}
	return err
}
