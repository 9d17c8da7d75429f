package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/parcelio/parcel/internal/client"
	"github.com/parcelio/parcel/internal/wire"
)

var listOpts struct {
	all       bool
	recursive bool
}

var cmdList = &cobra.Command{
	Use:   "list [DIR]",
	Short: "List the entries of a directory on the server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func init() {
	globalOptions.AddFlags(cmdList.Flags())
	cmdList.Flags().BoolVarP(&listOpts.all, "all", "a", false, "show entries whose name starts with a dot")
	cmdList.Flags().BoolVarP(&listOpts.recursive, "recursive", "r", false, "recurse into subdirectories")
	cmdRoot.AddCommand(cmdList)
}

func runList(cmd *cobra.Command, args []string) error {
	dir := "/"
	if len(args) == 1 {
		dir = args[0]
	}

	ctx := cmd.Context()
	c, err := dialFromGlobalOptions(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	return listDirectory(c, dir, listOpts.recursive)
}

func listDirectory(c *client.Client, dir string, recursive bool) error {
	files, err := c.ListFiles(dir)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !listOpts.all && len(name) > 0 && name[0] == '.' {
			continue
		}
		entry := files[name]
		printEntry(dir, entry)

		if recursive && entry.IsDirectory {
			if err := listDirectory(c, joinRemote(dir, name), recursive); err != nil {
				return err
			}
		}
	}

	return nil
}

func printEntry(dir string, entry wire.FileEntry) {
	kind := "-"
	if entry.IsDirectory {
		kind = "d"
	}
	mtime := time.Unix(int64(entry.ModTime), 0).Format("2006-01-02 15:04:05")
	Verbosef("%s  %10d  %s  %s\n", kind, entry.Size, mtime, joinRemote(dir, entry.Name))
}

func joinRemote(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func dialFromGlobalOptions(ctx context.Context) (*client.Client, error) {
	if globalOptions.Token == "" {
		return nil, fmt.Errorf("no token given, set -T/--token or REMOFILE_TOKEN")
	}
	timeout := time.Duration(globalOptions.Timeout) * time.Millisecond
	return client.Dial(ctx, globalOptions.Address(), globalOptions.Token, timeout)
}
