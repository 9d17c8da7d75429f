package main

import (
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parcelio/parcel/internal/client"
)

var downloadOpts struct {
	recursive bool
	progress  bool
	chunkSize int
}

var cmdDownload = &cobra.Command{
	Use:   "download SRC... DST",
	Short: "Download one or more remote files (or directories with -r) from the server",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDownload,
}

func init() {
	globalOptions.AddFlags(cmdDownload.Flags())
	cmdDownload.Flags().BoolVarP(&downloadOpts.recursive, "recursive", "r", false, "download directories recursively")
	cmdDownload.Flags().BoolVarP(&downloadOpts.progress, "progress", "p", false, "show transfer progress")
	cmdDownload.Flags().IntVar(&downloadOpts.chunkSize, "chunk-size", 8192, "chunk `size` in bytes to negotiate with the server")
	cmdRoot.AddCommand(cmdDownload)
}

func runDownload(cmd *cobra.Command, args []string) error {
	sources, dst := args[:len(args)-1], args[len(args)-1]

	c, err := dialFromGlobalOptions(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	for _, src := range sources {
		if err := downloadOne(c, src, dst); err != nil {
			return err
		}
	}
	return nil
}

func downloadOne(c *client.Client, src, dst string) error {
	dir := path.Dir(src)
	if dir == "." {
		dir = "/"
	}
	name := path.Base(src)
	localPath := filepath.Join(dst, name)

	prog := newTransferProgress("download "+name, downloadOpts.progress)

	if downloadOpts.recursive {
		return c.DownloadDirectory(dir, dst, name, downloadOpts.chunkSize, prog.callback)
	}

	return c.DownloadFile(name, dir, localPath, downloadOpts.chunkSize, prog.callback)
}
