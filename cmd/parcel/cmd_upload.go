package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parcelio/parcel/internal/client"
)

var uploadOpts struct {
	recursive bool
	progress  bool
	chunkSize int
}

var cmdUpload = &cobra.Command{
	Use:   "upload SRC... DST",
	Short: "Upload one or more local files (or directories with -r) to the server",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runUpload,
}

func init() {
	globalOptions.AddFlags(cmdUpload.Flags())
	cmdUpload.Flags().BoolVarP(&uploadOpts.recursive, "recursive", "r", false, "upload directories recursively")
	cmdUpload.Flags().BoolVarP(&uploadOpts.progress, "progress", "p", false, "show transfer progress")
	cmdUpload.Flags().IntVar(&uploadOpts.chunkSize, "chunk-size", 8192, "chunk `size` in bytes to negotiate with the server")
	cmdRoot.AddCommand(cmdUpload)
}

func runUpload(cmd *cobra.Command, args []string) error {
	sources, dst := args[:len(args)-1], args[len(args)-1]

	c, err := dialFromGlobalOptions(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	for _, src := range sources {
		if err := uploadOne(c, src, dst); err != nil {
			return err
		}
	}
	return nil
}

func uploadOne(c *client.Client, src, dst string) error {
	name := filepath.Base(src)

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &client.SourceNotFound{Path: src}
		}
		return err
	}

	prog := newTransferProgress("upload "+name, uploadOpts.progress)

	if info.IsDir() {
		if !uploadOpts.recursive {
			return &client.ValueError{Message: src + " is a directory, pass -r to upload recursively"}
		}
		return c.UploadDirectory(src, dst, name, uploadOpts.chunkSize, prog.callback)
	}

	return c.UploadFile(src, name, dst, uploadOpts.chunkSize, prog.callback)
}
