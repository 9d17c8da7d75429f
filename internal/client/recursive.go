package client

import (
	"os"
	"path"
	"path/filepath"
)

// NotImplementedError is raised by the recursive composers when a local
// directory entry is neither a regular file nor a directory (spec §4.F:
// "anything else (symlink, device) → fail with NOT_IMPLEMENTED").
type NotImplementedError struct {
	Path string
}

func (e *NotImplementedError) Error() string {
	return "not implemented for non-regular entry: " + e.Path
}

// UploadDirectory uploads every entry of the local directory source into
// destination/name on the server, recursing into subdirectories. It
// creates destination/name first via MakeDirectory (spec §4.F).
func (c *Client) UploadDirectory(source, destination, name string, chunkSize int, cb ChunkCallback) error {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return &SourceNotFound{Path: source}
		}
		return err
	}
	if !info.IsDir() {
		return &ValueError{Message: "source is not a directory: " + source}
	}

	if err := c.MakeDirectory(name, destination); err != nil {
		return err
	}

	remoteDir := path.Join(destination, name)
	entries, err := os.ReadDir(source)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		localPath := filepath.Join(source, entry.Name())

		switch {
		case entry.Type().IsRegular():
			if err := c.UploadFile(localPath, entry.Name(), remoteDir, chunkSize, cb); err != nil {
				return err
			}
		case entry.IsDir():
			if err := c.UploadDirectory(localPath, remoteDir, entry.Name(), chunkSize, cb); err != nil {
				return err
			}
		default:
			return &NotImplementedError{Path: localPath}
		}
	}

	return nil
}

// DownloadDirectory mirrors UploadDirectory: it creates the local
// directory destination/name, lists source/name on the server, and
// recurses per entry.
func (c *Client) DownloadDirectory(source, destination, name string, chunkSize int, cb ChunkCallback) error {
	localDir := filepath.Join(destination, name)
	if err := os.Mkdir(localDir, 0777); err != nil {
		if os.IsNotExist(err) {
			return &DestinationNotFound{Path: destination}
		}
		return err
	}

	remoteDir := path.Join(source, name)
	files, err := c.ListFiles(remoteDir)
	if err != nil {
		return err
	}

	for entryName, entry := range files {
		if entry.IsDirectory {
			if err := c.DownloadDirectory(remoteDir, localDir, entryName, chunkSize, cb); err != nil {
				return err
			}
			continue
		}

		localPath := filepath.Join(localDir, entryName)
		if err := c.DownloadFile(entryName, remoteDir, localPath, chunkSize, cb); err != nil {
			return err
		}
	}

	return nil
}
