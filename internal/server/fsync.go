package server

import (
	"os"
)

// syncDir commits a preceding rename to stable storage by fsyncing the
// containing directory, mirroring the local backend's fsyncDir. Errors are
// intentionally swallowed for filesystems that don't support directory
// fsync (e.g. some network mounts) — the rename itself is already durable
// from the filesystem's point of view, this is belt-and-suspenders.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
