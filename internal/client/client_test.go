package client_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parcelio/parcel/internal/client"
	"github.com/parcelio/parcel/internal/server"
)

const testToken = "0123456789abcdefghijkl"

func startTestServer(t *testing.T) (addr, root string) {
	t.Helper()

	root = t.TempDir()
	srv, err := server.New(server.Config{
		RootDir:      root,
		Token:        testToken,
		MinChunkSize: 4,
		MaxChunkSize: 1024,
	})
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx, ln) }()
	t.Cleanup(cancel)

	return ln.Addr().String(), root
}

func dial(t *testing.T, addr, token string) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), addr, token, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// TestWrongTokenNeverGetsAReply exercises P7 from the client's side: Dial
// itself always succeeds (HELLO has no reply), but the first real request
// on a mismatched connection never gets one either, and eventually times
// out rather than hanging forever.
func TestWrongTokenNeverGetsAReply(t *testing.T) {
	addr, _ := startTestServer(t)

	c, err := client.Dial(context.Background(), addr, testToken+"x", 200*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, err = c.ListFiles("/")
	var timeoutErr *client.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("got %T (%v), want *client.TimeoutError", err, err)
	}
}

func TestListFilesRequiresAbsoluteDirectory(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr, testToken)

	_, err := c.ListFiles("relative/path")
	if err == nil {
		t.Fatal("expected an error for a relative directory")
	}
	var valueErr *client.ValueError
	if !errors.As(err, &valueErr) {
		t.Errorf("got %T, want *client.ValueError", err)
	}
}

func TestCreateFileAndListFiles(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr, testToken)

	if err := c.CreateFile("foo.bin", "/"); err != nil {
		t.Fatal(err)
	}

	files, err := c.ListFiles("/")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := files["foo.bin"]; !ok {
		t.Fatalf("listing does not contain foo.bin: %#v", files)
	}

	if err := c.CreateFile("foo.bin", "/"); err == nil {
		t.Fatal("expected FileExistsError on the second create")
	} else if !client.IsFileExists(err) {
		t.Errorf("got %T, want FileExistsError", err)
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr, testToken)

	dir := t.TempDir()
	src := filepath.Join(dir, "source.bin")
	want := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF}, 500) // 1500 bytes
	if err := os.WriteFile(src, want, 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.UploadFile(src, "uploaded.bin", "/", 256, nil); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "downloaded.bin")
	if err := c.DownloadFile("uploaded.bin", "/", dst, 256, nil); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(want))
	}
}

func TestUploadZeroLengthFileUsesCreateFile(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr, testToken)

	dir := t.TempDir()
	src := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(src, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.UploadFile(src, "empty.bin", "/", 256, nil); err != nil {
		t.Fatal(err)
	}

	files, err := c.ListFiles("/")
	if err != nil {
		t.Fatal(err)
	}
	if entry, ok := files["empty.bin"]; !ok || entry.Size != 0 {
		t.Fatalf("got %#v", files["empty.bin"])
	}
}

func TestUploadCancelledByCallback(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr, testToken)

	dir := t.TempDir()
	src := filepath.Join(dir, "big.bin")
	if err := os.WriteFile(src, bytes.Repeat([]byte{1}, 1000), 0644); err != nil {
		t.Fatal(err)
	}

	calls := 0
	err := c.UploadFile(src, "big.bin", "/", 256, func(chunkBytes int, remainingBefore, fileSize int64, name string) bool {
		calls++
		return calls < 2
	})
	if err != nil {
		t.Fatalf("cancelling from the callback should report success, got %v", err)
	}

	files, err := c.ListFiles("/")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := files["big.bin"]; ok {
		t.Fatal("cancelled upload should not be visible")
	}
}

func TestUploadDirectoryRecursive(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dial(t, addr, testToken)

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "tree"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "tree", "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "tree", "a.txt"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "tree", "sub", "b.txt"), []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.UploadDirectory(filepath.Join(root, "tree"), "/", "tree", 256, nil); err != nil {
		t.Fatal(err)
	}

	files, err := c.ListFiles("/tree")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := files["a.txt"]; !ok {
		t.Errorf("missing a.txt: %#v", files)
	}
	if sub, ok := files["sub"]; !ok || !sub.IsDirectory {
		t.Errorf("missing sub directory: %#v", files)
	}

	subFiles, err := c.ListFiles("/tree/sub")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := subFiles["b.txt"]; !ok {
		t.Errorf("missing b.txt: %#v", subFiles)
	}
}
