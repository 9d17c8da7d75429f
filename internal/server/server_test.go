package server_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parcelio/parcel/internal/server"
	"github.com/parcelio/parcel/internal/wire"
)

const testToken = "0123456789abcdefghijkl" // 22 chars, shape doesn't matter for tests

func startTestServer(t *testing.T, cfg server.Config) (addr string, root string) {
	t.Helper()

	root = t.TempDir()
	cfg.RootDir = root
	if cfg.Token == "" {
		cfg.Token = testToken
	}

	srv, err := server.New(cfg)
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

func dialRaw(t *testing.T, addr, token string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := wire.Write(conn, wire.ReqHello, &wire.Hello{Token: token}); err != nil {
		t.Fatal(err)
	}
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, d wire.Discriminant, v interface{}) wire.Frame {
	t.Helper()
	if err := wire.Write(conn, d, v); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := wire.Read(conn)
	if err != nil {
		t.Fatal(err)
	}
	return frame
}

// TestAuthMismatchDropsSilently exercises P7: a bad token gets no response
// at all, and the connection is simply closed.
func TestAuthMismatchDropsSilently(t *testing.T) {
	addr, _ := startTestServer(t, server.Config{})

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := wire.Write(conn, wire.ReqHello, &wire.Hello{Token: testToken + "x"}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, err = wire.Read(conn)
	if err == nil {
		t.Fatal("expected the connection to produce no response")
	}
}

func TestListEmptyRoot(t *testing.T) {
	addr, _ := startTestServer(t, server.Config{})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	frame := roundTrip(t, conn, wire.ReqListFiles, &wire.ListFiles{Directory: "/"})
	acc, ok := frame.Payload.(*wire.Accepted)
	if !ok || frame.Discriminant != wire.RespAccepted {
		t.Fatalf("got %v / %#v", frame.Discriminant, frame.Payload)
	}
	if acc.Reason != wire.ReasonFilesListed || len(acc.Files) != 0 {
		t.Errorf("got reason %v, %d files", acc.Reason, len(acc.Files))
	}
}

func TestCreateFileThenListSeesIt(t *testing.T) {
	addr, _ := startTestServer(t, server.Config{})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	frame := roundTrip(t, conn, wire.ReqCreateFile, &wire.CreateFile{Name: "foo.bin", Directory: "/"})
	acc := frame.Payload.(*wire.Accepted)
	if acc.Reason != wire.ReasonFileCreated {
		t.Fatalf("got reason %v", acc.Reason)
	}

	frame = roundTrip(t, conn, wire.ReqListFiles, &wire.ListFiles{Directory: "/"})
	acc = frame.Payload.(*wire.Accepted)
	entry, ok := acc.Files["foo.bin"]
	if !ok {
		t.Fatalf("listing does not contain foo.bin: %#v", acc.Files)
	}
	if entry.IsDirectory || entry.Size != 0 {
		t.Errorf("got entry %#v", entry)
	}
}

func TestCreateFileRejectsBadName(t *testing.T) {
	addr, _ := startTestServer(t, server.Config{})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	frame := roundTrip(t, conn, wire.ReqCreateFile, &wire.CreateFile{Name: "a|b", Directory: "/"})
	if frame.Discriminant != wire.RespRefused {
		t.Fatalf("got %v", frame.Discriminant)
	}
	if ref := frame.Payload.(*wire.Refused); ref.Reason != wire.ReasonInvalidFileName {
		t.Errorf("got reason %v", ref.Reason)
	}
}

// TestPathJail exercises P1: a client path that tries to climb out of root
// never resolves outside it; here it collapses onto root itself and lists
// it rather than touching anything above root.
func TestPathJail(t *testing.T) {
	addr, root := startTestServer(t, server.Config{})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	outside := filepath.Join(filepath.Dir(root), "should-not-exist")
	_ = os.Remove(outside)

	frame := roundTrip(t, conn, wire.ReqListFiles, &wire.ListFiles{Directory: "/../../"})
	if frame.Discriminant != wire.RespAccepted {
		t.Fatalf("expected the traversal to resolve harmlessly inside root, got %v", frame.Discriminant)
	}
	if _, err := os.Stat(outside); err == nil {
		t.Fatal("path jail escaped root")
	}
}

func TestUploadConflictThenDownloadRoundTrip(t *testing.T) {
	addr, _ := startTestServer(t, server.Config{MinChunkSize: 4, MaxChunkSize: 1024})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	data := make([]byte, 1052)
	for i := range data {
		data[i] = byte(i)
	}
	const chunkSize = 512

	frame := roundTrip(t, conn, wire.ReqUploadFile, &wire.UploadFile{Name: "f", Directory: "/", FileSize: int64(len(data)), ChunkSize: chunkSize})
	acc := frame.Payload.(*wire.Accepted)
	if acc.Reason != wire.ReasonTransferAccepted {
		t.Fatalf("got reason %v", acc.Reason)
	}

	var got []wire.Reason
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		frame = roundTrip(t, conn, wire.ReqSendChunk, &wire.SendChunk{Data: data[off:end]})
		got = append(got, frame.Payload.(*wire.Accepted).Reason)
	}
	if len(got) != 3 || got[0] != wire.ReasonChunkReceived || got[1] != wire.ReasonChunkReceived || got[2] != wire.ReasonTransferCompleted {
		t.Fatalf("got reasons %v", got)
	}

	// re-issuing the same upload must fail without touching the file.
	frame = roundTrip(t, conn, wire.ReqUploadFile, &wire.UploadFile{Name: "f", Directory: "/", FileSize: int64(len(data)), ChunkSize: chunkSize})
	if ref, ok := frame.Payload.(*wire.Refused); !ok || ref.Reason != wire.ReasonFileAlreadyExists {
		t.Fatalf("got %v / %#v", frame.Discriminant, frame.Payload)
	}

	// download it back and check for an exact round trip (P4).
	frame = roundTrip(t, conn, wire.ReqDownloadFile, &wire.DownloadFile{Name: "f", Directory: "/", ChunkSize: chunkSize})
	acc = frame.Payload.(*wire.Accepted)
	if acc.Reason != wire.ReasonTransferAccepted || acc.FileSize != int64(len(data)) {
		t.Fatalf("got %#v", acc)
	}

	var received []byte
	for {
		frame = roundTrip(t, conn, wire.ReqReceiveChunk, &wire.ReceiveChunk{})
		acc = frame.Payload.(*wire.Accepted)
		received = append(received, acc.Chunk...)
		if acc.Reason == wire.ReasonTransferCompleted {
			break
		}
	}

	if len(received) != len(data) {
		t.Fatalf("got %d bytes, want %d", len(received), len(data))
	}
	for i := range data {
		if received[i] != data[i] {
			t.Fatalf("byte %d differs: got %d want %d", i, received[i], data[i])
		}
	}
}

// TestCancelUploadLeavesNoResidue exercises P5.
func TestCancelUploadLeavesNoResidue(t *testing.T) {
	addr, root := startTestServer(t, server.Config{MinChunkSize: 4, MaxChunkSize: 1024})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	frame := roundTrip(t, conn, wire.ReqUploadFile, &wire.UploadFile{Name: "cancelled", Directory: "/", FileSize: 100, ChunkSize: 50})
	if frame.Payload.(*wire.Accepted).Reason != wire.ReasonTransferAccepted {
		t.Fatal("upload not accepted")
	}

	frame = roundTrip(t, conn, wire.ReqSendChunk, &wire.SendChunk{Data: make([]byte, 50)})
	if frame.Payload.(*wire.Accepted).Reason != wire.ReasonChunkReceived {
		t.Fatal("chunk not accepted")
	}

	frame = roundTrip(t, conn, wire.ReqCancelTransfer, &wire.CancelTransfer{})
	if frame.Payload.(*wire.Accepted).Reason != wire.ReasonTransferCancelled {
		t.Fatalf("got %#v", frame.Payload)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected an empty root after cancellation, got %v", entries)
	}
}

// TestSingleFlight exercises P6: a second UPLOAD_FILE while one is already
// in progress is rejected and cancels the in-flight transfer.
func TestSingleFlight(t *testing.T) {
	addr, _ := startTestServer(t, server.Config{MinChunkSize: 4, MaxChunkSize: 1024})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	frame := roundTrip(t, conn, wire.ReqUploadFile, &wire.UploadFile{Name: "one", Directory: "/", FileSize: 100, ChunkSize: 50})
	if frame.Payload.(*wire.Accepted).Reason != wire.ReasonTransferAccepted {
		t.Fatal("first upload not accepted")
	}

	frame = roundTrip(t, conn, wire.ReqUploadFile, &wire.UploadFile{Name: "two", Directory: "/", FileSize: 100, ChunkSize: 50})
	if frame.Discriminant != wire.RespError {
		t.Fatalf("got %v, want ERROR", frame.Discriminant)
	}
	if e := frame.Payload.(*wire.Error); e.Reason != wire.ReasonBadRequest {
		t.Errorf("got reason %v", e.Reason)
	}

	// the session must be back in IDLE: an ordinary request now succeeds.
	frame = roundTrip(t, conn, wire.ReqListFiles, &wire.ListFiles{Directory: "/"})
	if frame.Discriminant != wire.RespAccepted {
		t.Fatalf("session did not return to idle after single-flight rejection: %v", frame.Discriminant)
	}
}

func TestRemoveFileRecursive(t *testing.T) {
	addr, _ := startTestServer(t, server.Config{})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	roundTrip(t, conn, wire.ReqMakeDirectory, &wire.MakeDirectory{Name: "dir", Directory: "/"})
	roundTrip(t, conn, wire.ReqCreateFile, &wire.CreateFile{Name: "inside.bin", Directory: "/dir"})

	frame := roundTrip(t, conn, wire.ReqRemoveFile, &wire.RemoveFile{Name: "dir", Directory: "/"})
	if frame.Discriminant != wire.RespAccepted {
		t.Fatalf("got %v / %#v", frame.Discriminant, frame.Payload)
	}
	if acc := frame.Payload.(*wire.Accepted); acc.Reason != wire.ReasonFileRemoved {
		t.Errorf("got reason %v", acc.Reason)
	}

	frame = roundTrip(t, conn, wire.ReqListFiles, &wire.ListFiles{Directory: "/"})
	acc := frame.Payload.(*wire.Accepted)
	if _, ok := acc.Files["dir"]; ok {
		t.Fatal("removed directory is still listed")
	}
}

func TestRemoveFileNotFound(t *testing.T) {
	addr, _ := startTestServer(t, server.Config{})
	conn := dialRaw(t, addr, testToken)
	defer conn.Close()

	frame := roundTrip(t, conn, wire.ReqRemoveFile, &wire.RemoveFile{Name: "missing", Directory: "/"})
	if ref, ok := frame.Payload.(*wire.Refused); !ok || ref.Reason != wire.ReasonFileNotFound {
		t.Fatalf("got %v / %#v", frame.Discriminant, frame.Payload)
	}
}
