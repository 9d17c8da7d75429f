// Package client implements the client driver (component E) and its
// recursive composers (component F): it maps user-level operations onto
// request/response exchanges over a single authenticated connection, with
// a per-call timeout and a typed-failure mapping for every refusal the
// server can report.
package client

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/parcelio/parcel/internal/pathguard"
	"github.com/parcelio/parcel/internal/wire"
)

// DefaultTimeout is used when a caller passes zero.
const DefaultTimeout = 5 * time.Second

// Client drives one authenticated connection end to end. It is not safe
// for concurrent use from multiple goroutines — spec §4.C's single-client
// discipline applies symmetrically on the client side.
type Client struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to addr, sends the HELLO handshake with token as the
// connection identity, and returns a ready Client. timeout governs every
// subsequent request made through the Client.
func Dial(ctx context.Context, addr, token string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	c := &Client{conn: conn, timeout: timeout}
	if err := wire.Write(conn, wire.ReqHello, &wire.Hello{Token: token}); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "send HELLO")
	}
	return c, nil
}

// Close shuts down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip sends one request and waits for exactly one response, per
// spec §4.E step 2.
func (c *Client) roundTrip(op string, d wire.Discriminant, req interface{}, timeout time.Duration) (wire.Frame, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return wire.Frame{}, errors.Wrap(err, "set write deadline")
	}
	if err := wire.Write(c.conn, d, req); err != nil {
		return wire.Frame{}, errors.Wrapf(err, "send %s", op)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return wire.Frame{}, errors.Wrap(err, "set read deadline")
	}
	frame, err := wire.Read(c.conn)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return wire.Frame{}, &TimeoutError{Operation: op}
		}
		if errors.Is(err, wire.ErrBadRequest) {
			return wire.Frame{}, &CorruptedResponse{Detail: "undecodable response to " + op}
		}
		return wire.Frame{}, errors.Wrapf(err, "receive reply to %s", op)
	}

	return frame, nil
}

// asResult turns a decoded response frame into either its *wire.Accepted
// payload (ACCEPTED) or a typed error (REFUSED/ERROR), per spec §7.
func asResult(op string, frame wire.Frame) (*wire.Accepted, error) {
	switch frame.Discriminant {
	case wire.RespAccepted:
		acc, ok := frame.Payload.(*wire.Accepted)
		if !ok {
			return nil, &CorruptedResponse{Detail: "ACCEPTED with wrong payload for " + op}
		}
		return acc, nil
	case wire.RespRefused:
		ref, ok := frame.Payload.(*wire.Refused)
		if !ok {
			return nil, &CorruptedResponse{Detail: "REFUSED with wrong payload for " + op}
		}
		return nil, classifyRefused(ref.Reason, "")
	case wire.RespError:
		e, ok := frame.Payload.(*wire.Error)
		if !ok {
			return nil, &CorruptedResponse{Detail: "ERROR with wrong payload for " + op}
		}
		return nil, classifyError(e.Reason, e.Message)
	default:
		return nil, &CorruptedResponse{Detail: "unexpected discriminant replying to " + op}
	}
}

// ListFiles lists the entries of directory on the server.
func (c *Client) ListFiles(directory string) (map[string]wire.FileEntry, error) {
	if err := requireAbsolute(directory); err != nil {
		return nil, err
	}
	frame, err := c.roundTrip("LIST_FILES", wire.ReqListFiles, &wire.ListFiles{Directory: directory}, 0)
	if err != nil {
		return nil, err
	}
	acc, err := asResult("LIST_FILES", frame)
	if err != nil {
		return nil, err
	}
	return acc.Files, nil
}

// CreateFile creates an empty file named name inside directory.
func (c *Client) CreateFile(name, directory string) error {
	if err := requireAbsolute(directory); err != nil {
		return err
	}
	frame, err := c.roundTrip("CREATE_FILE", wire.ReqCreateFile, &wire.CreateFile{Name: name, Directory: directory}, 0)
	if err != nil {
		return err
	}
	_, err = asResult("CREATE_FILE", frame)
	return err
}

// MakeDirectory creates an empty directory named name inside directory.
func (c *Client) MakeDirectory(name, directory string) error {
	if err := requireAbsolute(directory); err != nil {
		return err
	}
	frame, err := c.roundTrip("MAKE_DIRECTORY", wire.ReqMakeDirectory, &wire.MakeDirectory{Name: name, Directory: directory}, 0)
	if err != nil {
		return err
	}
	_, err = asResult("MAKE_DIRECTORY", frame)
	return err
}

// RemoveFile removes name (file or directory, recursively) from directory.
func (c *Client) RemoveFile(name, directory string) error {
	if err := requireAbsolute(directory); err != nil {
		return err
	}
	frame, err := c.roundTrip("REMOVE_FILE", wire.ReqRemoveFile, &wire.RemoveFile{Name: name, Directory: directory}, 0)
	if err != nil {
		return err
	}
	_, err = asResult("REMOVE_FILE", frame)
	return err
}

// ChunkCallback is invoked around each chunk of an upload or download. For
// upload it runs before the chunk is sent; for download, after it arrives.
// Returning false cancels the transfer; success is still reported to the
// caller per spec §4.E.
type ChunkCallback func(chunkBytes int, remainingBefore, fileSize int64, name string) bool

// UploadFile uploads the local file at localPath to name inside directory.
// A zero-length source is uploaded via CREATE_FILE so the server never
// sees file_size == 0 (spec §4.E).
func (c *Client) UploadFile(localPath, name, directory string, chunkSize int, cb ChunkCallback) error {
	if err := requireAbsolute(directory); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &SourceNotFound{Path: localPath}
		}
		return errors.Wrap(err, "open source file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "stat source file")
	}

	if info.Size() == 0 {
		return c.CreateFile(name, directory)
	}

	frame, err := c.roundTrip("UPLOAD_FILE", wire.ReqUploadFile, &wire.UploadFile{
		Name: name, Directory: directory, FileSize: info.Size(), ChunkSize: chunkSize,
	}, 0)
	if err != nil {
		return err
	}
	if _, err := asResult("UPLOAD_FILE", frame); err != nil {
		return err
	}

	remaining := info.Size()
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		n, err := io.ReadFull(f, buf[:min64(int64(chunkSize), remaining)])
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			_ = c.cancelTransfer("UPLOAD_FILE")
			return errors.Wrap(err, "read source file")
		}

		if cb != nil && !cb(n, remaining, info.Size(), name) {
			return c.cancelTransfer("UPLOAD_FILE")
		}

		frame, err := c.roundTrip("SEND_CHUNK", wire.ReqSendChunk, &wire.SendChunk{Data: buf[:n]}, 0)
		if err != nil {
			return err
		}
		acc, err := asResult("SEND_CHUNK", frame)
		if err != nil {
			return err
		}

		remaining -= int64(n)
		if remaining == 0 && acc.Reason != wire.ReasonTransferCompleted {
			return &UnexpectedError{Detail: "server did not confirm TRANSFER_COMPLETED on final chunk"}
		}
	}

	return nil
}

// DownloadFile downloads name from directory on the server to localPath.
func (c *Client) DownloadFile(name, directory, localPath string, chunkSize int, cb ChunkCallback) error {
	if err := requireAbsolute(directory); err != nil {
		return err
	}

	frame, err := c.roundTrip("DOWNLOAD_FILE", wire.ReqDownloadFile, &wire.DownloadFile{
		Name: name, Directory: directory, ChunkSize: chunkSize,
	}, 0)
	if err != nil {
		return err
	}
	acc, err := asResult("DOWNLOAD_FILE", frame)
	if err != nil {
		return err
	}
	fileSize := acc.FileSize

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
	if err != nil {
		if os.IsExist(err) {
			return &FileExistsError{Name: localPath}
		}
		return errors.Wrap(err, "create destination file")
	}
	defer dst.Close()

	remaining := fileSize
	for {
		frame, err := c.roundTrip("RECEIVE_CHUNK", wire.ReqReceiveChunk, &wire.ReceiveChunk{}, 0)
		if err != nil {
			return err
		}
		acc, err := asResult("RECEIVE_CHUNK", frame)
		if err != nil {
			return err
		}

		if _, err := dst.Write(acc.Chunk); err != nil {
			_ = c.cancelTransfer("DOWNLOAD_FILE")
			return errors.Wrap(err, "write destination file")
		}
		before := remaining
		remaining -= int64(len(acc.Chunk))

		if cb != nil && !cb(len(acc.Chunk), before, fileSize, name) {
			if acc.Reason == wire.ReasonTransferCompleted {
				// the server is already back in IDLE; nothing to cancel.
				return nil
			}
			return c.cancelTransfer("DOWNLOAD_FILE")
		}

		if acc.Reason == wire.ReasonTransferCompleted {
			return nil
		}
	}
}

func (c *Client) cancelTransfer(op string) error {
	frame, err := c.roundTrip(op+"/CANCEL_TRANSFER", wire.ReqCancelTransfer, &wire.CancelTransfer{}, 0)
	if err != nil {
		return err
	}
	_, err = asResult(op+"/CANCEL_TRANSFER", frame)
	return err
}

func requireAbsolute(p string) error {
	if !pathguard.IsAbsoluteClientPath(p) {
		return &ValueError{Message: "path must be absolute: " + p}
	}
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
