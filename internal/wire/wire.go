// Package wire implements the length-prefixed, tagged-tuple framing that
// request and response messages travel in between client and server.
//
// A frame on the connection is:
//
//	uint32 length (big endian, counts the payload bytes only)
//	byte   discriminant
//	[]byte gob-encoded payload, specific to that discriminant
//
// The discriminant is defined independently of the payload encoding so that
// a malformed or truncated payload can still be reported as BAD_REQUEST
// rather than a decode panic.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

// Discriminant identifies the shape of a frame's payload.
type Discriminant byte

// Request discriminants, per spec §6.
const (
	ReqHello Discriminant = iota + 1
	ReqListFiles
	ReqCreateFile
	ReqMakeDirectory
	ReqUploadFile
	ReqSendChunk
	ReqDownloadFile
	ReqReceiveChunk
	ReqCancelTransfer
	ReqRemoveFile
)

// Response discriminants.
const (
	RespAccepted Discriminant = iota + 64
	RespRefused
	RespError
)

// Reason is the second field of every ACCEPTED/REFUSED/ERROR response.
type Reason string

const (
	ReasonFilesListed       Reason = "FILES_LISTED"
	ReasonFileCreated       Reason = "FILE_CREATED"
	ReasonDirectoryCreated  Reason = "DIRECTORY_CREATED"
	ReasonTransferAccepted  Reason = "TRANSFER_ACCEPTED"
	ReasonChunkReceived     Reason = "CHUNK_RECEIVED"
	ReasonChunkSent         Reason = "CHUNK_SENT"
	ReasonTransferCompleted Reason = "TRANSFER_COMPLETED"
	ReasonTransferCancelled Reason = "TRANSFER_CANCELLED"

	ReasonInvalidFileName    Reason = "INVALID_FILE_NAME"
	ReasonFileNotFound       Reason = "FILE_NOT_FOUND"
	ReasonFileAlreadyExists  Reason = "FILE_ALREADY_EXISTS"
	ReasonNotAFile           Reason = "NOT_A_FILE"
	ReasonNotADirectory      Reason = "NOT_A_DIRECTORY"
	ReasonIncorrectFileSize  Reason = "INCORRECT_FILE_SIZE"
	ReasonIncorrectChunkSize Reason = "INCORRECT_CHUNK_SIZE"

	// ReasonFileRemoved is this implementation's success reason for
	// REMOVE_FILE, which spec §6 leaves unspecified (the reference never
	// implements the operation). Not part of the original reason
	// vocabulary; see DESIGN.md.
	ReasonFileRemoved Reason = "FILE_REMOVED"

	ReasonBadRequest   Reason = "BAD_REQUEST"
	ReasonUnknownError Reason = "UNKNOWN_ERROR"
)

// FileEntry is one row of a directory listing (spec §3 "File listing entry").
type FileEntry struct {
	Name        string
	IsDirectory bool
	Size        int64
	ModTime     float64 // seconds since epoch
}

// Hello carries the connection's claimed identity token, spec §4.C / §9.
type Hello struct {
	Token string
}

// ListFiles requests the entries of Directory.
type ListFiles struct {
	Directory string
}

// CreateFile / MakeDirectory share a shape: create Name inside Directory.
type CreateFile struct {
	Name      string
	Directory string
}

type MakeDirectory struct {
	Name      string
	Directory string
}

type RemoveFile struct {
	Name      string
	Directory string
}

type UploadFile struct {
	Name      string
	Directory string
	FileSize  int64
	ChunkSize int
}

type SendChunk struct {
	Data []byte
}

type DownloadFile struct {
	Name      string
	Directory string
	ChunkSize int
}

type ReceiveChunk struct{}

type CancelTransfer struct{}

// Accepted is the success envelope. At most one of the optional fields is
// populated, depending on Reason.
type Accepted struct {
	Reason   Reason
	Files    map[string]FileEntry
	FileSize int64
	Chunk    []byte
}

// Refused carries a client-correctable rejection reason; no payload.
type Refused struct {
	Reason Reason
}

// Error carries a server-side failure, possibly with a diagnostic message.
type Error struct {
	Reason  Reason
	Message string
}

// payloadFor returns a pointer to a zero value of the payload type
// registered for d, or nil if d is unknown.
func payloadFor(d Discriminant) interface{} {
	switch d {
	case ReqHello:
		return &Hello{}
	case ReqListFiles:
		return &ListFiles{}
	case ReqCreateFile:
		return &CreateFile{}
	case ReqMakeDirectory:
		return &MakeDirectory{}
	case ReqUploadFile:
		return &UploadFile{}
	case ReqSendChunk:
		return &SendChunk{}
	case ReqDownloadFile:
		return &DownloadFile{}
	case ReqReceiveChunk:
		return &ReceiveChunk{}
	case ReqCancelTransfer:
		return &CancelTransfer{}
	case ReqRemoveFile:
		return &RemoveFile{}
	case RespAccepted:
		return &Accepted{}
	case RespRefused:
		return &Refused{}
	case RespError:
		return &Error{}
	default:
		return nil
	}
}

// maxFrameSize bounds the length prefix so a corrupt or hostile peer cannot
// make a reader allocate unboundedly. Well above any single chunk we agree
// to in practice.
const maxFrameSize = 64 * 1024 * 1024

// Frame is a decoded discriminant plus its typed payload.
type Frame struct {
	Discriminant Discriminant
	Payload      interface{}
}

// Write encodes v under discriminant d and writes the length-prefixed frame
// to w.
func Write(w io.Writer, d Discriminant, v interface{}) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(v); err != nil {
		return errors.Wrap(err, "encode frame payload")
	}

	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[0:4], uint32(body.Len()))
	header[4] = byte(d)

	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "write frame header")
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return errors.Wrap(err, "write frame body")
	}
	return nil
}

// ErrBadRequest is returned by Read when the length prefix exceeds
// maxFrameSize, the frame carries an unknown discriminant, or it fails to
// decode as its discriminant's payload. A truncated frame yields the
// underlying read error instead.
var ErrBadRequest = errors.New("malformed frame")

// Read decodes the next length-prefixed frame from r.
func Read(r io.Reader) (Frame, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}

	length := binary.BigEndian.Uint32(header[0:4])
	if length > maxFrameSize {
		return Frame{}, ErrBadRequest
	}
	d := Discriminant(header[4])

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}

	payload := payloadFor(d)
	if payload == nil {
		return Frame{}, ErrBadRequest
	}

	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(payload); err != nil {
		return Frame{}, ErrBadRequest
	}

	return Frame{Discriminant: d, Payload: payload}, nil
}
