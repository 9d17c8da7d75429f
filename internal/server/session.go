package server

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parcelio/parcel/internal/debug"
	"github.com/parcelio/parcel/internal/pathguard"
	"github.com/parcelio/parcel/internal/wire"
)

// sessionState is one of IDLE, UPLOAD, DOWNLOAD (spec §4.D).
type sessionState int

const (
	stateIdle sessionState = iota
	stateUpload
	stateDownload
)

// session is the per-connection state machine of component D. It is not
// safe for concurrent use; exactly one goroutine (the connection's reader
// loop) drives it.
type session struct {
	cfg   Config
	state sessionState

	chunkSize int
	remaining int64

	// UPLOAD-only.
	tempFile *os.File
	tempPath string
	destPath string

	// DOWNLOAD-only.
	srcFile *os.File
}

func newSession(cfg Config) *session {
	return &session{cfg: cfg, state: stateIdle}
}

// response is a decoded (discriminant, payload) pair ready for wire.Write.
type response struct {
	discriminant wire.Discriminant
	payload      interface{}
}

func accepted(reason wire.Reason) response {
	return response{wire.RespAccepted, &wire.Accepted{Reason: reason}}
}

func acceptedFiles(files map[string]wire.FileEntry) response {
	return response{wire.RespAccepted, &wire.Accepted{Reason: wire.ReasonFilesListed, Files: files}}
}

func acceptedTransfer(fileSize int64) response {
	return response{wire.RespAccepted, &wire.Accepted{Reason: wire.ReasonTransferAccepted, FileSize: fileSize}}
}

func acceptedChunk(reason wire.Reason, data []byte) response {
	return response{wire.RespAccepted, &wire.Accepted{Reason: reason, Chunk: data}}
}

func refused(reason wire.Reason) response {
	return response{wire.RespRefused, &wire.Refused{Reason: reason}}
}

func errResp(reason wire.Reason, message string) response {
	return response{wire.RespError, &wire.Error{Reason: reason, Message: message}}
}

func badRequestResp() response {
	return errResp(wire.ReasonBadRequest, "")
}

// badRequest is called by the connection loop when a frame fails to decode
// at all; spec §4.D: this cancels any in-progress transfer.
func (s *session) badRequest() response {
	s.cancelAny()
	return badRequestResp()
}

// cancelAny tears down whatever transfer is in progress (if any) and
// returns the session to IDLE. Safe to call from any state.
func (s *session) cancelAny() {
	switch s.state {
	case stateUpload:
		s.abortUpload()
	case stateDownload:
		s.abortDownload()
	}
	s.state = stateIdle
}

// cleanup releases any handles held by the session; called when the
// connection closes, regardless of state (spec §5 "Cancellation &
// timeouts": an in-flight transfer on a dropped connection must be cleaned
// up).
func (s *session) cleanup() {
	s.cancelAny()
}

func (s *session) abortUpload() {
	if s.tempFile != nil {
		_ = s.tempFile.Close()
		_ = os.Remove(s.tempPath)
	}
	s.tempFile = nil
	s.tempPath = ""
	s.destPath = ""
	s.remaining = 0
}

func (s *session) abortDownload() {
	if s.srcFile != nil {
		_ = s.srcFile.Close()
	}
	s.srcFile = nil
	s.remaining = 0
}

// dispatch routes a successfully-decoded frame through the state machine.
func (s *session) dispatch(frame wire.Frame) response {
	switch s.state {
	case stateUpload:
		return s.dispatchUpload(frame)
	case stateDownload:
		return s.dispatchDownload(frame)
	default:
		return s.dispatchIdle(frame)
	}
}

func (s *session) dispatchIdle(frame wire.Frame) response {
	switch req := frame.Payload.(type) {
	case *wire.ListFiles:
		return s.listFiles(req)
	case *wire.CreateFile:
		return s.createEntry(req.Name, req.Directory, false)
	case *wire.MakeDirectory:
		return s.createEntry(req.Name, req.Directory, true)
	case *wire.RemoveFile:
		return s.removeEntry(req)
	case *wire.UploadFile:
		return s.beginUpload(req)
	case *wire.DownloadFile:
		return s.beginDownload(req)
	default:
		return badRequestResp()
	}
}

func (s *session) dispatchUpload(frame wire.Frame) response {
	switch req := frame.Payload.(type) {
	case *wire.SendChunk:
		return s.sendChunk(req)
	case *wire.CancelTransfer:
		s.abortUpload()
		s.state = stateIdle
		return accepted(wire.ReasonTransferCancelled)
	default:
		s.abortUpload()
		s.state = stateIdle
		return badRequestResp()
	}
}

func (s *session) dispatchDownload(frame wire.Frame) response {
	switch frame.Payload.(type) {
	case *wire.ReceiveChunk:
		return s.receiveChunk()
	case *wire.CancelTransfer:
		s.abortDownload()
		s.state = stateIdle
		return accepted(wire.ReasonTransferCancelled)
	default:
		s.abortDownload()
		s.state = stateIdle
		return badRequestResp()
	}
}

func (s *session) listFiles(req *wire.ListFiles) response {
	dir, err := pathguard.Resolve(s.cfg.RootDir, req.Directory)
	if err != nil {
		return refused(wire.ReasonFileNotFound)
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return refused(wire.ReasonFileNotFound)
	} else if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}
	if !info.IsDir() {
		return refused(wire.ReasonNotADirectory)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}

	files := make(map[string]wire.FileEntry, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			debug.Log("listFiles: stat %v/%v failed: %v", dir, e.Name(), err)
			continue
		}
		size := fi.Size()
		if fi.IsDir() {
			size = 0
		}
		files[e.Name()] = wire.FileEntry{
			Name:        e.Name(),
			IsDirectory: fi.IsDir(),
			Size:        size,
			ModTime:     float64(fi.ModTime().UnixNano()) / float64(time.Second),
		}
	}

	return acceptedFiles(files)
}

// createEntry implements CREATE_FILE / MAKE_DIRECTORY, which share an
// ordered-check shape (spec §4.D).
func (s *session) createEntry(name, directory string, isDir bool) response {
	if !pathguard.ValidName(name) {
		return refused(wire.ReasonInvalidFileName)
	}

	dir, err := pathguard.Resolve(s.cfg.RootDir, directory)
	if err != nil {
		return refused(wire.ReasonFileNotFound)
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return refused(wire.ReasonFileNotFound)
	} else if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}
	if !info.IsDir() {
		return refused(wire.ReasonNotADirectory)
	}

	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return refused(wire.ReasonFileAlreadyExists)
	} else if !os.IsNotExist(err) {
		return errResp(wire.ReasonUnknownError, err.Error())
	}

	if isDir {
		if err := os.Mkdir(target, 0777); err != nil {
			return errResp(wire.ReasonUnknownError, err.Error())
		}
		return accepted(wire.ReasonDirectoryCreated)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
	if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}
	_ = f.Close()
	return accepted(wire.ReasonFileCreated)
}

// removeEntry implements REMOVE_FILE per the decision recorded in
// DESIGN.md: same first-failure-wins ordering as createEntry, recursing
// into directories.
func (s *session) removeEntry(req *wire.RemoveFile) response {
	if !pathguard.ValidName(req.Name) {
		return refused(wire.ReasonInvalidFileName)
	}

	dir, err := pathguard.Resolve(s.cfg.RootDir, req.Directory)
	if err != nil {
		return refused(wire.ReasonFileNotFound)
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return refused(wire.ReasonFileNotFound)
	} else if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}
	if !info.IsDir() {
		return refused(wire.ReasonNotADirectory)
	}

	target := filepath.Join(dir, req.Name)
	targetInfo, err := os.Stat(target)
	if os.IsNotExist(err) {
		return refused(wire.ReasonFileNotFound)
	} else if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}

	if targetInfo.IsDir() {
		err = os.RemoveAll(target)
	} else {
		err = os.Remove(target)
	}
	if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}

	return accepted(wire.ReasonFileRemoved)
}

func (s *session) beginUpload(req *wire.UploadFile) response {
	if req.FileSize <= 0 || req.FileSize >= s.cfg.FileSizeLimit {
		return refused(wire.ReasonIncorrectFileSize)
	}
	if req.ChunkSize < s.cfg.MinChunkSize || req.ChunkSize > s.cfg.MaxChunkSize {
		return refused(wire.ReasonIncorrectChunkSize)
	}
	if !pathguard.ValidName(req.Name) {
		return refused(wire.ReasonInvalidFileName)
	}

	dir, err := pathguard.Resolve(s.cfg.RootDir, req.Directory)
	if err != nil {
		return refused(wire.ReasonNotADirectory)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return refused(wire.ReasonNotADirectory)
	}

	target := filepath.Join(dir, req.Name)
	if _, err := os.Stat(target); err == nil {
		return refused(wire.ReasonFileAlreadyExists)
	} else if !os.IsNotExist(err) {
		return errResp(wire.ReasonUnknownError, err.Error())
	}

	tmp, err := os.CreateTemp(dir, req.Name+".parcel-tmp-*")
	if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}

	s.tempFile = tmp
	s.tempPath = tmp.Name()
	s.destPath = target
	s.remaining = req.FileSize
	s.chunkSize = req.ChunkSize
	s.state = stateUpload

	return acceptedTransfer(0)
}

func (s *session) sendChunk(req *wire.SendChunk) response {
	n := int64(len(req.Data))

	wantFinal := s.remaining <= int64(s.chunkSize)
	valid := n != 0 && ((wantFinal && n == s.remaining) || (!wantFinal && n == int64(s.chunkSize)))
	if !valid {
		s.abortUpload()
		s.state = stateIdle
		return badRequestResp()
	}

	if _, err := s.tempFile.Write(req.Data); err != nil {
		s.abortUpload()
		s.state = stateIdle
		return errResp(wire.ReasonUnknownError, err.Error())
	}
	s.remaining -= n

	if s.remaining == 0 {
		return s.commitUpload()
	}
	return accepted(wire.ReasonChunkReceived)
}

// commitUpload performs the atomic rename that makes an uploaded file
// observable, grounded on the local backend's Save(): sync the temp file,
// close it, rename onto the destination, then sync the containing
// directory to commit the rename.
func (s *session) commitUpload() response {
	var resp response

	err := s.tempFile.Sync()
	if err == nil {
		err = s.tempFile.Close()
	}
	if err == nil {
		err = os.Rename(s.tempPath, s.destPath)
	}
	if err == nil {
		syncDir(filepath.Dir(s.destPath))
		resp = accepted(wire.ReasonTransferCompleted)
	} else {
		_ = os.Remove(s.tempPath)
		resp = errResp(wire.ReasonUnknownError, err.Error())
	}

	s.tempFile = nil
	s.tempPath = ""
	s.destPath = ""
	s.state = stateIdle
	return resp
}

func (s *session) beginDownload(req *wire.DownloadFile) response {
	if req.ChunkSize < s.cfg.MinChunkSize || req.ChunkSize > s.cfg.MaxChunkSize {
		return refused(wire.ReasonIncorrectChunkSize)
	}
	if !pathguard.ValidName(req.Name) {
		return refused(wire.ReasonInvalidFileName)
	}

	dir, err := pathguard.Resolve(s.cfg.RootDir, req.Directory)
	if err != nil {
		return refused(wire.ReasonNotADirectory)
	}
	dirInfo, err := os.Stat(dir)
	if err != nil || !dirInfo.IsDir() {
		return refused(wire.ReasonNotADirectory)
	}

	target := filepath.Join(dir, req.Name)
	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return refused(wire.ReasonFileNotFound)
	} else if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}
	if !info.Mode().IsRegular() {
		return refused(wire.ReasonNotAFile)
	}

	f, err := os.Open(target)
	if err != nil {
		return errResp(wire.ReasonUnknownError, err.Error())
	}

	s.srcFile = f
	s.remaining = info.Size()
	s.chunkSize = req.ChunkSize
	s.state = stateDownload

	return acceptedTransfer(info.Size())
}

func (s *session) receiveChunk() response {
	buf := make([]byte, s.chunkSize)
	if s.remaining < int64(s.chunkSize) {
		buf = buf[:s.remaining]
	}

	n, err := io.ReadFull(s.srcFile, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		s.abortDownload()
		s.state = stateIdle
		return errResp(wire.ReasonUnknownError, err.Error())
	}
	s.remaining -= int64(n)

	if s.remaining > 0 {
		return acceptedChunk(wire.ReasonChunkSent, buf[:n])
	}

	_ = s.srcFile.Close()
	s.srcFile = nil
	s.state = stateIdle
	return acceptedChunk(wire.ReasonTransferCompleted, buf[:n])
}
