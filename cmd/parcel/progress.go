package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// stdoutCanUpdateStatus reports whether stdout is an interactive terminal,
// in which case progress can be rendered as a single updating line instead
// of one line per update.
func stdoutCanUpdateStatus() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// stdoutTerminalWidth returns the terminal width, or 0 if it cannot be
// determined (e.g. stdout is redirected to a file).
func stdoutTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

func clearLine(w int) string {
	if w <= 0 {
		return ""
	}
	return "\r" + strings.Repeat(" ", w) + "\r"
}

// transferProgress renders one line of upload/download progress, updated
// in place on an interactive terminal. It implements client.ChunkCallback.
type transferProgress struct {
	op              string
	show            bool
	canUpdateStatus bool
	start           time.Time
}

func newTransferProgress(op string, show bool) *transferProgress {
	return &transferProgress{op: op, show: show, canUpdateStatus: stdoutCanUpdateStatus(), start: time.Now()}
}

// callback satisfies client.ChunkCallback: it always continues the
// transfer (returns true) and never cancels on its own account.
func (p *transferProgress) callback(chunkBytes int, remainingBefore, fileSize int64, name string) bool {
	if !p.show {
		return true
	}

	sent := fileSize - remainingBefore + int64(chunkBytes)
	var status string
	if fileSize == 0 {
		status = fmt.Sprintf("[%s] %s  %d bytes", formatDuration(time.Since(p.start)), p.op, sent)
	} else {
		pct := float64(sent) / float64(fileSize) * 100
		status = fmt.Sprintf("[%s] %s  %5.1f%%  %d / %d  %s",
			formatDuration(time.Since(p.start)), p.op, pct, sent, fileSize, name)
	}

	p.print(status, sent == fileSize)
	return true
}

func (p *transferProgress) print(status string, final bool) {
	w := stdoutTerminalWidth()
	if w > 0 {
		if w < 3 {
			status = status[:min(len(status), w)]
		} else if len(status) > w-3 {
			status = status[:w-3] + "..."
		}
	}

	var clear, carriageControl string
	if p.canUpdateStatus {
		clear = clearLine(w)
		carriageControl = "\r"
	} else {
		carriageControl = "\n"
	}

	_, _ = os.Stdout.WriteString(clear + status + carriageControl)
	if final && p.canUpdateStatus {
		_, _ = os.Stdout.WriteString("\n")
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
