package main

import (
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/parcelio/parcel/internal/server"
)

// GlobalOptions hold the options shared by every subcommand that talks to
// a server: hostname, port and token, resolved the way
// cmd/restic/global.go resolves GlobalOptions — pflag defaults overridden
// by environment variables, read once per command's flag registration.
type GlobalOptions struct {
	Hostname string
	Port     int
	Token    string
	Timeout  int // milliseconds

	Quiet   bool
	Verbose int

	stdout, stderr *os.File

	verbosity uint
}

var globalOptions = GlobalOptions{
	stdout: os.Stdout,
	stderr: os.Stderr,
}

// AddFlags registers the flags common to client subcommands. Per spec §6,
// REMOFILE_HOSTNAME / REMOFILE_PORT / REMOFILE_TOKEN names are kept
// verbatim for compatibility with existing deployments.
func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.Hostname, "host", "H", "localhost", "server `hostname` (default: $REMOFILE_HOSTNAME)")
	f.IntVarP(&opts.Port, "port", "P", server.DefaultPort, "server `port` (default: $REMOFILE_PORT)")
	f.StringVarP(&opts.Token, "token", "T", "", "authentication `token` (default: $REMOFILE_TOKEN)")
	f.IntVarP(&opts.Timeout, "timeout", "t", 5000, "per-request timeout in `ms`")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "do not print informational messages")
	f.CountVarP(&opts.Verbose, "verbose", "v", "be verbose (specify multiple times for more)")

	if h := os.Getenv("REMOFILE_HOSTNAME"); h != "" {
		opts.Hostname = h
	}
	if p := os.Getenv("REMOFILE_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			opts.Port = n
		}
	}
	if t := os.Getenv("REMOFILE_TOKEN"); t != "" {
		opts.Token = t
	}
}

// Address returns the host:port pair to dial, rewriting "localhost" to
// "127.0.0.1" per spec §6.
func (opts *GlobalOptions) Address() string {
	host := opts.Hostname
	if host == "localhost" {
		host = "127.0.0.1"
	}
	return host + ":" + strconv.Itoa(opts.Port)
}

// PreRun resolves verbosity the way cmd/restic's PersistentPreRunE does.
func (opts *GlobalOptions) PreRun() {
	opts.verbosity = 1
	switch {
	case opts.Verbose >= 2:
		opts.verbosity = 3
	case opts.Verbose > 0:
		opts.verbosity = 2
	case opts.Quiet:
		opts.verbosity = 0
	}
}
