package main

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/parcelio/parcel/internal/server"
	"github.com/parcelio/parcel/internal/token"
)

var runOpts struct {
	fileSizeLimit int64
	minChunkSize  int
	maxChunkSize  int
	profile       string
}

var cmdRun = &cobra.Command{
	Use:   "run DIR [PORT] [TOKEN]",
	Short: "Run the file-transfer server in the foreground",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  runRun,
}

func init() {
	cmdRun.Flags().Int64Var(&runOpts.fileSizeLimit, "file-size-limit", server.DefaultFileSizeLimit, "upload size limit in bytes; uploads of this size or larger are refused")
	cmdRun.Flags().IntVar(&runOpts.minChunkSize, "min-chunk-size", server.DefaultMinChunkSize, "smallest chunk size a transfer may negotiate")
	cmdRun.Flags().IntVar(&runOpts.maxChunkSize, "max-chunk-size", server.DefaultMaxChunkSize, "largest chunk size a transfer may negotiate")
	cmdRun.Flags().StringVar(&runOpts.profile, "profile", "", "enable pprof `mode` (cpu, mem, goroutine) and write its output to the working directory")
	cmdRoot.AddCommand(cmdRun)
}

// parseServerArgs applies the DIR [PORT] [TOKEN] convention shared by run
// and start: an omitted port falls back to server.DefaultPort, an omitted
// token is freshly generated and printed so the operator can capture it.
func parseServerArgs(args []string) (dir string, port int, tok string, err error) {
	dir = args[0]
	port = server.DefaultPort
	if len(args) >= 2 {
		port, err = strconv.Atoi(args[1])
		if err != nil {
			return "", 0, "", errors.Errorf("invalid port %q", args[1])
		}
	}
	if len(args) == 3 {
		tok = args[2]
		return dir, port, tok, nil
	}

	tok, err = token.Generate()
	if err != nil {
		return "", 0, "", errors.Wrap(err, "generate token")
	}
	Warnf("generated token: %s\n", tok)
	return dir, port, tok, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	dir, port, tok, err := parseServerArgs(args)
	if err != nil {
		return err
	}

	if runOpts.profile != "" {
		stop, err := startProfiling(runOpts.profile)
		if err != nil {
			return err
		}
		defer stop()
	}

	srv, err := server.New(server.Config{
		RootDir:       dir,
		Token:         tok,
		FileSizeLimit: runOpts.fileSizeLimit,
		MinChunkSize:  runOpts.minChunkSize,
		MaxChunkSize:  runOpts.maxChunkSize,
	})
	if err != nil {
		return err
	}

	addr := "127.0.0.1:" + strconv.Itoa(port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	Verbosef("listening on %s, root %s\n", addr, dir)

	return srv.Serve(cmd.Context(), ln)
}

// startProfiling wires github.com/pkg/profile's Start/Stop pair into the
// --profile flag; Stop writes the profile out on graceful shutdown.
func startProfiling(mode string) (func(), error) {
	var opt func(*profile.Profile)
	switch mode {
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfile
	case "goroutine":
		opt = profile.GoroutineProfile
	default:
		return nil, errors.Errorf("unknown profile mode %q", mode)
	}

	p := profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook)
	return p.Stop, nil
}
