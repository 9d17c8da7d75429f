package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/parcelio/parcel/internal/debug"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

var version = "0.1.0"

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "parcel",
	Short: "Authenticated file transfer over a single TCP connection",
	Long: `
parcel exposes a directory tree on a host to remote clients over TCP,
jailing every client-supplied path inside a configured root.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		globalOptions.PreRun()
		return nil
	},
}

func main() {
	debug.Log("main %#v", os.Args)
	debug.Log("parcel %s compiled with %v on %v/%v", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	ctx := createGlobalContext()
	err := cmdRoot.ExecuteContext(ctx)

	if err == nil {
		err = ctx.Err()
	}

	if err != nil {
		// spec §6: exit code 0 on success, 1 on any user-visible failure
		// with a single-line message; the client's typed error taxonomy
		// (spec §7) is for callers discriminating with errors.As, not for
		// a richer exit-code surface.
		fmt.Fprintf(globalOptions.stderr, "%v\n", err)
		Exit(1)
	}

	Exit(0)
}
