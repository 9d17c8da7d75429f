package main

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var cmdDocs = &cobra.Command{
	Use:   "docs [flags]",
	Short: "Generate manual pages and auto-completion files (bash, fish, zsh)",
	Long: `
The "docs" command writes automatically generated files (like the man pages
and the auto-completion files for bash, fish and zsh).
`,
	DisableAutoGenTag: true,
	RunE:              runDocs,
}

type docsOptions struct {
	ManDir             string
	BashCompletionFile string
	FishCompletionFile string
	ZSHCompletionFile  string
}

var docsOpts docsOptions

func init() {
	cmdRoot.AddCommand(cmdDocs)
	fs := cmdDocs.Flags()
	fs.StringVar(&docsOpts.ManDir, "man", "", "write man pages to `directory`")
	fs.StringVar(&docsOpts.BashCompletionFile, "bash-completion", "", "write bash completion `file`")
	fs.StringVar(&docsOpts.FishCompletionFile, "fish-completion", "", "write fish completion `file`")
	fs.StringVar(&docsOpts.ZSHCompletionFile, "zsh-completion", "", "write zsh completion `file`")
}

func writeManpages(dir string) error {
	date, err := time.Parse("Jan 2006", "Jan 2017")
	if err != nil {
		return err
	}

	header := &doc.GenManHeader{
		Title:   "parcel",
		Section: "1",
		Source:  "generated by `parcel docs`",
		Date:    &date,
	}

	Verbosef("writing man pages to directory %v\n", dir)
	return doc.GenManTree(cmdRoot, header, dir)
}

func writeBashCompletion(file string) error {
	Verbosef("writing bash completion file to %v\n", file)
	return cmdRoot.GenBashCompletionFile(file)
}

func writeFishCompletion(file string) error {
	Verbosef("writing fish completion file to %v\n", file)
	return cmdRoot.GenFishCompletionFile(file, true)
}

func writeZSHCompletion(file string) error {
	Verbosef("writing zsh completion file to %v\n", file)
	return cmdRoot.GenZshCompletionFile(file)
}

func runDocs(_ *cobra.Command, _ []string) error {
	if docsOpts.ManDir != "" {
		if err := writeManpages(docsOpts.ManDir); err != nil {
			return err
		}
	}
	if docsOpts.BashCompletionFile != "" {
		if err := writeBashCompletion(docsOpts.BashCompletionFile); err != nil {
			return err
		}
	}
	if docsOpts.FishCompletionFile != "" {
		if err := writeFishCompletion(docsOpts.FishCompletionFile); err != nil {
			return err
		}
	}
	if docsOpts.ZSHCompletionFile != "" {
		if err := writeZSHCompletion(docsOpts.ZSHCompletionFile); err != nil {
			return err
		}
	}

	var empty docsOptions
	if docsOpts == empty {
		return errors.New("nothing to do, please specify at least one output file/dir")
	}

	return nil
}
