package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelio/parcel/internal/token"
)

var cmdGenerateToken = &cobra.Command{
	Use:   "generate-token",
	Short: "Generate a random authentication token",
	Args:  cobra.NoArgs,
	RunE:  runGenerateToken,
}

func init() {
	cmdRoot.AddCommand(cmdGenerateToken)
}

func runGenerateToken(cmd *cobra.Command, args []string) error {
	tok, err := token.Generate()
	if err != nil {
		return err
	}
	fmt.Fprintln(globalOptions.stdout, tok)
	return nil
}
