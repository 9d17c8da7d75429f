package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parcelio/parcel/internal/keys"
)

var cmdGenerateKeys = &cobra.Command{
	Use:   "generate-keys",
	Short: "Generate a NaCl box keypair (not currently wired into authentication)",
	Args:  cobra.NoArgs,
	RunE:  runGenerateKeys,
}

func init() {
	cmdRoot.AddCommand(cmdGenerateKeys)
}

func runGenerateKeys(cmd *cobra.Command, args []string) error {
	pair, err := keys.Generate()
	if err != nil {
		return err
	}
	fmt.Fprintf(globalOptions.stdout, "public:  %s\nprivate: %s\n", pair.PublicKey, pair.PrivateKey)
	return nil
}
