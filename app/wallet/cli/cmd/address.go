package cmd

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var showPrivate bool

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address for the specific wallet",
	RunE:  addressRun,
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.Flags().BoolVar(&showPrivate, "show-private", false, "Also print the private key as hex.")
}

func addressRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	fmt.Println(signature.PublicKeyToAddress(privateKey.PublicKey))
	if showPrivate {
		fmt.Println(signature.PrivateKeyString(privateKey))
	}

	return nil
}
