package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/vm"
	"github.com/spf13/cobra"
)

var codePath string

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Submit the creation of the wallet's account, or of a contract with --code",
	RunE:  accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.Flags().StringVarP(&codePath, "code", "c", "", "Path to a JSON file holding the contract code.")
}

func accountRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	var code vm.Code
	if codePath != "" {
		data, err := os.ReadFile(codePath)
		if err != nil {
			return fmt.Errorf("reading code: %w", err)
		}
		if err := json.Unmarshal(data, &code); err != nil {
			return fmt.Errorf("decoding code: %w", err)
		}
	}

	// New accounts start with the balance the network agreed on.
	var gen genesis.Genesis
	if err := send(http.MethodGet, "/v1/genesis/list", nil, &gen); err != nil {
		return fmt.Errorf("retrieving genesis: %w", err)
	}

	account := database.NewAccountFromKey(privateKey, gen.StartingBalance, code)

	tx, err := database.NewCreateAccountTx(account)
	if err != nil {
		return err
	}

	var resp struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	if err := send(http.MethodPost, "/v1/tx/submit", tx, &resp); err != nil {
		return err
	}

	fmt.Println("Account:", account.Key())
	fmt.Println("Tx:     ", resp.ID)
	fmt.Println("Status: ", resp.Status)

	return nil
}
