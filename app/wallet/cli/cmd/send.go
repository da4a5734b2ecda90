package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	to       string
	value    uint64
	gasLimit uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a signed transaction",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address or code hash of the receiver.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64VarP(&gasLimit, "gas-limit", "g", 0, "Maximum gas to pay for contract execution.")
	sendCmd.MarkFlagRequired("to")
}

func sendRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	tx, err := database.NewTransactTx(privateKey, to, value, gasLimit)
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

	fmt.Println("Tx:    ", resp.ID)
	fmt.Println("Status:", resp.Status)

	return nil
}
