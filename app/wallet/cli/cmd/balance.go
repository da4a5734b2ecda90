package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var balanceKey string

type account struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Balance     uint64 `json:"balance"`
	IsContract  bool   `json:"is_contract"`
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance, or the balance of --key.",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceKey, "key", "k", "", "Address, code hash or name of the account.")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	key := balanceKey
	if key == "" {
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}
		key = signature.PublicKeyToAddress(privateKey.PublicKey)
	}

	var acct account
	if err := send(http.MethodGet, "/v1/accounts/list/"+key, nil, &acct); err != nil {
		return err
	}

	fmt.Println("For Account:", acct.Key)
	if acct.Name != acct.Key {
		fmt.Println("Name:       ", acct.Name)
	}
	fmt.Println("Balance:    ", acct.Balance)
	fmt.Println("Contract:   ", acct.IsContract)
	fmt.Println("Pending Txs:", acct.Uncommitted)

	return nil
}
