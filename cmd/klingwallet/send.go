package main

import (
	"errors"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-wallet/internal/network"
	"github.com/Klingon-tech/klingnet-wallet/internal/transfer"
	"github.com/Klingon-tech/klingnet-wallet/pkg/tx"
)

var (
	sendFrom   string
	sendIntent tx.Intent
)

var sendCmd = &cobra.Command{
	Use:   "send <to> <amount>",
	Short: "Send ETH or a token",
	Long: `Send ETH or a token from one of your accounts. Amounts are in whole
units, e.g. 1.5 ETH or 12.25 USDC.

On networks with a paymaster, USDC transfers are sent as sponsored
UserOperations: gas is paid in USDC and no ETH is needed.`,
	Example: `  klingwallet send 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed 0.1
  klingwallet -n sepolia send 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed 5 --token USDC`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.resolveAccount(sendFrom)
		if err != nil {
			return err
		}
		password, err := a.unlock()
		if err != nil {
			return err
		}
		a.session.SelectAccount(acct.KeyPath)

		net := a.session.Network()
		svc, adapter, err := a.transferService(cmd.Context(), net)
		if err != nil {
			return err
		}

		intent := sendIntent
		intent.To, intent.Value = args[0], args[1]
		spinner, _ := pterm.DefaultSpinner.Start("Submitting transfer")
		sub, err := svc.Send(cmd.Context(), transfer.Request{
			Network:  net,
			KeyPath:  acct.KeyPath,
			Password: password,
			Intent:   intent,
		})
		if err != nil {
			spinner.Fail("Transfer failed")
			if errors.Is(err, network.ErrUnknownToken) {
				var symbols []string
				for _, t := range adapter.Tokens() {
					symbols = append(symbols, t.Symbol)
				}
				pterm.Info.Printfln("Tokens on %s: %s", net, strings.Join(symbols, ", "))
			}
			return err
		}
		spinner.Success("Transfer submitted")

		kind := "transaction"
		if sub.Sponsored {
			kind = "user operation"
		}
		pterm.DefaultTable.WithHasHeader(false).WithData(pterm.TableData{
			{"Network", sub.Network.String()},
			{"From", sub.From.Hex()},
			{"Kind", kind},
			{"Hash", sub.Hash},
		}).Render()
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendFrom, "from", "", "Sending account key path or address (default: first account)")
	sendCmd.Flags().StringVar(&sendIntent.Token, "token", "", "Token symbol, e.g. USDC (default: ETH)")
	sendCmd.Flags().StringVar(&sendIntent.Data, "data", "", "Hex call data for ETH transfers")
	sendCmd.Flags().StringVar(&sendIntent.GasLimit, "gas-limit", "", "Gas limit (default: estimated)")
	sendCmd.Flags().StringVar(&sendIntent.MaxFeePerGas, "max-fee", "", "Max fee per gas in wei")
	sendCmd.Flags().StringVar(&sendIntent.MaxPriorityFeePerGas, "max-priority-fee", "", "Max priority fee per gas in wei")
}
