package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

var (
	qrOut  string
	qrSize int
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "List, rename and show accounts",
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		accounts, err := a.wallets.Accounts.List()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			pterm.Info.Println("No accounts. Run 'klingwallet wallet create' or 'klingwallet wallet import'.")
			return nil
		}
		data := pterm.TableData{{"Key path", "Name", "Address"}}
		for _, acct := range accounts {
			data = append(data, []string{acct.KeyPath, acct.DisplayName, acct.Address.Hex()})
		}
		if err := pterm.DefaultTable.WithHasHeader(true).WithData(data).Render(); err != nil {
			return err
		}

		orphans, err := a.wallets.Orphans()
		if err != nil {
			return err
		}
		if len(orphans) > 0 {
			pterm.Warning.Printfln("Incomplete accounts (record or encrypted wallet missing): %s", strings.Join(orphans, ", "))
		}
		return nil
	},
}

var accountRenameCmd = &cobra.Command{
	Use:   "rename <account> <name>",
	Short: "Change the display name of an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.resolveAccount(args[0])
		if err != nil {
			return err
		}
		renamed, err := a.wallets.Accounts.Rename(acct.KeyPath, args[1])
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Renamed %s to %q", renamed.Address.Hex(), renamed.DisplayName)
		return nil
	},
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <account>",
	Short: "Delete an account and its encrypted wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.resolveAccount(args[0])
		if err != nil {
			return err
		}
		if !confirm(fmt.Sprintf("Remove %s? Funds are lost without the mnemonic", acct.Address.Hex())) {
			return nil
		}
		password, err := a.unlock()
		if err != nil {
			return err
		}
		if err := a.wallets.Remove(acct.KeyPath, password); err != nil {
			return err
		}
		pterm.Success.Printfln("Removed %s", acct.Address.Hex())
		return nil
	},
}

var accountQRCmd = &cobra.Command{
	Use:   "qr [account]",
	Short: "Show the receive address as a QR code",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.resolveAccount(firstArg(args))
		if err != nil {
			return err
		}
		// EIP-681 payment URI.
		content := "ethereum:" + acct.Address.Hex()

		if qrOut != "" {
			if err := qrcode.WriteFile(content, qrcode.Medium, qrSize, qrOut); err != nil {
				return fmt.Errorf("write QR code: %w", err)
			}
			pterm.Success.Printfln("Wrote %s", qrOut)
			return nil
		}

		qr, err := qrcode.New(content, qrcode.Medium)
		if err != nil {
			return fmt.Errorf("create QR code: %w", err)
		}
		fmt.Print(qr.ToSmallString(false))
		fmt.Println(acct.Address.Hex())
		return nil
	},
}

func init() {
	accountQRCmd.Flags().StringVarP(&qrOut, "out", "o", "", "Write a PNG to this file instead of the terminal")
	accountQRCmd.Flags().IntVar(&qrSize, "size", 256, "PNG size in pixels")

	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountRenameCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	accountCmd.AddCommand(accountQRCmd)
}
