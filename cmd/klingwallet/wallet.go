package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-wallet/config"
	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
)

var (
	initForce bool

	walletName     string
	walletWords    int
	walletLanguage string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return err
		}
		path := cfg.ConfigFile()
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path, cfg.Network); err != nil {
			return err
		}
		pterm.Success.Printfln("Wrote %s", path)
		return nil
	},
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Create, import and translate wallets",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a new wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		bits, err := wordsToBits(walletWords)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := passwordForAdd(a)
		if err != nil {
			return err
		}
		created, err := a.wallets.Create(cmd.Context(), password, walletName, bits)
		if err != nil {
			return err
		}

		pterm.Success.Printfln("Created account %s (%s)", created.Account.Address.Hex(), created.Account.KeyPath)
		pterm.Warning.Println("Write down one of these phrases. It will not be shown again.")
		pterm.DefaultTable.WithHasHeader(false).WithData(pterm.TableData{
			{"English", created.English},
			{"中文", created.Chinese},
		}).Render()
		return nil
	},
}

var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore a wallet from an English or Chinese mnemonic",
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := wallet.ParseLanguage(walletLanguage)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		phrase, err := readLine("Mnemonic: ")
		if err != nil {
			return err
		}
		password, err := passwordForAdd(a)
		if err != nil {
			return err
		}
		acct, detected, err := a.wallets.Import(cmd.Context(), phrase, lang, password, walletName)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Imported %s phrase as account %s (%s)", detected, acct.Address.Hex(), acct.KeyPath)
		return nil
	},
}

var walletTranslateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Convert a mnemonic between English and Chinese",
	Long: `Convert a mnemonic between the English and Chinese wordlists. Both
phrases encode the same entropy and restore the same account.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		phrase, err := readLine("Mnemonic: ")
		if err != nil {
			return err
		}
		lang, err := wallet.DetectLanguage(phrase, wallet.LanguageAuto)
		if err != nil {
			return err
		}
		var out string
		if lang == wallet.LanguageChinese {
			out, err = wallet.ToEnglish(phrase)
		} else {
			out, err = wallet.ToChinese(phrase)
		}
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var walletExportCmd = &cobra.Command{
	Use:   "export [account]",
	Short: "Show the mnemonics of an account",
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
		password, err := a.unlock()
		if err != nil {
			return err
		}
		english, chinese, err := a.wallets.Mnemonics(acct.KeyPath, password)
		if err != nil {
			return err
		}
		pterm.DefaultTable.WithHasHeader(false).WithData(pterm.TableData{
			{"English", english},
			{"中文", chinese},
		}).Render()
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")

	walletCreateCmd.Flags().StringVar(&walletName, "name", "", "Display name of the account")
	walletCreateCmd.Flags().IntVar(&walletWords, "words", 12, "Mnemonic length: 12 or 24 words")
	walletImportCmd.Flags().StringVar(&walletName, "name", "", "Display name of the account")
	walletImportCmd.Flags().StringVar(&walletLanguage, "language", "auto", "Phrase language: auto, en or zh")

	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletImportCmd)
	walletCmd.AddCommand(walletTranslateCmd)
	walletCmd.AddCommand(walletExportCmd)
}

// passwordForAdd asks for a new password on the first wallet and for the
// existing one afterwards.
func passwordForAdd(a *app) ([]byte, error) {
	exists, err := a.wallets.Credentials.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return readNewPassword()
	}
	return a.unlock()
}

func wordsToBits(words int) (int, error) {
	switch words {
	case 12:
		return wallet.EntropyBits128, nil
	case 24:
		return wallet.EntropyBits256, nil
	default:
		return 0, fmt.Errorf("--words must be 12 or 24, got %d", words)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
