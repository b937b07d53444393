// klingwallet is the command-line front end of the wallet: it creates and
// imports HD wallets, sends native and paymaster-sponsored transfers, and
// tracks submitted transactions until they settle.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/klingnet-wallet/config"
	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// GlobalFlags are accepted by every command.
type GlobalFlags struct {
	DataDir     string
	Network     string
	LogLevel    string
	MetricsAddr string
}

var (
	globalFlags GlobalFlags
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "klingwallet",
	Short:         "Non-custodial EVM wallet",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(globalFlags.DataDir)
		if err != nil {
			return err
		}
		if globalFlags.Network != "" {
			if cfg.Network, err = types.ParseNetwork(globalFlags.Network); err != nil {
				return err
			}
		}
		if globalFlags.LogLevel != "" {
			cfg.Log.Level = globalFlags.LogLevel
		}
		return klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.DataDir, "datadir", "", "Data directory (default: ~/.klingwallet)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Network, "network", "n", "", "Network: mainnet, sepolia or zksync")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&globalFlags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(pendingCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	klog.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
