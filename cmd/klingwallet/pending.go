package main

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/transfer"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

var watchInterval time.Duration

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Track submitted transfers",
}

var pendingListCmd = &cobra.Command{
	Use:   "list [account]",
	Short: "List transfers that have not settled yet",
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
		data := pterm.TableData{{"Network", "Hash"}}
		for _, net := range types.Networks {
			hashes, err := a.pending.List(net, acct.Address)
			if err != nil {
				return err
			}
			for _, h := range hashes {
				data = append(data, []string{net.String(), h})
			}
		}
		if len(data) == 1 {
			pterm.Info.Printfln("No pending transfers for %s", acct.Address.Hex())
			return nil
		}
		return pterm.DefaultTable.WithHasHeader(true).WithData(data).Render()
	},
}

var pendingReconcileCmd = &cobra.Command{
	Use:   "reconcile [account]",
	Short: "Check pending transfers and drop the settled ones",
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
		svc, _, err := a.transferService(cmd.Context(), cfg.Network)
		if err != nil {
			return err
		}
		outcomes, err := svc.Confirm(cmd.Context(), cfg.Network, acct.KeyPath)
		if err != nil {
			return err
		}
		printOutcomes(outcomes)
		return nil
	},
}

var pendingWatchCmd = &cobra.Command{
	Use:   "watch [account]",
	Short: "Reconcile pending transfers periodically until interrupted",
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
		ctx := cmd.Context()
		svc, _, err := a.transferService(ctx, cfg.Network)
		if err != nil {
			return err
		}

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			if err := watchOnce(ctx, svc, cfg.Network, acct.KeyPath); err != nil {
				klog.Pending.Warn().Err(err).Msg("Reconcile failed")
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func watchOnce(ctx context.Context, svc *transfer.Service, net types.Network, keyPath string) error {
	outcomes, err := svc.Confirm(ctx, net, keyPath)
	if err != nil {
		return err
	}
	if len(outcomes) > 0 {
		printOutcomes(outcomes)
	}
	return nil
}

func printOutcomes(outcomes []transfer.Outcome) {
	if len(outcomes) == 0 {
		pterm.Info.Println("Nothing settled yet")
		return
	}
	for _, o := range outcomes {
		if o.State == transfer.StateConfirmed {
			pterm.Success.Printfln("%s confirmed", o.Hash)
		} else {
			pterm.Error.Printfln("%s failed", o.Hash)
		}
	}
}

func init() {
	pendingWatchCmd.Flags().DurationVar(&watchInterval, "interval", 15*time.Second, "Time between checks")

	pendingCmd.AddCommand(pendingListCmd)
	pendingCmd.AddCommand(pendingReconcileCmd)
	pendingCmd.AddCommand(pendingWatchCmd)
}
