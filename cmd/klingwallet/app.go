package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	klog "github.com/Klingon-tech/klingnet-wallet/internal/log"
	"github.com/Klingon-tech/klingnet-wallet/internal/metrics"
	"github.com/Klingon-tech/klingnet-wallet/internal/network"
	"github.com/Klingon-tech/klingnet-wallet/internal/pending"
	"github.com/Klingon-tech/klingnet-wallet/internal/session"
	"github.com/Klingon-tech/klingnet-wallet/internal/storage"
	"github.com/Klingon-tech/klingnet-wallet/internal/transfer"
	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-wallet/pkg/types"
)

// app wires the engine for one command invocation.
type app struct {
	store   *storage.Store
	metrics *metrics.Metrics
	wallets *wallet.Manager
	pending *pending.Tracker
	session *session.Context

	metricsSrv *http.Server
	adapters   []network.Adapter
}

func openApp() (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	store, err := storage.Open(storage.BadgerOpener(cfg.StoreDir()), storage.WithUpgradeHook(m.Upgrade))
	if err != nil {
		return nil, fmt.Errorf("open wallet store: %w", err)
	}

	wallets := wallet.NewManager(store, wallet.WithMetrics(m))
	a := &app{
		store:   store,
		metrics: m,
		wallets: wallets,
		pending: pending.NewTracker(store, m),
		session: session.New(wallets, cfg.Session.TTL, cfg.Network),
	}

	if globalFlags.MetricsAddr != "" {
		a.serveMetrics(reg, globalFlags.MetricsAddr)
	}
	return a, nil
}

func (a *app) serveMetrics(reg *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Logger.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	klog.Logger.Info().Str("addr", addr).Msg("Serving metrics")
}

func (a *app) Close() {
	for _, ad := range a.adapters {
		if c, ok := ad.Provider().(interface{ Close() }); ok {
			c.Close()
		}
	}
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.metricsSrv.Shutdown(ctx)
	}
	if err := a.store.Close(); err != nil {
		klog.Storage.Error().Err(err).Msg("Close wallet store")
	}
}

// adapter connects to the configured endpoints of net.
func (a *app) adapter(ctx context.Context, net types.Network) (network.Adapter, error) {
	ep, err := cfg.Endpoints(net)
	if err != nil {
		return nil, err
	}
	ad, err := network.Connect(ctx, net, ep)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", net, err)
	}
	a.adapters = append(a.adapters, ad)
	return ad, nil
}

// transferService returns a service that can send on net.
func (a *app) transferService(ctx context.Context, net types.Network) (*transfer.Service, network.Adapter, error) {
	ad, err := a.adapter(ctx, net)
	if err != nil {
		return nil, nil, err
	}
	svc, err := transfer.NewService(transfer.Config{
		Wallets:  a.wallets,
		Pending:  a.pending,
		Adapters: []network.Adapter{ad},
		Metrics:  a.metrics,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, ad, nil
}

// resolveAccount finds an account by key-path or address. An empty ref
// selects the first account.
func (a *app) resolveAccount(ref string) (*wallet.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		accounts, err := a.wallets.Accounts.List()
		if err != nil {
			return nil, err
		}
		if len(accounts) == 0 {
			return nil, fmt.Errorf("no accounts; run 'klingwallet wallet create' first")
		}
		return accounts[0], nil
	}
	if strings.HasPrefix(ref, "0x") || strings.HasPrefix(ref, "0X") {
		addr, err := types.ParseAddress(ref)
		if err != nil {
			return nil, err
		}
		return a.wallets.Accounts.FindByAddress(addr)
	}
	return a.wallets.Accounts.Get(ref)
}

// unlock asks for the password and opens the session with it.
func (a *app) unlock() ([]byte, error) {
	password, err := readPassword("Password: ")
	if err != nil {
		return nil, err
	}
	if err := a.session.Unlock(password); err != nil {
		return nil, err
	}
	return password, nil
}
