package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storefront/platform/services/order/internal/checkout"
	"github.com/storefront/platform/services/order/internal/config"
	"github.com/storefront/platform/services/order/internal/orderclient"
	"github.com/storefront/platform/services/order/internal/payment"
	"github.com/storefront/platform/services/order/internal/terminal"
)

func main() {
	var cfg config.CheckoutConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "checkout: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := terminal.NewConsole(os.Stdin, os.Stdout)
	orders := orderclient.NewOrderClient(cfg.OrderServiceURL, cfg.AccessToken, logger)
	view := terminal.NewOrderView(orders, console)

	if len(os.Args) > 1 {
		err := view.Run(ctx, os.Args[1:])
		if errors.Is(err, terminal.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if err != nil {
			logger.WithError(err).Error("Command failed")
			os.Exit(1)
		}
		return
	}

	redirector := terminal.NewRedirector(ctx, view, logger)

	registry := payment.NewRegistry(
		payment.COD{},
		payment.NewCard(console),
		payment.NewUPI(console),
		payment.NewNetBanking(console, payment.SystemBrowser{}, cfg.NetBankingStepTimeout, logger),
	)

	orch := checkout.NewOrchestrator(
		registry,
		orders,
		orderclient.NewCartClient(cfg.CartServiceURL, cfg.AccessToken, logger),
		redirector,
		checkout.Pricing{
			ShippingFee:           cfg.ShippingFee,
			FreeShippingThreshold: cfg.FreeShippingThreshold,
			TaxRate:               cfg.TaxRate,
			Currency:              cfg.Currency,
		},
		logger,
	)
	orch.SetRedirectDelay(cfg.RedirectDelay)

	order, err := terminal.NewWizard(orch, console).Run(ctx)
	switch {
	case errors.Is(err, terminal.ErrAborted), errors.Is(err, context.Canceled):
		fmt.Println("Checkout cancelled.")
		os.Exit(130)
	case errors.Is(err, checkout.ErrEmptyCart):
		fmt.Println("Your cart is empty.")
		os.Exit(1)
	case err != nil:
		logger.WithError(err).Error("Checkout failed")
		os.Exit(1)
	}

	select {
	case <-redirector.Done():
	case <-time.After(cfg.RedirectDelay + time.Second):
	case <-ctx.Done():
	}
	logger.WithField("order_id", order.ID).Info("Checkout finished")
}
