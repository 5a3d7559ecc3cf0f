package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/models"
)

// Bank identifies a net-banking provider.
type Bank string

const (
	BankSBI   Bank = "sbi"
	BankHDFC  Bank = "hdfc"
	BankICICI Bank = "icici"
	BankAxis  Bank = "axis"
	BankKotak Bank = "kotak"
	BankPNB   Bank = "pnb"
)

var bankURLs = map[Bank]string{
	BankSBI:   "https://retail.onlinesbi.sbi/",
	BankHDFC:  "https://netbanking.hdfcbank.com/netbanking/",
	BankICICI: "https://infinity.icicibank.com/corp/AuthenticationController",
	BankAxis:  "https://omni.axisbank.co.in/axisretailbanking/",
	BankKotak: "https://netbanking.kotak.com/knb2/",
	BankPNB:   "https://netpnb.com/",
}

// Banks returns the supported banks in a stable order.
func Banks() []Bank {
	banks := make([]Bank, 0, len(bankURLs))
	for b := range bankURLs {
		banks = append(banks, b)
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i] < banks[j] })
	return banks
}

// BankURL looks up the login page of bank.
func BankURL(bank Bank) (string, bool) {
	url, ok := bankURLs[bank]
	return url, ok
}

// NetBankingState is a step of the redirect flow.
type NetBankingState int

const (
	AwaitingRedirectConfirmation NetBankingState = iota
	AwaitingExternalPayment
	AwaitingPaymentConfirmation
	NetBankingCompleted
)

func (s NetBankingState) String() string {
	switch s {
	case AwaitingRedirectConfirmation:
		return "awaiting_redirect_confirmation"
	case AwaitingExternalPayment:
		return "awaiting_external_payment"
	case AwaitingPaymentConfirmation:
		return "awaiting_payment_confirmation"
	case NetBankingCompleted:
		return "completed"
	}
	return fmt.Sprintf("NetBankingState(%d)", int(s))
}

// NetBanking sends the customer to their bank and waits for them to come back.
type NetBanking struct {
	port        ConfirmationPort
	browser     BrowserOpener
	stepTimeout time.Duration
	log         *logrus.Logger

	// OnState, when set, observes every state the flow enters.
	OnState func(NetBankingState)
}

func NewNetBanking(port ConfirmationPort, browser BrowserOpener, stepTimeout time.Duration, logger *logrus.Logger) *NetBanking {
	return &NetBanking{
		port:        port,
		browser:     browser,
		stepTimeout: stepTimeout,
		log:         logger,
	}
}

func (n *NetBanking) Method() models.PaymentMethod { return models.PaymentMethodNetBanking }

func (n *NetBanking) Validate(details Details) error {
	if err := checkMethod(models.PaymentMethodNetBanking, details); err != nil {
		return err
	}
	return validateDetails(details)
}

func (n *NetBanking) Authorize(ctx context.Context, details Details, amount Amount) error {
	if err := n.Validate(details); err != nil {
		return err
	}
	var bank Bank
	switch d := details.(type) {
	case NetBankingDetails:
		bank = Bank(d.Bank)
	case *NetBankingDetails:
		bank = Bank(d.Bank)
	}
	url, _ := BankURL(bank)

	logger := n.log.WithFields(logrus.Fields{"bank": bank, "amount": amount.String()})
	state := AwaitingRedirectConfirmation
	for state != NetBankingCompleted {
		if n.OnState != nil {
			n.OnState(state)
		}
		logger.WithField("state", state).Debug("Net banking step")

		next, err := n.step(ctx, state, bank, url, amount)
		if err != nil {
			logger.WithError(err).WithField("state", state).Info("Net banking aborted")
			return err
		}
		state = next
	}
	if n.OnState != nil {
		n.OnState(state)
	}
	return nil
}

// step runs one state under its own deadline.
func (n *NetBanking) step(ctx context.Context, state NetBankingState, bank Bank, url string, amount Amount) (NetBankingState, error) {
	stepCtx, cancel := context.WithTimeout(ctx, n.stepTimeout)
	defer cancel()

	switch state {
	case AwaitingRedirectConfirmation:
		err := n.ask(ctx, stepCtx, state, Prompt{
			Title:   "Net banking",
			Message: fmt.Sprintf("You will be redirected to %s to pay %s. Continue?", bank, amount),
		})
		if err != nil {
			return state, err
		}
		if err := n.browser.Open(url); err != nil {
			return state, fmt.Errorf("%w: could not open %s: %w", ErrPaymentDeclined, url, err)
		}
		return AwaitingExternalPayment, nil

	case AwaitingExternalPayment:
		err := n.ask(ctx, stepCtx, state, Prompt{
			Title:   "Net banking",
			Message: fmt.Sprintf("Complete the payment on the %s page, then confirm here.", bank),
		})
		if err != nil {
			return state, err
		}
		return AwaitingPaymentConfirmation, nil

	case AwaitingPaymentConfirmation:
		err := n.ask(ctx, stepCtx, state, Prompt{
			Title:   "Net banking",
			Message: fmt.Sprintf("Did %s confirm the payment of %s?", bank, amount),
		})
		if err != nil {
			return state, err
		}
		return NetBankingCompleted, nil
	}
	return state, fmt.Errorf("net banking: unexpected state %s", state)
}

// ask distinguishes a step timeout from the caller giving up.
func (n *NetBanking) ask(parent, stepCtx context.Context, state NetBankingState, prompt Prompt) error {
	ok, err := n.port.Confirm(stepCtx, prompt)
	switch {
	case err != nil && parent.Err() != nil:
		return fmt.Errorf("%w: %w", ErrPaymentCancelled, parent.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s timed out after %s", ErrPaymentDeclined, state, n.stepTimeout)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrPaymentDeclined, err)
	case !ok:
		return ErrPaymentCancelled
	}
	return nil
}
