// Package terminal runs a checkout session on a text console.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/payment"
)

// ErrInputClosed is returned once the input stream is exhausted.
var ErrInputClosed = errors.New("input closed")

// Console reads answers line by line. A single goroutine owns the reader so
// a prompt abandoned on ctx does not lose the next line.
type Console struct {
	out   io.Writer
	lines chan string
	once  sync.Once
	in    *bufio.Scanner
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{out: out, lines: make(chan string), in: bufio.NewScanner(in)}
}

func (c *Console) start() {
	c.once.Do(func() {
		go func() {
			defer close(c.lines)
			for c.in.Scan() {
				c.lines <- strings.TrimSpace(c.in.Text())
			}
		}()
	})
}

// Printf writes to the console output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// ReadLine prints label and waits for one line of input.
func (c *Console) ReadLine(ctx context.Context, label string) (string, error) {
	c.start()
	fmt.Fprint(c.out, label)
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", ErrInputClosed
		}
		return line, nil
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	}
}

// Confirm implements payment.ConfirmationPort with a y/n question.
func (c *Console) Confirm(ctx context.Context, prompt payment.Prompt) (bool, error) {
	c.Printf("\n%s\n%s\n", prompt.Title, prompt.Message)
	for {
		answer, err := c.ReadLine(ctx, "Continue? [y/n]: ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.Printf("Please answer y or n.\n")
	}
}

// Redirector announces the redirect and, after the delay, shows the order
// detail fetched from the order service.
type Redirector struct {
	ctx  context.Context
	view *OrderView
	log  *logrus.Logger
	done chan uuid.UUID
}

func NewRedirector(ctx context.Context, view *OrderView, logger *logrus.Logger) *Redirector {
	return &Redirector{ctx: ctx, view: view, log: logger, done: make(chan uuid.UUID, 1)}
}

func (r *Redirector) ScheduleRedirect(orderID uuid.UUID, after time.Duration) {
	r.view.console.Printf("Redirecting to your order in %s...\n", after)
	time.AfterFunc(after, func() {
		logger := r.log.WithField("order_id", orderID)
		logger.Debug("Redirecting to order detail")
		if err := r.view.Show(r.ctx, orderID); err != nil {
			logger.WithError(err).Error("Failed to load order detail")
			r.view.console.Printf("Could not load your order right now.\n")
		}
		select {
		case r.done <- orderID:
		default:
		}
	})
}

// Done delivers the order id once its detail has been shown.
func (r *Redirector) Done() <-chan uuid.UUID {
	return r.done
}
