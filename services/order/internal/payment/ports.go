package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/pkg/browser"
)

// Prompt is a yes/no question put to the customer.
type Prompt struct {
	Title   string
	Message string
}

// ConfirmationPort blocks until the customer answers or ctx ends.
type ConfirmationPort interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// BrowserOpener opens an external page for the customer.
type BrowserOpener interface {
	Open(url string) error
}

// SystemBrowser opens URLs in the desktop browser.
type SystemBrowser struct{}

func (SystemBrowser) Open(url string) error {
	return browser.OpenURL(url)
}

// ScriptedPort answers prompts from a fixed script. Once the script runs out
// it behaves like a customer who never answers and waits for ctx.
type ScriptedPort struct {
	mu      sync.Mutex
	answers []bool
	asked   []Prompt
}

func NewScriptedPort(answers ...bool) *ScriptedPort {
	return &ScriptedPort{answers: answers}
}

func (p *ScriptedPort) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	p.mu.Lock()
	p.asked = append(p.asked, prompt)
	if len(p.answers) > 0 {
		answer := p.answers[0]
		p.answers = p.answers[1:]
		p.mu.Unlock()
		return answer, nil
	}
	p.mu.Unlock()

	<-ctx.Done()
	return false, ctx.Err()
}

// Asked returns the prompts seen so far.
func (p *ScriptedPort) Asked() []Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Prompt(nil), p.asked...)
}

// ErrPopupBlocked is what a blocked browser window looks like to callers.
var ErrPopupBlocked = errors.New("popup blocked")

// RecordingBrowser records opened URLs instead of launching anything.
type RecordingBrowser struct {
	mu     sync.Mutex
	Err    error
	opened []string
}

func (b *RecordingBrowser) Open(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.opened = append(b.opened, url)
	return nil
}

func (b *RecordingBrowser) Opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.opened...)
}
