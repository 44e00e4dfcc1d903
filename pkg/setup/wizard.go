package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newsdigest/pkg/domain"
	"github.com/umputun/newsdigest/pkg/repository"
)

// ErrCanceled is returned by the wizard when the user declines the summary
var ErrCanceled = errors.New("setup canceled")

// Wizard runs the setup conversation on a line-oriented console
type Wizard struct {
	conv *Conversation
	in   *bufio.Scanner
	out  io.Writer
}

// NewWizard makes a console wizard reading answers from in and printing replies to out
func NewWizard(conv *Conversation, in io.Reader, out io.Writer) *Wizard {
	return &Wizard{conv: conv, in: bufio.NewScanner(in), out: out}
}

// Run asks the questions until the settings are confirmed or declined. Confirmed settings are
// returned after the conversation saved them.
func (w *Wizard) Run(ctx context.Context) (domain.Settings, error) {
	st, reply := w.conv.Start(ctx)
	for {
		if _, err := fmt.Fprintln(w.out, reply); err != nil {
			return domain.Settings{}, fmt.Errorf("write reply: %w", err)
		}
		if st.Stage == StageDone {
			break
		}
		if err := ctx.Err(); err != nil {
			return domain.Settings{}, err
		}

		if _, err := fmt.Fprint(w.out, "> "); err != nil {
			return domain.Settings{}, fmt.Errorf("write prompt: %w", err)
		}
		if !w.in.Scan() {
			if err := w.in.Err(); err != nil {
				return domain.Settings{}, fmt.Errorf("read answer: %w", err)
			}
			return domain.Settings{}, fmt.Errorf("read answer: %w", io.ErrUnexpectedEOF)
		}
		st, reply = w.conv.Step(ctx, w.in.Text(), st)
	}

	if !st.Confirmed {
		return domain.Settings{}, ErrCanceled
	}
	return st.Draft, nil
}

// EnsureSettings loads saved settings and runs the wizard only if nothing was saved yet.
// Broken settings are reported, not replaced.
func EnsureSettings(ctx context.Context, loader Loader, wizard *Wizard) (domain.Settings, error) {
	s, err := loader.Load()
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	lgr.Printf("[INFO] no saved settings, starting setup")
	s, err = wizard.Run(ctx)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("setup: %w", err)
	}
	return s, nil
}
