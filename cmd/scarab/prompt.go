// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/scarabmm/scarab/internal/installer"

	"github.com/charmbracelet/huh"
)

type (
	huhPrompter struct {
		in  io.Reader
		out io.Writer
	}

	staticPrompter bool
)

// Confirm shows a yes/no form. Aborting the form counts as "no".
func (p huhPrompter) Confirm(ctx context.Context, title, description string) (bool, error) {
	var answer bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Yes").
			Negative("No").
			Value(&answer),
	)).WithInput(p.in).WithOutput(p.out)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return answer, nil
}

func (s staticPrompter) Confirm(context.Context, string, string) (bool, error) {
	return bool(s), nil
}

// prompter picks how questions are answered: --yes wins, then an injected
// prompter, then huh when stdin is a terminal. Anything else declines.
func (a *App) prompter() Prompter {
	switch {
	case a.assumeYes():
		return staticPrompter(true)
	case a.deps.Prompter != nil:
		return a.deps.Prompter
	case isTerminal(a.deps.Stdin):
		return huhPrompter{in: a.deps.Stdin, out: a.stderr}
	default:
		return staticPrompter(false)
	}
}

func (a *App) overwriteConfirmer() installer.Confirmer {
	return installer.ConfirmFunc(func(ctx context.Context, name, path string) (bool, error) {
		return a.prompter().Confirm(ctx,
			"Overwrite "+name+"?",
			path+" already exists and will be replaced.")
	})
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
