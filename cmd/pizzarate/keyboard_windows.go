//go:build windows

package main

import (
	"context"
	"os"

	"golang.org/x/term"

	"github.com/abrezinsky/pizzarate/internal/logger"
)

// listenForKeyboard reads shortcuts from the console in the background.
// Keys arrive after Enter since the console stays in line mode.
func listenForKeyboard(ctx context.Context, url string, appLog *logger.SlogLogger, stop context.CancelFunc) (restore func()) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		go readKeys(ctx, url, appLog, stop)
	}
	return func() {}
}
