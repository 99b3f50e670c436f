//go:build linux || darwin

package main

import (
	"context"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/abrezinsky/pizzarate/internal/logger"
)

// listenForKeyboard switches the terminal to unbuffered, no-echo input and
// dispatches shortcuts in the background. Output processing stays on so log
// lines render. The returned func restores the terminal.
func listenForKeyboard(ctx context.Context, url string, appLog *logger.SlogLogger, stop context.CancelFunc) (restore func()) {
	restore = func() {}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return restore
	}

	oldState, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return restore
	}

	newState := *oldState
	newState.Lflag &^= unix.ICANON | unix.ECHO
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &newState); err != nil {
		return restore
	}

	go readKeys(ctx, url, appLog, stop)
	return func() {
		_ = unix.IoctlSetTermios(fd, ioctlSetTermios, oldState)
	}
}
