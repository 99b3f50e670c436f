package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/abrezinsky/pizzarate/internal/browser"
	"github.com/abrezinsky/pizzarate/internal/logger"
)

// handleKey runs the shortcut bound to key. It returns false when the
// server should stop.
func handleKey(key byte, url string, appLog *logger.SlogLogger) bool {
	switch strings.ToLower(string(key)) {
	case "o":
		fmt.Printf("%sOpening %s...%s\n", cyan, url, reset)
		if err := browser.Open(url); err != nil {
			fmt.Printf("%sError opening browser: %v%s\n", red, err, reset)
		}
	case "h":
		toggleHTTPLogging(appLog)
	case "l":
		cycleLogLevel(appLog)
	case "?":
		printKeyboardHelp()
	case "q", "\x03": // q or Ctrl+C
		fmt.Printf("%sShutting down server...%s\n", yellow, reset)
		return false
	}
	return true
}

// readKeys feeds single bytes from stdin to handleKey until quit or ctx ends
func readKeys(ctx context.Context, url string, appLog *logger.SlogLogger, stop context.CancelFunc) {
	buf := make([]byte, 1)
	for ctx.Err() == nil {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		if !handleKey(buf[0], url, appLog) {
			stop()
			return
		}
	}
}
