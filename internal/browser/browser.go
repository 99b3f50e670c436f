// Package browser opens the web client from the server console.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Commander starts an external process
type Commander interface {
	Start(name string, args ...string) error
}

type execCommander struct{}

func (execCommander) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// launchers maps GOOS to the command that hands a URL to the desktop
var launchers = map[string]func(target string) (string, []string){
	"linux":   func(target string) (string, []string) { return "xdg-open", []string{target} },
	"freebsd": func(target string) (string, []string) { return "xdg-open", []string{target} },
	"darwin":  func(target string) (string, []string) { return "open", []string{target} },
	"windows": func(target string) (string, []string) {
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	},
}

var defaultCommander Commander = execCommander{}

// Open opens rawURL in the default browser
func Open(rawURL string) error {
	return OpenWith(rawURL, defaultCommander, runtime.GOOS)
}

// OpenWith opens rawURL with the given commander as if running on goos.
// Only absolute http and https URLs are passed to the launcher.
func OpenWith(rawURL string, commander Commander, goos string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("not an http(s) URL: %q", rawURL)
	}

	launch, ok := launchers[goos]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", goos)
	}

	name, args := launch(u.String())
	return commander.Start(name, args...)
}
