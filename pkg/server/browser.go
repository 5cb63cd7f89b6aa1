package server

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openBrowser launches the system browser at url. Purely a convenience for
// showcase mode; failures are reported, never fatal.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	default:
		return fmt.Errorf("server: no browser launcher for %s", runtime.GOOS)
	}
}
