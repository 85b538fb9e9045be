// Package shutdown delivers the platform's quit signals on one channel,
// so the main loop can treat Ctrl+C, kill, and the tray's Quit the same.
package shutdown

import "os"

// Signals returns a buffered channel that receives the interrupt and
// terminate signals this platform delivers.
func Signals() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	notify(ch)
	return ch
}
