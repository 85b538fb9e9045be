// Package hotkey raises a signal when the global record shortcut
// (Ctrl+Shift+B) is pressed, whichever window has focus.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Pressed() <-chan struct{}
}
