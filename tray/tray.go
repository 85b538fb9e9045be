// Package tray puts a BarkBack item in the macOS menu bar with a
// recording toggle and quick access to the last translation. On other
// platforms every call is a no-op.
package tray

import (
	"sync"
	"time"
)

const idleTooltip = "BarkBack – press Ctrl+Shift+B to record"

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	toggleFn   func()
	copyLastFn func()
	uploadFn   func()
)

// OnToggle registers the start/stop recording callback. Set before Init.
func OnToggle(fn func()) { toggleFn = fn }

// OnCopyLast registers the copy-last-translation callback. Set before Init.
func OnCopyLast(fn func()) { copyLastFn = fn }

// OnUpload registers the translate-last-clip callback. Set before Init.
func OnUpload(fn func()) { uploadFn = fn }

func SetRecording(rec bool) {
	updateRecordingItem(rec)
}

// SetLastTranslation enables the copy item and shows a snippet of the
// newest translation in its title.
func SetLastTranslation(text string) {
	updateCopyItem("Copy Last Translation (" + snippet(text, 40) + ")")
}

// SetError surfaces msg in the tray tooltip for a little while.
func SetError(msg string) {
	updateTooltip("BarkBack – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		updateTooltip(idleTooltip)
	}()
}

func SetUpdateAvailable(version string) {
	addUpdateMenuItem(version)
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-1]) + "…"
}
