//go:build darwin

package tray

import (
	"os/exec"

	"github.com/energye/systray"
	"golang.design/x/hotkey/mainthread"
)

var (
	mCopy   *systray.MenuItem
	mRecord *systray.MenuItem
	mUpload *systray.MenuItem
	mUpdate *systray.MenuItem
)

// Init builds the menu and returns a channel that closes when the user
// picks Quit. Must run after mainthread.Init has claimed the main thread.
func Init() <-chan struct{} {
	start, _ := systray.RunWithExternalLoop(onReady, onExit)
	done := make(chan struct{})
	mainthread.Call(func() {
		start()
		close(done)
	})
	<-done
	return quitCh
}

func onReady() {
	systray.SetTemplateIcon(iconIdleHi, iconIdle)
	systray.SetTooltip(idleTooltip)

	mCopy = systray.AddMenuItem("Copy Last Translation", "Copy the newest translation to the clipboard")
	mCopy.Disable()
	mCopy.Click(func() {
		if copyLastFn != nil {
			copyLastFn()
		}
	})

	systray.AddSeparator()

	mRecord = systray.AddMenuItem("Start Recording", "Start or stop recording")
	mRecord.Click(func() {
		if toggleFn != nil {
			toggleFn()
		}
	})

	mUpload = systray.AddMenuItem("Translate Last Clip", "Send the newest clip for translation")
	mUpload.Click(func() {
		if uploadFn != nil {
			uploadFn()
		}
	})

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit BarkBack")
	mQuit.Click(func() { Quit() })
	systray.CreateMenu()
}

func updateRecordingItem(rec bool) {
	if rec {
		systray.SetIcon(iconRecHi)
		if mRecord != nil {
			mRecord.SetTitle("Stop Recording")
		}
	} else {
		systray.SetTemplateIcon(iconIdleHi, iconIdle)
		if mRecord != nil {
			mRecord.SetTitle("Start Recording")
		}
	}
}

func updateCopyItem(title string) {
	if mCopy != nil {
		mCopy.SetTitle(title)
		mCopy.Enable()
	}
}

func updateTooltip(msg string) {
	systray.SetTooltip(msg)
}

func addUpdateMenuItem(version string) {
	if mUpdate != nil {
		mUpdate.SetTitle("⚠ Update available: " + version)
		return
	}
	mUpdate = systray.AddMenuItem("Update available: "+version, "Open release page")
	mUpdate.Click(func() {
		url := "https://github.com/MartinO24/BarkBack/releases/tag/" + version
		exec.Command("open", url).Start()
	})
}

func onExit() {
	closeOnce.Do(func() { close(quitCh) })
}
