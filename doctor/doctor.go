package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MartinO24/BarkBack/audio"
	"github.com/MartinO24/BarkBack/config"
	"github.com/MartinO24/BarkBack/history"
	"github.com/MartinO24/BarkBack/hotkey"
	"github.com/MartinO24/BarkBack/player"
	"github.com/MartinO24/BarkBack/recorder"
	"github.com/MartinO24/BarkBack/translate"
)

// Run executes interactive diagnostic checks and returns an exit code
// (0=all pass, 1=any fail). Later checks are skipped once one fails, since
// they build on each other (the upload check sends the mic check's clip).
func Run(cfg *config.Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("barkback doctor - interactive system diagnostics")
	fmt.Println("================================================")

	allPass := true
	var clip *recorder.Clip

	if !checkConfig(cfg) {
		allPass = false
	}
	if allPass && !checkStore(cfg) {
		allPass = false
	}
	if allPass && !checkHotkey() {
		allPass = false
	}
	if allPass {
		clip = checkMicrophone(cfg)
		if clip == nil {
			allPass = false
		}
	}
	if allPass && !checkUpload(cfg, clip) {
		allPass = false
	}
	if allPass && !checkPlayback(clip) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkConfig(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println("[1/6] Configuration")

	fmt.Printf("  endpoint:   %s\n", orUnset(cfg.Endpoint))
	fmt.Printf("  format:     %s\n", cfg.Format)
	fmt.Printf("  device:     %s\n", orUnset(cfg.Device))
	fmt.Printf("  recordings: %s\n", cfg.RecordingsDir)
	fmt.Printf("  history:    %s\n", cfg.HistoryPath)

	if cfg.Endpoint == "" {
		fmt.Println("  FAIL: no translation endpoint configured (set BARKBACK_ENDPOINT or endpoint in config.toml)")
		return false
	}
	fmt.Println("  PASS: configuration complete")
	return true
}

func checkStore(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println("[2/6] History store")

	store, err := history.OpenSQLite(cfg.HistoryPath)
	if err != nil {
		fmt.Printf("  FAIL: cannot open store: %v\n", err)
		return false
	}
	defer store.Close()

	archive := history.NewArchive(store)
	items, err := archive.Load()
	if err != nil {
		fmt.Printf("  FAIL: saved history unreadable: %v\n", err)
		fmt.Println("        (the next successful upload will overwrite it)")
		return false
	}

	// write the same list back to prove the store accepts writes
	if err := archive.Save(items); err != nil {
		fmt.Printf("  FAIL: cannot write store: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: store readable and writable (%d items)\n", len(items))
	return true
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[3/6] Hotkey detection")
	fmt.Println("Press Ctrl+Shift+B...")

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Pressed():
		fmt.Println("  PASS: hotkey detected")
		// the shortcut may leave the terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

// checkMicrophone records a short probe clip and returns it, or nil on
// failure.
func checkMicrophone(cfg *config.Config) *recorder.Clip {
	fmt.Println()
	fmt.Println("[4/6] Microphone capture")

	audioCtx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return nil
	}

	devices, err := audioCtx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		audioCtx.Close()
		return nil
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		audioCtx.Close()
		return nil
	}
	for _, d := range devices {
		marker := "   "
		if cfg.Device != "" && strings.Contains(strings.ToLower(d.Name), strings.ToLower(cfg.Device)) {
			marker = " * "
		}
		fmt.Printf("  %s%s\n", marker, d.Name)
	}

	dir, err := os.MkdirTemp("", "barkback-doctor")
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		audioCtx.Close()
		return nil
	}

	svc := recorder.New(audioCtx, dir, cfg.Format, cfg.Device)
	defer func() {
		svc.Close()
		audioCtx.Close()
	}()

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Press Enter, then let your pet (or you) make some noise for 3 seconds...")
	reader.ReadString('\n')

	if err := svc.Start(context.Background()); err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return nil
	}

	fmt.Print("  Recording")
	for i := 0; i < 6; i++ {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" done")

	clip, err := svc.Stop()
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return nil
	}
	if clip.SizeKB <= 0 {
		fmt.Println("  FAIL: no audio captured")
		return nil
	}

	fmt.Printf("  PASS: captured %.1fs (%.1f KB) to %s\n", clip.Seconds, clip.SizeKB, clip.Path)
	return clip
}

func checkUpload(cfg *config.Config, clip *recorder.Clip) bool {
	fmt.Println()
	fmt.Println("[5/6] Translation upload")

	client := translate.NewHTTP(cfg.Endpoint)
	fmt.Printf("  Uploading probe clip to %s...\n", cfg.Endpoint)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res, err := client.Upload(ctx, clip.Path)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	fmt.Printf("\n  Translation: %s\n\n", res.Translation)

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Did the service answer sensibly? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: translation verified by user")
		return true
	}
	fmt.Println("  FAIL: translation not confirmed")
	return false
}

func checkPlayback(clip *recorder.Clip) bool {
	fmt.Println()
	fmt.Println("[6/6] Playback")

	pl, err := player.New()
	if err != nil {
		fmt.Printf("  FAIL: cannot open playback device: %v\n", err)
		return false
	}
	defer pl.Close()

	fmt.Println("  Replaying the probe clip...")
	if err := pl.Play(context.Background(), 1, clip.Path); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	deadline := time.After(time.Duration(clip.Seconds*float64(time.Second)) + 5*time.Second)
waitDone:
	for {
		select {
		case ev := <-pl.Events():
			if ev.Kind == player.KindFinished || ev.Kind == player.KindFailed {
				if ev.Kind == player.KindFailed {
					fmt.Printf("  FAIL: playback error: %v\n", ev.Err)
					return false
				}
				break waitDone
			}
		case <-deadline:
			fmt.Println("  FAIL: playback never finished")
			return false
		}
	}

	resetTerminal()
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Did you hear the clip? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: playback verified by user")
		return true
	}
	fmt.Println("  FAIL: playback not confirmed")
	return false
}

func orUnset(v string) string {
	if v == "" {
		return "(unset)"
	}
	return v
}
