package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/MartinO24/BarkBack/audio"
	"github.com/MartinO24/BarkBack/config"
	"github.com/MartinO24/BarkBack/coordinator"
	"github.com/MartinO24/BarkBack/cue"
	"github.com/MartinO24/BarkBack/doctor"
	"github.com/MartinO24/BarkBack/history"
	"github.com/MartinO24/BarkBack/hotkey"
	"github.com/MartinO24/BarkBack/log"
	"github.com/MartinO24/BarkBack/player"
	"github.com/MartinO24/BarkBack/recorder"
	"github.com/MartinO24/BarkBack/shutdown"
	"github.com/MartinO24/BarkBack/translate"
	"github.com/MartinO24/BarkBack/tray"
	"github.com/MartinO24/BarkBack/update"
)

var version = "dev"

var (
	shutdownOnce sync.Once
	stopApp      context.CancelFunc
	appOps       *coordinator.Coordinator
)

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if appOps != nil && appOps.Uploads() > 0 {
			log.SessionEnd(appOps.Uploads())
		}
		if stopApp != nil {
			stopApp()
		}
		log.Close()
		tray.Quit()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

// uiSink forwards coordinator snapshots to the TUI and plays the audio
// cues on recording transitions. Called under the coordinator's lock, so
// it never calls back in.
type uiSink struct {
	mu   sync.Mutex
	prev coordinator.State
}

func (s *uiSink) StateChanged(st coordinator.State) {
	s.mu.Lock()
	prev := s.prev
	s.prev = st
	s.mu.Unlock()

	if st.Recording != prev.Recording {
		if st.Recording {
			cue.PlayStart()
		} else {
			cue.PlayEnd()
		}
		tray.SetRecording(st.Recording)
	}
	if len(st.History) > 0 && (len(prev.History) == 0 || st.History[0].ID != prev.History[0].ID) {
		tray.SetLastTranslation(st.History[0].Translation)
	}
	tuiSend(StateMsg(st))
}

func (s *uiSink) Alert(msg string) {
	cue.PlayError()
	tray.SetError(msg)
	tuiSend(AlertMsg{Text: msg})
}

func runUpdate() {
	if version == "dev" {
		fmt.Println("Dev build, cannot check for updates.")
		os.Exit(0)
	}
	fmt.Printf("barkback %s: checking for updates...\n", version)
	rel, err := update.CheckLatest(version)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if rel == nil {
		fmt.Println("Already up to date.")
		os.Exit(0)
	}
	fmt.Printf("Update available: %s -> %s\n", version, rel.Version)
	fmt.Print("Continue? [y/N] ")
	var answer string
	fmt.Scanln(&answer)
	if answer != "y" && answer != "Y" {
		fmt.Println("Aborted.")
		os.Exit(0)
	}
	fmt.Printf("Downloading %s...\n", rel.Version)
	if err := update.Apply(rel); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated to %s\n", rel.Version)
	os.Exit(0)
}

func run() {
	if len(os.Args) > 1 && os.Args[1] == "update" {
		runUpdate()
		return
	}

	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	formatFlag := flag.String("format", "", "Clip format: wav or flac (overrides config)")
	endpointFlag := flag.String("endpoint", "", "Translation service URL (overrides config)")
	quietFlag := flag.Bool("quiet", false, "Disable start/stop/error audio cues")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI (false: background hotkey recorder)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *versionFlag {
		fmt.Printf("barkback %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *endpointFlag != "" {
		cfg.Endpoint = *endpointFlag
	}
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}
	if *formatFlag != "" {
		switch *formatFlag {
		case "wav", "flac":
			cfg.Format = *formatFlag
		default:
			fmt.Printf("Error: unknown format %q (use wav or flac)\n", *formatFlag)
			os.Exit(1)
		}
	}

	if *doctorFlag {
		os.Exit(doctor.Run(cfg))
	}

	if *quietFlag {
		cue.Disable()
	}

	// Resolve -setup into -device early (before daemonization)
	if *setupFlag && *deviceFlag == "" {
		audioCtx, err := audio.NewContext()
		if err != nil {
			fmt.Printf("Error initializing audio: %v\n", err)
			os.Exit(1)
		}
		dev, err := audio.SelectDevice(audioCtx)
		audioCtx.Close()
		if err != nil {
			if errors.Is(err, audio.ErrPickerAborted) {
				os.Exit(130)
			}
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if dev != nil {
			*deviceFlag = dev.Name
			cfg.Device = dev.Name
		}
	}

	// Daemonize in non-TUI mode: re-exec in background, return shell prompt
	if !*tuiFlag && os.Getenv("_BARKBACK_BG") == "" {
		args := os.Args[1:]
		if *deviceFlag != "" {
			args = append(args, "-device", *deviceFlag)
		}
		exe, _ := os.Executable()
		cmd := exec.Command(exe, args...)
		cmd.Env = append(os.Environ(), "_BARKBACK_BG=1")
		devnull, _ := os.Open(os.DevNull)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
		if err := cmd.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("barkback recording in background (Ctrl+Shift+B to record)")
		os.Exit(0)
	}

	deviceLabel := cfg.Device
	if deviceLabel == "" {
		deviceLabel = "system default"
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		log.SessionStart(cfg.Endpoint, cfg.Format, deviceLabel)
	}
	if cfg.Endpoint == "" {
		log.Warn("no translation endpoint configured, uploads will fail until one is set")
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer audioCtx.Close()

	rec := recorder.New(audioCtx, cfg.RecordingsDir, cfg.Format, cfg.Device)
	defer rec.Close()

	pl, err := player.New()
	if err != nil {
		log.Errorf("player init error: %v", err)
		fmt.Printf("Error initializing playback: %v\n", err)
		os.Exit(1)
	}
	defer pl.Close()

	var archive *history.Archive
	if store, err := history.OpenSQLite(cfg.HistoryPath); err != nil {
		log.Errorf("history store open error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: history will not persist: %v\n", err)
		archive = history.NewArchive(history.NewMemoryStore())
	} else {
		defer store.Close()
		archive = history.NewArchive(store)
	}

	client := translate.NewHTTP(cfg.Endpoint)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopApp = cancel

	c := coordinator.New(rec, pl, client, archive, &uiSink{})
	appOps = c

	// Start TUI before the coordinator so the first snapshots land on screen
	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(rootCtx, c)
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()
	}

	go c.Run(rootCtx)

	tray.OnToggle(func() { c.ToggleRecording(rootCtx) })
	tray.OnUpload(func() { c.Upload(rootCtx) })
	tray.OnCopyLast(func() {
		if st := c.State(); len(st.History) > 0 {
			if err := clipboard.WriteAll(st.History[0].Translation); err != nil {
				log.Warnf("clipboard write error: %v", err)
			}
		}
	})
	trayQuit := tray.Init()

	sigChan := shutdown.Signals()
	go func() {
		select {
		case <-sigChan:
		case <-trayQuit:
		}
		gracefulShutdown()
	}()

	update.StartBackgroundCheck(version, log.Dir(), func(rel update.Release) {
		log.Info("update_available: " + rel.Version)
		tuiSend(UpdateMsg{Version: rel.Version})
		tray.SetUpdateAvailable(rel.Version)
	})

	go cue.Init()

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		if !*tuiFlag {
			fmt.Printf("Error registering hotkey: %v\n", err)
			os.Exit(1)
		}
		// TUI keys still work without the global hotkey
		tuiSend(AlertMsg{Text: fmt.Sprintf("global hotkey unavailable: %v", err)})
	} else {
		defer hk.Unregister()
	}

	if *tuiFlag {
		for {
			select {
			case <-hk.Pressed():
				log.Info("hotkey_toggle")
				c.ToggleRecording(rootCtx)
			case <-rootCtx.Done():
				return
			}
		}
	}

	// Background mode: the hotkey is the whole interface. A finished
	// take goes straight to translation and the text lands on the
	// clipboard.
	for {
		select {
		case <-hk.Pressed():
			log.Info("hotkey_toggle")
			wasRecording := c.State().Recording
			c.ToggleRecording(rootCtx)
			if !wasRecording {
				continue
			}
			if c.State().Latest == "" {
				continue
			}
			before := c.Uploads()
			c.Upload(rootCtx)
			if c.Uploads() == before {
				continue
			}
			if st := c.State(); len(st.History) > 0 {
				if err := clipboard.WriteAll(st.History[0].Translation); err != nil {
					log.Warnf("clipboard write error: %v", err)
				} else {
					log.Info("translation_copied")
				}
			}
		case <-rootCtx.Done():
			return
		}
	}
}
