// Package coordinator owns the record/play/upload state machine. It is the
// single arbiter of the microphone and the speaker: every user gesture
// funnels through here, and every state change fans back out through one
// sink. UI layers render the State snapshots and never mutate them.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MartinO24/BarkBack/history"
	"github.com/MartinO24/BarkBack/log"
	"github.com/MartinO24/BarkBack/player"
	"github.com/MartinO24/BarkBack/recorder"
	"github.com/MartinO24/BarkBack/translate"
)

// State is a self-contained snapshot of everything the screen shows.
type State struct {
	Recording      bool
	Latest         string // newest unsent clip path, "" = none
	LatestSeconds  float64
	Playing        string // clip path currently audible, "" = silent
	Uploading      bool
	LoadingHistory bool
	Busy           bool // any outstanding operation; gates the controls
	LastError      string
	History        []history.Item // newest first
}

// Sink receives state snapshots and user-facing alerts. Implementations
// must return promptly and must not call back into the Coordinator.
type Sink interface {
	StateChanged(State)
	Alert(msg string)
}

// Coordinator mediates between the recorder, the player, the translation
// client, and the history archive. Gestures run one at a time; a gesture
// arriving while another is in flight is dropped, matching the UI's own
// control disablement.
type Coordinator struct {
	recorder recorder.Recorder
	player   player.Player
	client   translate.Client
	archive  *history.Archive
	sink     Sink

	mu          sync.Mutex
	st          State
	inFlight    bool
	loaded      bool   // initial history load finished; saves allowed
	session     uint64 // last playback session id handed out
	playSession uint64 // session id owning st.Playing
	uploads     int
}

func New(rec recorder.Recorder, pl player.Player, client translate.Client, archive *history.Archive, sink Sink) *Coordinator {
	return &Coordinator{
		recorder: rec,
		player:   pl,
		client:   client,
		archive:  archive,
		sink:     sink,
	}
}

// Run loads the saved history, then pumps player notifications until ctx
// is done. Saves stay suppressed until the load has finished, so a slow
// store can never be overwritten with a half-initialized list.
func (c *Coordinator) Run(ctx context.Context) {
	c.mu.Lock()
	c.st.LoadingHistory = true
	c.pushLocked()
	c.mu.Unlock()

	items, err := c.archive.Load()

	c.mu.Lock()
	c.st.LoadingHistory = false
	c.loaded = true
	c.st.History = items
	if err != nil {
		c.st.LastError = err.Error()
	}
	c.pushLocked()
	c.mu.Unlock()
	if err != nil {
		log.Errorf("history load: %v", err)
		c.sink.Alert(err.Error())
	} else {
		log.Infof("history loaded (%d items)", len(items))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.player.Events():
			if !ok {
				return
			}
			c.handlePlayerEvent(ev)
		}
	}
}

// handlePlayerEvent clears playback state when the active session ends.
// Events are tagged with the session identity assigned at Play time, so a
// late report from a superseded session can never clear the current one.
func (c *Coordinator) handlePlayerEvent(ev player.Event) {
	if ev.Kind == player.KindStarted {
		return
	}

	c.mu.Lock()
	if c.st.Playing == "" || ev.Session != c.playSession || ev.Ref != c.st.Playing {
		c.mu.Unlock()
		return
	}
	c.st.Playing = ""
	var msg string
	if ev.Kind == player.KindFailed {
		msg = fmt.Sprintf("playback failed: %v", ev.Err)
		c.st.LastError = msg
	}
	c.pushLocked()
	c.mu.Unlock()

	if msg != "" {
		log.Error(msg)
		c.sink.Alert(msg)
	}
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// StartRecording stops any playback, then begins a new take. The previous
// unsent clip stays available unless the new take actually starts.
func (c *Coordinator) StartRecording(ctx context.Context) {
	if !c.begin() {
		return
	}

	c.mu.Lock()
	if c.st.Recording {
		c.endLocked()
		c.mu.Unlock()
		return
	}
	c.st.LastError = ""
	if err := c.stopPlaybackLocked(); err != nil {
		c.mu.Unlock()
		c.fail("could not stop playback: %v", err)
		return
	}
	c.pushLocked()
	c.mu.Unlock()

	if err := c.recorder.EnsurePermission(); err != nil {
		c.fail("microphone unavailable: %v", err)
		return
	}
	if err := c.recorder.Start(ctx); err != nil {
		c.fail("could not start recording: %v", err)
		return
	}

	c.mu.Lock()
	c.st.Recording = true
	c.st.Latest = ""
	c.st.LatestSeconds = 0
	c.endLocked()
	c.mu.Unlock()
	log.Info("recording_start")
}

// StopRecording finalizes the take and remembers its clip. A failed
// finalize leaves no half-made latest clip behind.
func (c *Coordinator) StopRecording() {
	if !c.begin() {
		return
	}

	c.mu.Lock()
	if !c.st.Recording {
		c.endLocked()
		c.mu.Unlock()
		return
	}
	c.st.LastError = ""
	c.mu.Unlock()

	clip, err := c.recorder.Stop()

	c.mu.Lock()
	c.st.Recording = false
	if err != nil {
		c.st.Latest = ""
		c.st.LatestSeconds = 0
		c.mu.Unlock()
		c.fail("could not finish recording: %v", err)
		return
	}
	c.st.Latest = clip.Path
	c.st.LatestSeconds = clip.Seconds
	c.endLocked()
	c.mu.Unlock()
	log.Infof("recording_stop %.1fs", clip.Seconds)
}

// ToggleRecording maps the one-button gesture: stop if recording,
// otherwise start.
func (c *Coordinator) ToggleRecording(ctx context.Context) {
	c.mu.Lock()
	rec := c.st.Recording
	c.mu.Unlock()
	if rec {
		c.StopRecording()
	} else {
		c.StartRecording(ctx)
	}
}

// Play starts the given clip. Playing the clip that is already audible
// stops it instead, and anything else audible is stopped before the new
// clip starts. A running take is finalized first: the speaker is never
// claimed while the microphone is open. Latest recording and history
// items share this one path.
func (c *Coordinator) Play(ctx context.Context, ref string) {
	if ref == "" {
		c.sink.Alert("nothing to play")
		return
	}
	if !c.begin() {
		return
	}

	c.mu.Lock()
	if c.st.Playing == ref {
		// second tap on the same clip means stop, not restart
		if err := c.stopPlaybackLocked(); err != nil {
			c.mu.Unlock()
			c.fail("could not stop playback: %v", err)
			return
		}
		c.st.LastError = ""
		c.endLocked()
		c.mu.Unlock()
		return
	}
	c.st.LastError = ""
	if c.st.Recording {
		c.mu.Unlock()
		clip, err := c.recorder.Stop()
		c.mu.Lock()
		c.st.Recording = false
		if err != nil {
			c.st.Latest = ""
			c.st.LatestSeconds = 0
			c.mu.Unlock()
			c.fail("could not finish recording: %v", err)
			return
		}
		c.st.Latest = clip.Path
		c.st.LatestSeconds = clip.Seconds
		c.pushLocked()
		log.Infof("recording_stop %.1fs", clip.Seconds)
	}
	if err := c.stopPlaybackLocked(); err != nil {
		c.mu.Unlock()
		c.fail("could not stop playback: %v", err)
		return
	}

	// Claim the playback identity before starting it; the player's first
	// notification may land before Play returns.
	c.session++
	session := c.session
	c.playSession = session
	c.st.Playing = ref
	c.mu.Unlock()

	err := c.player.Play(ctx, session, ref)

	c.mu.Lock()
	if err != nil {
		if c.playSession == session && c.st.Playing == ref {
			c.st.Playing = ""
		}
		c.mu.Unlock()
		c.fail("could not play clip: %v", err)
		return
	}
	c.endLocked()
	c.mu.Unlock()
}

// PlayLatest replays the newest unsent clip.
func (c *Coordinator) PlayLatest(ctx context.Context) {
	c.mu.Lock()
	ref := c.st.Latest
	c.mu.Unlock()
	if ref == "" {
		c.sink.Alert("nothing to play yet, record a clip first")
		return
	}
	c.Play(ctx, ref)
}

// Upload sends the latest clip to the translation service and, on
// success, turns the answer into the newest history item.
func (c *Coordinator) Upload(ctx context.Context) {
	if !c.begin() {
		return
	}

	c.mu.Lock()
	ref := c.st.Latest
	seconds := c.st.LatestSeconds
	if ref == "" {
		c.endLocked()
		c.mu.Unlock()
		c.sink.Alert("nothing to upload yet, record a clip first")
		return
	}
	if err := c.stopPlaybackLocked(); err != nil {
		c.mu.Unlock()
		c.fail("could not stop playback: %v", err)
		return
	}
	c.st.LastError = ""
	c.st.Uploading = true
	c.pushLocked()
	c.mu.Unlock()

	res, err := c.client.Upload(ctx, ref)

	if err != nil {
		c.mu.Lock()
		c.st.Uploading = false
		c.mu.Unlock()
		c.fail("upload failed: %v", err)
		return
	}

	item := history.NewItem(ref, res.Filename, res.Translation)
	c.mu.Lock()
	c.st.Uploading = false
	c.st.History = append([]history.Item{item}, c.st.History...)
	c.st.Latest = ""
	c.st.LatestSeconds = 0
	c.uploads++
	c.endLocked()
	items := append([]history.Item(nil), c.st.History...)
	saveAllowed := c.loaded
	c.mu.Unlock()

	log.Upload(log.UploadMetrics{
		AudioLengthS: seconds,
		PayloadKB:    res.PayloadKB,
		TotalTimeMs:  float64(res.Elapsed.Milliseconds()),
	}, clipFormat(ref), res.Status)
	log.TranslationText(res.Translation)

	if saveAllowed {
		go c.persist(items)
	}
}

// ClearHistory empties the list and persists the empty list.
func (c *Coordinator) ClearHistory() {
	if !c.begin() {
		return
	}

	c.mu.Lock()
	if len(c.st.History) == 0 {
		c.endLocked()
		c.mu.Unlock()
		return
	}
	c.st.LastError = ""
	c.st.History = nil
	c.endLocked()
	saveAllowed := c.loaded
	c.mu.Unlock()

	log.Info("history_cleared")
	if saveAllowed {
		go c.persist(nil)
	}
}

// ClearError dismisses the current error message.
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	if c.st.LastError == "" {
		c.mu.Unlock()
		return
	}
	c.st.LastError = ""
	c.pushLocked()
	c.mu.Unlock()
}

// Uploads returns how many uploads succeeded this session.
func (c *Coordinator) Uploads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploads
}

// begin claims the single gesture slot. A false return means another
// gesture is mid-flight and this one is dropped, not queued.
func (c *Coordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight || c.st.LoadingHistory {
		log.Info("gesture_dropped_busy")
		return false
	}
	c.inFlight = true
	return true
}

// endLocked releases the gesture slot and publishes the resulting state.
func (c *Coordinator) endLocked() {
	c.inFlight = false
	c.pushLocked()
}

// fail records an operation's failure, releases the gesture slot, and
// surfaces the message.
func (c *Coordinator) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Errorf("%s", msg)
	c.mu.Lock()
	c.st.LastError = msg
	c.endLocked()
	c.mu.Unlock()
	c.sink.Alert(msg)
}

// stopPlaybackLocked halts active playback, clearing the playing state
// only once the player confirms the stop.
func (c *Coordinator) stopPlaybackLocked() error {
	if c.st.Playing == "" {
		return nil
	}
	if err := c.player.Stop(); err != nil {
		return err
	}
	c.st.Playing = ""
	return nil
}

func (c *Coordinator) persist(items []history.Item) {
	if err := c.archive.Save(items); err != nil {
		// best effort: a failed save must not interrupt the session
		log.Errorf("history save: %v", err)
	}
}

func (c *Coordinator) snapshotLocked() State {
	snap := c.st
	snap.History = append([]history.Item(nil), c.st.History...)
	snap.Busy = c.st.Uploading || c.st.LoadingHistory || c.inFlight
	return snap
}

func (c *Coordinator) pushLocked() {
	c.sink.StateChanged(c.snapshotLocked())
}

func clipFormat(ref string) string {
	return strings.TrimPrefix(filepath.Ext(ref), ".")
}
