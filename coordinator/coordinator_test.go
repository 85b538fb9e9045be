package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MartinO24/BarkBack/history"
	"github.com/MartinO24/BarkBack/player"
	"github.com/MartinO24/BarkBack/recorder"
	"github.com/MartinO24/BarkBack/translate"
)

type recordedSink struct {
	mu     sync.Mutex
	states []State
	alerts []string
}

func (s *recordedSink) StateChanged(st State) {
	s.mu.Lock()
	s.states = append(s.states, st)
	s.mu.Unlock()
}

func (s *recordedSink) Alert(msg string) {
	s.mu.Lock()
	s.alerts = append(s.alerts, msg)
	s.mu.Unlock()
}

func (s *recordedSink) Alerts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.alerts...)
}

type harness struct {
	c      *Coordinator
	rec    *recorder.FakeRecorder
	pl     *player.FakePlayer
	client *translate.FakeClient
	store  *history.MemoryStore
	sink   *recordedSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		rec:    recorder.NewFakeRecorder(),
		pl:     player.NewFakePlayer(),
		client: translate.NewFake("Woof! I want a treat.", nil),
		store:  history.NewMemoryStore(),
		sink:   &recordedSink{},
	}
	h.c = New(h.rec, h.pl, h.client, history.NewArchive(h.store), h.sink)
	h.start(t)
	return h
}

// start runs the coordinator loop and waits for the initial history load.
func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitFor(t, "history load", func() bool { return !h.c.State().LoadingHistory })
}

// record runs a full take and returns the clip path now held as latest.
func (h *harness) record(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	h.c.StartRecording(ctx)
	h.c.StopRecording()
	st := h.c.State()
	if st.Latest == "" {
		t.Fatal("recording produced no latest clip")
	}
	return st.Latest
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoadSeededHistory(t *testing.T) {
	h := &harness{
		rec:    recorder.NewFakeRecorder(),
		pl:     player.NewFakePlayer(),
		client: translate.NewFake("Woof", nil),
		store:  history.NewMemoryStore(),
		sink:   &recordedSink{},
	}
	h.store.Set("history", `[{"id":"t1","filename":"a.m4a","translation":"Woof","uri":"file://a"}]`)
	sets := h.store.SetCalls()
	h.c = New(h.rec, h.pl, h.client, history.NewArchive(h.store), h.sink)
	h.start(t)

	st := h.c.State()
	if len(st.History) != 1 {
		t.Fatalf("history has %d items, want 1", len(st.History))
	}
	got := st.History[0]
	if got.ID != "t1" || got.Filename != "a.m4a" || got.Translation != "Woof" || got.URI != "file://a" {
		t.Errorf("loaded item = %+v", got)
	}
	if st.LastError != "" {
		t.Errorf("LastError = %q, want empty", st.LastError)
	}
	if h.store.SetCalls() != sets {
		t.Error("load must not trigger a save")
	}
}

func TestLoadEmptyStore(t *testing.T) {
	h := newHarness(t)

	st := h.c.State()
	if len(st.History) != 0 {
		t.Errorf("history has %d items, want 0", len(st.History))
	}
	if st.Busy {
		t.Error("still busy after load")
	}
	if h.store.SetCalls() != 0 {
		t.Error("empty load must not trigger a save")
	}
}

func TestLoadCorruptStoreStartsEmpty(t *testing.T) {
	h := &harness{
		rec:    recorder.NewFakeRecorder(),
		pl:     player.NewFakePlayer(),
		client: translate.NewFake("Woof", nil),
		store:  history.NewMemoryStore(),
		sink:   &recordedSink{},
	}
	h.store.Set("history", "{{{ not json")
	h.c = New(h.rec, h.pl, h.client, history.NewArchive(h.store), h.sink)
	h.start(t)

	st := h.c.State()
	if len(st.History) != 0 {
		t.Errorf("history has %d items, want 0", len(st.History))
	}
	if !strings.Contains(st.LastError, "corrupted") {
		t.Errorf("LastError = %q, want corruption message", st.LastError)
	}
	if len(h.sink.Alerts()) == 0 {
		t.Error("corruption was not surfaced")
	}
	// the bad blob stays until the next save overwrites it
	if v, _ := h.store.Value("history"); v != "{{{ not json" {
		t.Errorf("stored value = %q, corrupt entry should remain", v)
	}

	h.record(t)
	h.c.Upload(context.Background())
	waitFor(t, "overwriting save", func() bool {
		v, _ := h.store.Value("history")
		return strings.Contains(v, "Woof")
	})
}

func TestRecordLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.c.StartRecording(ctx)
	st := h.c.State()
	if !st.Recording {
		t.Fatal("not recording after StartRecording")
	}
	if st.Latest != "" {
		t.Errorf("Latest = %q during take, want empty", st.Latest)
	}

	h.c.StopRecording()
	st = h.c.State()
	if st.Recording {
		t.Fatal("still recording after StopRecording")
	}
	if st.Latest != h.rec.Clip.Path {
		t.Errorf("Latest = %q, want %q", st.Latest, h.rec.Clip.Path)
	}
	if st.LatestSeconds != h.rec.Clip.Seconds {
		t.Errorf("LatestSeconds = %f, want %f", st.LatestSeconds, h.rec.Clip.Seconds)
	}
}

func TestStartRecordingClearsPreviousLatest(t *testing.T) {
	h := newHarness(t)
	h.record(t)

	h.c.StartRecording(context.Background())
	if st := h.c.State(); st.Latest != "" {
		t.Errorf("Latest = %q after new take started, want empty", st.Latest)
	}
}

func TestStartRecordingPermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.rec.PermissionErr = errors.New("denied by user")

	h.c.StartRecording(context.Background())

	st := h.c.State()
	if st.Recording {
		t.Error("recording despite denied permission")
	}
	if !strings.Contains(st.LastError, "microphone unavailable") {
		t.Errorf("LastError = %q", st.LastError)
	}
	if h.rec.Starts() != 0 {
		t.Error("capture started despite denied permission")
	}
	if len(h.sink.Alerts()) == 0 {
		t.Error("denial was not surfaced")
	}
}

func TestStartRecordingFailureKeepsPreviousClip(t *testing.T) {
	h := newHarness(t)
	latest := h.record(t)

	h.rec.StartErr = errors.New("device busy")
	h.c.StartRecording(context.Background())

	st := h.c.State()
	if st.Recording {
		t.Error("recording despite failed start")
	}
	if st.Latest != latest {
		t.Errorf("Latest = %q, want previous clip %q", st.Latest, latest)
	}
	if !strings.Contains(st.LastError, "could not start recording") {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestStopRecordingFailureLeavesNoLatest(t *testing.T) {
	h := newHarness(t)
	h.rec.StopErr = errors.New("flush failed")

	h.c.StartRecording(context.Background())
	h.c.StopRecording()

	st := h.c.State()
	if st.Recording {
		t.Error("still recording after failed stop")
	}
	if st.Latest != "" {
		t.Errorf("Latest = %q, must never be half-set", st.Latest)
	}
	if !strings.Contains(st.LastError, "could not finish recording") {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestStopRecordingIdleIsNoop(t *testing.T) {
	h := newHarness(t)

	h.c.StopRecording()

	if h.rec.Stops() != 0 {
		t.Error("recorder stopped without a take")
	}
	if st := h.c.State(); st.LastError != "" {
		t.Errorf("LastError = %q, want empty", st.LastError)
	}
	if len(h.sink.Alerts()) != 0 {
		t.Errorf("alerts = %v, want none", h.sink.Alerts())
	}
}

func TestToggleRecording(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.c.ToggleRecording(ctx)
	if !h.c.State().Recording {
		t.Fatal("first toggle did not start recording")
	}
	h.c.ToggleRecording(ctx)
	st := h.c.State()
	if st.Recording {
		t.Fatal("second toggle did not stop recording")
	}
	if st.Latest == "" {
		t.Error("no latest clip after toggled stop")
	}
}

func TestRecordingStopsPlaybackFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	latest := h.record(t)

	h.c.Play(ctx, latest)
	if h.c.State().Playing != latest {
		t.Fatal("clip not playing")
	}

	h.c.ToggleRecording(ctx)
	st := h.c.State()
	if st.Playing != "" {
		t.Error("playback survived recording start")
	}
	if !st.Recording {
		t.Error("recording did not start after playback stop")
	}
	if h.pl.Stops() != 1 {
		t.Errorf("player stops = %d, want 1", h.pl.Stops())
	}
}

func TestRecordingAbortsWhenPlaybackStopFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	latest := h.record(t)
	starts := h.rec.Starts()

	h.c.Play(ctx, latest)
	h.pl.StopErr = errors.New("sink wedged")

	h.c.ToggleRecording(ctx)

	st := h.c.State()
	if st.Recording {
		t.Error("recording started despite failed playback stop")
	}
	if h.rec.Starts() != starts {
		t.Error("capture started despite failed playback stop")
	}
	if st.Playing != latest {
		t.Error("playing state cleared although stop failed")
	}
	if !strings.Contains(st.LastError, "could not stop playback") {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestPlayStopsRecordingFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.c.StartRecording(ctx)
	if !h.c.State().Recording {
		t.Fatal("recording did not start")
	}

	h.c.Play(ctx, "file://history-item.wav")

	st := h.c.State()
	if st.Recording {
		t.Error("recording survived play")
	}
	if st.Latest != h.rec.Clip.Path {
		t.Errorf("Latest = %q, want finalized take %q", st.Latest, h.rec.Clip.Path)
	}
	if st.Playing != "file://history-item.wav" {
		t.Errorf("Playing = %q, want history item", st.Playing)
	}
	if h.rec.Stops() != 1 {
		t.Errorf("recorder stops = %d, want 1", h.rec.Stops())
	}
}

func TestPlayAbortsWhenTakeFinalizeFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.c.StartRecording(ctx)
	h.rec.StopErr = errors.New("encoder died")

	h.c.Play(ctx, "file://history-item.wav")

	st := h.c.State()
	if st.Recording {
		t.Error("recording flag survived failed finalize")
	}
	if st.Latest != "" {
		t.Errorf("Latest = %q, want empty after failed finalize", st.Latest)
	}
	if len(h.pl.Plays()) != 0 {
		t.Error("playback started despite failed finalize")
	}
	if !strings.Contains(st.LastError, "could not finish recording") {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestPlaySameRefTogglesToStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	latest := h.record(t)

	h.c.Play(ctx, latest)
	h.c.Play(ctx, latest)

	st := h.c.State()
	if st.Playing != "" {
		t.Errorf("Playing = %q after second tap, want stopped", st.Playing)
	}
	if got := len(h.pl.Plays()); got != 1 {
		t.Errorf("player plays = %d, want 1 (no restart)", got)
	}
	if h.pl.Stops() != 1 {
		t.Errorf("player stops = %d, want 1", h.pl.Stops())
	}
}

func TestPlaySwitchesToHistoryItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	latest := h.record(t)

	h.c.Play(ctx, latest)
	h.c.Play(ctx, "file://history-item.wav")

	st := h.c.State()
	if st.Playing != "file://history-item.wav" {
		t.Errorf("Playing = %q, want history item", st.Playing)
	}
	plays := h.pl.Plays()
	if len(plays) != 2 || plays[0].Ref != latest || plays[1].Ref != "file://history-item.wav" {
		t.Errorf("plays = %+v", plays)
	}
}

func TestPlayLatest(t *testing.T) {
	h := newHarness(t)
	latest := h.record(t)

	h.c.PlayLatest(context.Background())

	if st := h.c.State(); st.Playing != latest {
		t.Errorf("Playing = %q, want %q", st.Playing, latest)
	}
	plays := h.pl.Plays()
	if len(plays) != 1 || plays[0].Ref != latest {
		t.Errorf("plays = %+v", plays)
	}
}

func TestPlayLatestWithoutClip(t *testing.T) {
	h := newHarness(t)

	h.c.PlayLatest(context.Background())

	if len(h.pl.Plays()) != 0 {
		t.Error("player driven with no clip")
	}
	alerts := h.sink.Alerts()
	if len(alerts) != 1 || !strings.Contains(alerts[0], "nothing to play") {
		t.Errorf("alerts = %v", alerts)
	}
	if st := h.c.State(); st.LastError != "" {
		t.Errorf("LastError = %q, want empty", st.LastError)
	}
}

func TestPlayFailureSetsError(t *testing.T) {
	h := newHarness(t)
	h.pl.PlayErr = errors.New("no such clip")
	latest := h.record(t)

	h.c.Play(context.Background(), latest)

	st := h.c.State()
	if st.Playing != "" {
		t.Errorf("Playing = %q after failed play, want empty", st.Playing)
	}
	if !strings.Contains(st.LastError, "could not play clip") {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestPlaybackAutoClearsOnFinish(t *testing.T) {
	h := newHarness(t)
	latest := h.record(t)

	h.c.Play(context.Background(), latest)
	h.pl.Finish()

	waitFor(t, "auto-clear", func() bool { return h.c.State().Playing == "" })
	if st := h.c.State(); st.LastError != "" {
		t.Errorf("LastError = %q after natural finish, want empty", st.LastError)
	}
}

func TestPlaybackFailureAutoClearsWithError(t *testing.T) {
	h := newHarness(t)
	latest := h.record(t)

	h.c.Play(context.Background(), latest)
	h.pl.Fail(errors.New("device lost"))

	waitFor(t, "auto-clear", func() bool { return h.c.State().Playing == "" })
	waitFor(t, "error surface", func() bool {
		return strings.Contains(h.c.State().LastError, "playback failed")
	})
}

func TestStalePlaybackEventIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	latest := h.record(t)

	h.c.Play(ctx, latest)
	first := h.pl.Plays()[0]
	h.c.Play(ctx, "file://second.wav")

	// a straggler from the superseded session, even claiming the current
	// ref, must not clear the current playback
	h.pl.Emit(player.Event{Session: first.Session, Ref: "file://second.wav", Kind: player.KindFinished})
	time.Sleep(30 * time.Millisecond)
	if st := h.c.State(); st.Playing != "file://second.wav" {
		t.Fatalf("Playing = %q, stale event cleared current session", st.Playing)
	}

	h.pl.Finish()
	waitFor(t, "current finish", func() bool { return h.c.State().Playing == "" })
}

func TestUploadWithoutClip(t *testing.T) {
	h := newHarness(t)

	h.c.Upload(context.Background())

	if len(h.client.Uploads()) != 0 {
		t.Error("upload attempted with no clip")
	}
	st := h.c.State()
	if st.LastError != "" || len(st.History) != 0 {
		t.Errorf("state changed: err=%q history=%d", st.LastError, len(st.History))
	}
	alerts := h.sink.Alerts()
	if len(alerts) != 1 || !strings.Contains(alerts[0], "nothing to upload") {
		t.Errorf("alerts = %v", alerts)
	}
}

func TestUploadSuccess(t *testing.T) {
	h := newHarness(t)
	latest := h.record(t)

	h.c.Upload(context.Background())

	st := h.c.State()
	if len(st.History) != 1 {
		t.Fatalf("history has %d items, want 1", len(st.History))
	}
	item := st.History[0]
	if item.URI != latest {
		t.Errorf("item.URI = %q, want %q", item.URI, latest)
	}
	if item.Translation != "Woof! I want a treat." {
		t.Errorf("item.Translation = %q", item.Translation)
	}
	if item.Filename != "recording.wav" {
		t.Errorf("item.Filename = %q", item.Filename)
	}
	if item.ID == "" {
		t.Error("item has no id")
	}
	if st.Latest != "" {
		t.Errorf("Latest = %q after upload, want cleared", st.Latest)
	}
	if st.Uploading || st.Busy {
		t.Error("still busy after upload")
	}
	if h.c.Uploads() != 1 {
		t.Errorf("Uploads() = %d, want 1", h.c.Uploads())
	}

	waitFor(t, "async save", func() bool { return h.store.SetCalls() >= 1 })
	v, ok := h.store.Value("history")
	if !ok || !strings.Contains(v, "Woof! I want a treat.") {
		t.Errorf("persisted history = %q", v)
	}
}

func TestUploadNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.record(t)
	h.c.Upload(ctx)
	h.client.Translation = "Bark! Someone is at the door."
	h.record(t)
	h.c.Upload(ctx)

	st := h.c.State()
	if len(st.History) != 2 {
		t.Fatalf("history has %d items, want 2", len(st.History))
	}
	if st.History[0].Translation != "Bark! Someone is at the door." {
		t.Errorf("newest item = %q, want the second upload first", st.History[0].Translation)
	}
}

func TestUploadFailureLeavesStateAlone(t *testing.T) {
	h := newHarness(t)
	h.client.Err = errors.New("connection refused")
	latest := h.record(t)

	h.c.Upload(context.Background())

	st := h.c.State()
	if len(st.History) != 0 {
		t.Error("failed upload changed history")
	}
	if st.Latest != latest {
		t.Errorf("Latest = %q, want %q preserved", st.Latest, latest)
	}
	if !strings.Contains(st.LastError, "upload failed") {
		t.Errorf("LastError = %q", st.LastError)
	}
	if st.Uploading {
		t.Error("uploading flag stuck after failure")
	}
	if len(h.sink.Alerts()) == 0 {
		t.Error("failure was not surfaced")
	}
}

func TestUploadMissingTranslationIsFailure(t *testing.T) {
	h := newHarness(t)
	h.client.Err = translate.ErrNoTranslation
	h.record(t)

	h.c.Upload(context.Background())

	st := h.c.State()
	if len(st.History) != 0 {
		t.Error("upload without translation changed history")
	}
	if !strings.Contains(st.LastError, "translation missing") {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestUploadStopsPlaybackFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	latest := h.record(t)

	h.c.Play(ctx, latest)
	h.c.Upload(ctx)

	st := h.c.State()
	if st.Playing != "" {
		t.Error("playback survived upload")
	}
	if len(h.client.Uploads()) != 1 {
		t.Error("upload did not proceed after playback stop")
	}
}

func TestUploadAbortsWhenPlaybackStopFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	latest := h.record(t)

	h.c.Play(ctx, latest)
	h.pl.StopErr = errors.New("sink wedged")
	h.c.Upload(ctx)

	if len(h.client.Uploads()) != 0 {
		t.Error("upload attempted despite failed playback stop")
	}
	st := h.c.State()
	if st.Latest != latest {
		t.Error("latest clip lost on aborted upload")
	}
	if !strings.Contains(st.LastError, "could not stop playback") {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestSaveFailureIsSilent(t *testing.T) {
	h := newHarness(t)
	h.store.SetErr = errors.New("disk full")
	h.record(t)

	h.c.Upload(context.Background())

	waitFor(t, "save attempt", func() bool { return h.store.SetCalls() >= 1 })
	st := h.c.State()
	if st.LastError != "" {
		t.Errorf("LastError = %q, save failures must stay silent", st.LastError)
	}
	if len(st.History) != 1 {
		t.Error("history update lost with the failed save")
	}
}

func TestNoSaveBeforeLoadCompletes(t *testing.T) {
	// coordinator used without Run: the load never happened, so even a
	// successful upload must not write to the store
	rec := recorder.NewFakeRecorder()
	pl := player.NewFakePlayer()
	client := translate.NewFake("Woof", nil)
	store := history.NewMemoryStore()
	c := New(rec, pl, client, history.NewArchive(store), &recordedSink{})
	ctx := context.Background()

	c.StartRecording(ctx)
	c.StopRecording()
	c.Upload(ctx)

	if len(c.State().History) != 1 {
		t.Fatal("upload did not land in memory")
	}
	time.Sleep(30 * time.Millisecond)
	if store.SetCalls() != 0 {
		t.Error("save ran before the initial load completed")
	}
}

// gatedStore blocks Get until released, pinning the coordinator in its
// history-loading phase.
type gatedStore struct {
	*history.MemoryStore
	gate chan struct{}
}

func (g *gatedStore) Get(key string) (string, bool, error) {
	<-g.gate
	return g.MemoryStore.Get(key)
}

func TestGesturesDroppedWhileHistoryLoads(t *testing.T) {
	store := &gatedStore{MemoryStore: history.NewMemoryStore(), gate: make(chan struct{})}
	rec := recorder.NewFakeRecorder()
	c := New(rec, player.NewFakePlayer(), translate.NewFake("Woof", nil), history.NewArchive(store), &recordedSink{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	waitFor(t, "loading state", func() bool { return c.State().LoadingHistory })
	if !c.State().Busy {
		t.Error("not busy while history loads")
	}

	c.StartRecording(ctx)
	if rec.Starts() != 0 {
		t.Error("recording started while history was loading")
	}

	close(store.gate)
	waitFor(t, "load finish", func() bool { return !c.State().LoadingHistory })
}

// gatedClient holds an upload in flight until released.
type gatedClient struct {
	inner   *translate.FakeClient
	release chan struct{}
}

func (g *gatedClient) Upload(ctx context.Context, path string) (*translate.Result, error) {
	<-g.release
	return g.inner.Upload(ctx, path)
}

func TestGesturesDroppedWhileUploading(t *testing.T) {
	client := &gatedClient{inner: translate.NewFake("Woof", nil), release: make(chan struct{})}
	rec := recorder.NewFakeRecorder()
	pl := player.NewFakePlayer()
	store := history.NewMemoryStore()
	sink := &recordedSink{}
	c := New(rec, pl, client, history.NewArchive(store), sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()
	waitFor(t, "history load", func() bool { return !c.State().LoadingHistory })

	c.StartRecording(ctx)
	c.StopRecording()
	starts := rec.Starts()

	uploadDone := make(chan struct{})
	go func() {
		defer close(uploadDone)
		c.Upload(ctx)
	}()
	waitFor(t, "uploading state", func() bool {
		st := c.State()
		return st.Uploading && st.Busy
	})

	c.StartRecording(ctx)
	if rec.Starts() != starts {
		t.Error("recording started mid-upload")
	}

	close(client.release)
	<-uploadDone
	st := c.State()
	if st.Uploading || st.Busy {
		t.Error("busy flags stuck after upload")
	}
	if len(st.History) != 1 {
		t.Errorf("history has %d items, want 1", len(st.History))
	}
}

func TestClearHistory(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	h.c.Upload(context.Background())
	waitFor(t, "upload save", func() bool { return h.store.SetCalls() >= 1 })

	h.c.ClearHistory()

	if st := h.c.State(); len(st.History) != 0 {
		t.Errorf("history has %d items after clear", len(st.History))
	}
	waitFor(t, "empty save", func() bool {
		v, _ := h.store.Value("history")
		return v == "[]"
	})
}

func TestClearError(t *testing.T) {
	h := newHarness(t)
	h.client.Err = errors.New("boom")
	h.record(t)
	h.c.Upload(context.Background())
	if h.c.State().LastError == "" {
		t.Fatal("no error to clear")
	}

	h.c.ClearError()
	if st := h.c.State(); st.LastError != "" {
		t.Errorf("LastError = %q after clear", st.LastError)
	}
}

func TestNextOperationClearsError(t *testing.T) {
	h := newHarness(t)
	h.client.Err = errors.New("boom")
	h.record(t)
	h.c.Upload(context.Background())
	if h.c.State().LastError == "" {
		t.Fatal("upload failure did not set error")
	}

	h.c.StartRecording(context.Background())
	if st := h.c.State(); st.LastError != "" {
		t.Errorf("LastError = %q, new operation should clear it", st.LastError)
	}
}

func TestSinkSeesEveryPhase(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	h.c.Upload(context.Background())

	var sawRecording, sawUploading bool
	h.sink.mu.Lock()
	for _, st := range h.sink.states {
		if st.Recording {
			sawRecording = true
		}
		if st.Uploading {
			sawUploading = true
		}
	}
	h.sink.mu.Unlock()
	if !sawRecording {
		t.Error("no snapshot showed the recording phase")
	}
	if !sawUploading {
		t.Error("no snapshot showed the uploading phase")
	}
}
