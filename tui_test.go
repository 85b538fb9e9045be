package main

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MartinO24/BarkBack/coordinator"
	"github.com/MartinO24/BarkBack/history"
	"github.com/MartinO24/BarkBack/player"
	"github.com/MartinO24/BarkBack/recorder"
	"github.com/MartinO24/BarkBack/translate"
)

type nopSink struct{}

func (nopSink) StateChanged(coordinator.State) {}
func (nopSink) Alert(string)                   {}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg(tea.Key{Type: tea.KeyEnter})
	case "up":
		return tea.KeyMsg(tea.Key{Type: tea.KeyUp})
	case "down":
		return tea.KeyMsg(tea.Key{Type: tea.KeyDown})
	default:
		return tea.KeyMsg(tea.Key{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

// press feeds a key and runs the returned command synchronously.
func press(t *testing.T, m tuiModel, key string) tuiModel {
	t.Helper()
	next, cmd := m.Update(keyMsg(key))
	if cmd != nil {
		cmd()
	}
	return next.(tuiModel)
}

func testModel(t *testing.T) (tuiModel, *recorder.FakeRecorder, *player.FakePlayer, *coordinator.Coordinator) {
	t.Helper()
	rec := recorder.NewFakeRecorder()
	pl := player.NewFakePlayer()
	c := coordinator.New(rec, pl, translate.NewFake("Woof! Dinner time.", nil),
		history.NewArchive(history.NewMemoryStore()), nopSink{})
	m := tuiModel{ops: c, ctx: context.Background(), width: 80, height: 24}
	return m, rec, pl, c
}

func TestKeyTogglesRecording(t *testing.T) {
	m, rec, _, c := testModel(t)

	m = press(t, m, "r")
	if rec.Starts() != 1 {
		t.Fatalf("starts = %d, want 1", rec.Starts())
	}
	if !c.State().Recording {
		t.Fatal("coordinator not recording after r")
	}

	press(t, m, "r")
	if rec.Stops() != 1 {
		t.Fatalf("stops = %d, want 1", rec.Stops())
	}
	if got := c.State().Latest; got != rec.Clip.Path {
		t.Errorf("latest = %q, want %q", got, rec.Clip.Path)
	}
}

func TestKeyPlaysLatestClip(t *testing.T) {
	m, rec, pl, c := testModel(t)
	ctx := context.Background()
	c.ToggleRecording(ctx)
	c.ToggleRecording(ctx)

	press(t, m, "p")
	plays := pl.Plays()
	if len(plays) != 1 {
		t.Fatalf("plays = %d, want 1", len(plays))
	}
	if plays[0].Ref != rec.Clip.Path {
		t.Errorf("played %q, want %q", plays[0].Ref, rec.Clip.Path)
	}
}

func TestKeyUploadsLatestClip(t *testing.T) {
	m, _, _, c := testModel(t)
	ctx := context.Background()
	c.ToggleRecording(ctx)
	c.ToggleRecording(ctx)

	press(t, m, "u")
	st := c.State()
	if len(st.History) != 1 {
		t.Fatalf("history = %d items, want 1", len(st.History))
	}
	if st.History[0].Translation != "Woof! Dinner time." {
		t.Errorf("translation = %q", st.History[0].Translation)
	}
	if st.Latest != "" {
		t.Errorf("latest = %q, want cleared", st.Latest)
	}
}

func TestEnterReplaysSelectedItem(t *testing.T) {
	m, _, pl, _ := testModel(t)

	st := coordinator.State{History: []history.Item{
		{ID: "a", Translation: "Woof", URI: "/clips/a.wav"},
		{ID: "b", Translation: "Arf", URI: "/clips/b.wav"},
	}}
	next, _ := m.Update(StateMsg(st))
	m = next.(tuiModel)

	m = press(t, m, "down")
	press(t, m, "enter")

	plays := pl.Plays()
	if len(plays) != 1 {
		t.Fatalf("plays = %d, want 1", len(plays))
	}
	if plays[0].Ref != "/clips/b.wav" {
		t.Errorf("played %q, want /clips/b.wav", plays[0].Ref)
	}
}

func TestCursorClampsWhenHistoryShrinks(t *testing.T) {
	m, _, _, _ := testModel(t)

	three := coordinator.State{History: []history.Item{
		{ID: "a", URI: "a"}, {ID: "b", URI: "b"}, {ID: "c", URI: "c"},
	}}
	next, _ := m.Update(StateMsg(three))
	m = next.(tuiModel)
	m = press(t, m, "down")
	m = press(t, m, "down")
	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", m.cursor)
	}

	one := coordinator.State{History: three.History[:1]}
	next, _ = m.Update(StateMsg(one))
	m = next.(tuiModel)
	if m.cursor != 0 {
		t.Errorf("cursor = %d after shrink, want 0", m.cursor)
	}
}

func TestCopyWithEmptyHistoryIsNoop(t *testing.T) {
	m, _, _, _ := testModel(t)
	next, cmd := m.Update(keyMsg("c"))
	if cmd != nil {
		t.Error("c with empty history should produce no command")
	}
	if got := next.(tuiModel).notice; got != "" {
		t.Errorf("notice = %q, want empty", got)
	}
}

func TestQuitKey(t *testing.T) {
	m, _, _, _ := testModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "", 10, []string{""}},
		{"fits", "woof", 10, []string{"woof"}},
		{"splits on space", "the quick brown fox", 10, []string{"the quick", "brown fox"}},
		{"hard split without spaces", "abcdefghijkl", 5, []string{"abcde", "fghij", "kl"}},
		{"zero width", "ab", 0, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.width)
			if len(got) != len(tt.want) {
				t.Fatalf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
