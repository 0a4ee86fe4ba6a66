package ui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/sporthub/internal/api"
	"github.com/five82/sporthub/internal/prefs"
	"github.com/five82/sporthub/internal/query"
	"github.com/five82/sporthub/internal/state"
	"github.com/five82/sporthub/internal/timing"
)

type stubRequester struct {
	fail map[string]bool
}

func (s stubRequester) Do(ctx context.Context, endpoint string, opts api.RequestOptions) (api.Envelope[json.RawMessage], error) {
	if s.fail[endpoint] {
		return api.Envelope[json.RawMessage]{}, &api.Error{Kind: api.KindHTTP, Message: "HTTP error! status: 503", HTTPStatus: 503}
	}
	payload := `{"status":"ok","message":"healthy","data":{"uptime":12}}`
	if endpoint == timing.ClassificationPath {
		payload = `{"status":"ok","data":{"count":2,"standings":[
			{"tag_id":"A1","laps":5,"total_time_ms":61000,"finished":true},
			{"tag_id":"B2","laps":4,"laps_behind":1}
		]}}`
	}
	return api.Envelope[json.RawMessage]{Payload: json.RawMessage(payload), StatusCode: 200}, nil
}

func newTestModel(t *testing.T, r api.Requester, lastEndpoint string) (Model, *state.Store, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := query.NewCache(query.WithLogger(logger))
	store := state.NewStore(cache, r, timing.DefaultEndpoints(),
		state.WithLogger(logger),
		state.WithQueryOptions(query.WithRetry(query.NoRetry())),
	)
	store.Mount(context.Background())
	t.Cleanup(store.Close)

	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	m := New(Options{
		Context:      context.Background(),
		Store:        store,
		BaseURL:      "http://timing.local",
		LastEndpoint: lastEndpoint,
		PrefsPath:    prefsPath,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return updated.(Model), store, prefsPath
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNew_SelectsLastEndpoint(t *testing.T) {
	m, _, _ := newTestModel(t, stubRequester{}, timing.HealthPath)
	if got := m.selectedPath(); got != timing.HealthPath {
		t.Fatalf("selectedPath = %q, want %q", got, timing.HealthPath)
	}

	m, _, _ = newTestModel(t, stubRequester{}, "/gone")
	if got := m.selectedPath(); got != timing.ClassificationPath {
		t.Fatalf("selectedPath = %q, want first endpoint", got)
	}
}

func TestView_LoadingUntilSized(t *testing.T) {
	m := New(Options{})
	if got := m.View(); got != "Loading..." {
		t.Fatalf("View = %q, want Loading...", got)
	}
}

func TestBoard_Navigation(t *testing.T) {
	m, _, _ := newTestModel(t, stubRequester{}, "")

	m, _ = press(t, m, runes("j"))
	if m.selectedRow != 1 {
		t.Fatalf("selectedRow after j = %d, want 1", m.selectedRow)
	}
	m, _ = press(t, m, runes("j"))
	if m.selectedRow != 1 {
		t.Fatalf("selectedRow past end = %d, want 1", m.selectedRow)
	}
	m, _ = press(t, m, runes("g"))
	if m.selectedRow != 0 {
		t.Fatalf("selectedRow after g = %d, want 0", m.selectedRow)
	}
	m, _ = press(t, m, runes("G"))
	if m.selectedRow != 1 {
		t.Fatalf("selectedRow after G = %d, want 1", m.selectedRow)
	}
}

func TestBoard_TestShowsResult(t *testing.T) {
	m, store, _ := newTestModel(t, stubRequester{}, timing.HealthPath)
	if !strings.Contains(m.View(), "Press enter to test") {
		t.Fatalf("untested view missing hint:\n%s", m.View())
	}

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter returned no command")
	}
	msg := cmd()
	if am, ok := msg.(actionMsg); !ok || am.err != nil {
		t.Fatalf("test command returned %#v", msg)
	}
	if _, err := store.Wait(waitCtx(t), timing.HealthPath); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	updated, _ := m.Update(snapshotMsg(store.Snapshot()))
	m = updated.(Model)
	view := m.View()
	for _, want := range []string{"Status: ok", "healthy", `"uptime": 12`, "1/2 tested"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if got := rowLabel(m.snapshot.Rows[1]); got != labelOK {
		t.Fatalf("rowLabel = %q, want %q", got, labelOK)
	}
}

func TestBoard_FailureShowsError(t *testing.T) {
	m, store, _ := newTestModel(t, stubRequester{fail: map[string]bool{timing.HealthPath: true}}, timing.HealthPath)

	_, cmd := press(t, m, runes("t"))
	cmd()
	if _, err := store.Wait(waitCtx(t), timing.HealthPath); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	updated, _ := m.Update(snapshotMsg(store.Snapshot()))
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "HTTP error! status: 503") {
		t.Fatalf("view missing error:\n%s", view)
	}
	if strings.Contains(view, "Status: 503") {
		t.Fatalf("view shows status for an unpropagated error:\n%s", view)
	}
	if !strings.Contains(view, "1 failed") {
		t.Fatalf("header missing failed count:\n%s", view)
	}
}

func TestBoard_ResetHidesResult(t *testing.T) {
	m, store, _ := newTestModel(t, stubRequester{}, timing.HealthPath)
	if err := store.Test(context.Background(), timing.HealthPath); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if _, err := store.Wait(waitCtx(t), timing.HealthPath); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	_, cmd := press(t, m, runes("r"))
	cmd()
	updated, _ := m.Update(snapshotMsg(store.Snapshot()))
	m = updated.(Model)
	if got := rowLabel(m.snapshot.Rows[1]); got != labelUntested {
		t.Fatalf("rowLabel after reset = %q, want %q", got, labelUntested)
	}
}

func TestBoard_TestAllRendersStandings(t *testing.T) {
	m, store, _ := newTestModel(t, stubRequester{}, "")

	_, cmd := press(t, m, runes("a"))
	if am, ok := cmd().(actionMsg); !ok || am.err != nil {
		t.Fatalf("test all returned %#v", am)
	}
	updated, _ := m.Update(snapshotMsg(store.Snapshot()))
	m = updated.(Model)

	view := m.View()
	for _, want := range []string{"2 competitors, 1 finished", "A1", "Leader", "+1 lap", "2/2 tested"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestHelp_AnyKeyCloses(t *testing.T) {
	m, _, _ := newTestModel(t, stubRequester{}, "")

	m, _ = press(t, m, runes("?"))
	if !m.showHelp {
		t.Fatal("showHelp = false after ?")
	}
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("help view missing title:\n%s", m.View())
	}
	m, _ = press(t, m, runes("j"))
	if m.showHelp {
		t.Fatal("showHelp = true after second key")
	}
	if m.selectedRow != 0 {
		t.Fatalf("key that closed help also moved selection to %d", m.selectedRow)
	}
}

func TestQuit_SavesLastEndpoint(t *testing.T) {
	m, _, prefsPath := newTestModel(t, stubRequester{}, "")
	m, _ = press(t, m, runes("j"))

	_, cmd := press(t, m, runes("e"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit command did not return tea.QuitMsg")
	}
	p, err := prefs.Load(prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.LastEndpoint != timing.HealthPath {
		t.Fatalf("LastEndpoint = %q, want %q", p.LastEndpoint, timing.HealthPath)
	}
}

func TestCycleTheme_PersistsChoice(t *testing.T) {
	m, _, prefsPath := newTestModel(t, stubRequester{}, "")
	if m.theme.Name != "Nightfox" {
		t.Fatalf("initial theme = %q, want Nightfox", m.theme.Name)
	}

	m, _ = press(t, m, runes("T"))
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme after T = %q, want Kanagawa", m.theme.Name)
	}
	p, err := prefs.Load(prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Theme != "Kanagawa" {
		t.Fatalf("saved theme = %q, want Kanagawa", p.Theme)
	}
}

func TestLogs_ViewReadsFile(t *testing.T) {
	m, _, _ := newTestModel(t, stubRequester{}, "")
	m.logPath = filepath.Join(t.TempDir(), "missing.log")

	m, cmd := press(t, m, runes("l"))
	if m.currentView != ViewLogs {
		t.Fatalf("currentView = %v, want ViewLogs", m.currentView)
	}
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if !strings.Contains(m.View(), "No log entries") {
		t.Fatalf("log view missing empty state:\n%s", m.View())
	}

	updated, _ = m.Update(logLinesMsg{`{"time":"2026-01-02T03:04:05Z","level":"ERROR","msg":"probe failed","path":"/health"}`})
	m = updated.(Model)
	if !strings.Contains(m.View(), "probe failed path=/health") {
		t.Fatalf("log view missing entry:\n%s", m.View())
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.currentView != ViewBoard {
		t.Fatalf("currentView after esc = %v, want ViewBoard", m.currentView)
	}
}

func TestWaitForChange(t *testing.T) {
	if waitForChange(nil) != nil {
		t.Fatal("waitForChange(nil) returned a command")
	}
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	if _, ok := waitForChange(ch)().(changeMsg); !ok {
		t.Fatal("waitForChange did not return changeMsg")
	}
	close(ch)
	if msg := waitForChange(ch)(); msg != nil {
		t.Fatalf("closed channel returned %#v, want nil", msg)
	}
}

func TestRowLabel(t *testing.T) {
	data := &api.Envelope[json.RawMessage]{Payload: json.RawMessage(`{}`)}
	tests := []struct {
		name string
		row  state.Row
		want string
	}{
		{"untested", state.Row{}, labelUntested},
		{"untested keeps data hidden", state.Row{State: query.State[json.RawMessage]{Data: data}}, labelUntested},
		{"testing", state.Row{Tested: true, State: query.State[json.RawMessage]{IsLoading: true}}, labelTesting},
		{"failed", state.Row{Tested: true, State: query.State[json.RawMessage]{Err: &api.Error{Message: "x"}}}, labelFailed},
		{"stale", state.Row{Tested: true, State: query.State[json.RawMessage]{Data: data, Stale: true}}, labelStale},
		{"ok", state.Row{Tested: true, State: query.State[json.RawMessage]{Data: data}}, labelOK},
	}
	for _, tt := range tests {
		if got := rowLabel(tt.row); got != tt.want {
			t.Fatalf("%s: rowLabel = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("dial tcp: connection refused"), "OFFLINE"},
		{errors.New("lookup api: no such host"), "HOST NOT FOUND"},
		{errors.New("context deadline exceeded"), "TIMEOUT"},
		{errors.New("HTTP error! status: 500"), "ERROR"},
	}
	for _, tt := range tests {
		if got := classifyConnectionError(tt.err); got != tt.want {
			t.Fatalf("classifyConnectionError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  classification  ", 8); got != "class..." {
		t.Fatalf("truncate = %q, want %q", got, "class...")
	}
	if got := truncate("ok", 8); got != "ok" {
		t.Fatalf("truncate short = %q, want ok", got)
	}
	if got := truncateMiddle("/home/user/.local/share/sporthub/sporthub.log", 20); len([]rune(got)) != 20 || !strings.Contains(got, "...") {
		t.Fatalf("truncateMiddle = %q, want 20 runes with ellipsis", got)
	}
}

func TestPrettyJSON(t *testing.T) {
	if got := prettyJSON(json.RawMessage(`{"a":1}`)); got != "{\n  \"a\": 1\n}" {
		t.Fatalf("prettyJSON = %q", got)
	}
	if got := prettyJSON([]byte("not json")); got != "not json" {
		t.Fatalf("prettyJSON invalid = %q, want verbatim", got)
	}
}

func TestThemes(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 || names[0] != "Nightfox" {
		t.Fatalf("ThemeNames() = %v, want Nightfox first of 3", names)
	}
	if got := NextTheme("Slate"); got != "Nightfox" {
		t.Fatalf("NextTheme(Slate) = %q, want Nightfox", got)
	}
	if got := NextTheme("unknown"); got != "Nightfox" {
		t.Fatalf("NextTheme(unknown) = %q, want Nightfox", got)
	}
	if got := GetTheme("missing").Name; got != "Nightfox" {
		t.Fatalf("GetTheme fallback = %q, want Nightfox", got)
	}
	for _, name := range names {
		th := GetTheme(name)
		for _, label := range []string{labelUntested, labelTesting, labelOK, labelStale, labelFailed} {
			if th.StatusColors[label] == "" {
				t.Fatalf("%s: no color for %q", name, label)
			}
		}
	}
}

func TestBoard_RefetchAndInvalidate(t *testing.T) {
	m, store, _ := newTestModel(t, stubRequester{}, timing.HealthPath)
	if err := store.Test(context.Background(), timing.HealthPath); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if _, err := store.Wait(waitCtx(t), timing.HealthPath); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	before := store.Snapshot().Rows[1].State.UpdatedAt

	_, cmd := press(t, m, runes("R"))
	if am, ok := cmd().(actionMsg); !ok || am.err != nil {
		t.Fatalf("refetch returned %#v", am)
	}
	row, err := store.Wait(waitCtx(t), timing.HealthPath)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if row.State.UpdatedAt.Before(before) {
		t.Fatalf("UpdatedAt went backwards after refetch")
	}

	_, cmd = press(t, m, runes("i"))
	cmd()
	row, err = store.Wait(waitCtx(t), timing.HealthPath)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !row.Tested || row.State.Data == nil {
		t.Fatalf("tested row after invalidate = %+v, want refetched data", row)
	}
	if row := store.Snapshot().Rows[0]; row.Tested || row.State.Data != nil {
		t.Fatalf("untested row after invalidate = %+v, want idle", row)
	}
}
