package chat

import (
	"encoding/json"
	"testing"

	"studyhub/pkg/models"
	"studyhub/pkg/responder"
	"studyhub/pkg/store"
)

func openTemp(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func TestEnsureSessionCollision(t *testing.T) {
	openTemp(t)
	seedMsg(t, "device_1", "hello")
	seedMsg(t, "device_1", "hello_1")

	got, err := EnsureSession("device_1", "hello")
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if got != "hello_2" {
		t.Fatalf("expected hello_2 got %q", got)
	}
	got, err = EnsureSession("device_1", "fresh")
	if err != nil || got != "fresh" {
		t.Fatalf("expected fresh got %q err %v", got, err)
	}
}

func TestExchangeAnswersFromTable(t *testing.T) {
	openTemp(t)
	if err := store.Set(responder.TablePath, json.RawMessage(`{"hello": ["hi there"]}`)); err != nil {
		t.Fatalf("seed table: %v", err)
	}
	rep, err := Exchange("device_1", "s1", "hello")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if !rep.BotActive || rep.Text != "hi there" {
		t.Fatalf("unexpected reply: %+v", rep)
	}
	msgs, err := sessionMessages("device_1", "s1")
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected user+bot messages, got %d", len(msgs))
	}
	if msgs[0].Sender != models.SenderUser || msgs[1].Sender != models.SenderBot {
		t.Fatalf("messages out of order: %+v", msgs)
	}
}

func TestDeviceScopeCannotReachSettings(t *testing.T) {
	openTemp(t)
	if err := store.Set(responder.TablePath, json.RawMessage(`{"hello": ["hi there"]}`)); err != nil {
		t.Fatalf("seed table: %v", err)
	}
	if err := store.Set(PasswordPath, "s3cret"); err != nil {
		t.Fatalf("seed password: %v", err)
	}
	for _, device := range []string{"responses", "adminPassword", "botActive"} {
		if _, err := Exchange(device, "s1", "anything"); err != nil {
			t.Fatalf("exchange as %q: %v", device, err)
		}
	}
	rules, err := responder.LoadTable()
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	if len(rules) != 1 || rules[0].Trigger != "hello" {
		t.Fatalf("rule table changed by chat traffic: %+v", rules)
	}
	if got := store.GetString(PasswordPath); got != "s3cret" {
		t.Fatalf("password changed by chat traffic: %q", got)
	}
	if err := DeleteAll("botActive"); err != nil {
		t.Fatalf("delete scope: %v", err)
	}
	if !BotActive() {
		t.Fatalf("bot toggle clobbered by scope delete")
	}
}

func TestExchangeBotInactive(t *testing.T) {
	openTemp(t)
	if err := SetBotActive(false); err != nil {
		t.Fatalf("set bot inactive: %v", err)
	}
	rep, err := Exchange("device_1", "s1", "hello")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if rep.BotActive || rep.Text != "" {
		t.Fatalf("expected silent reply, got %+v", rep)
	}
	msgs, _ := sessionMessages("device_1", "s1")
	if len(msgs) != 1 {
		t.Fatalf("expected only the user message, got %d", len(msgs))
	}
}

func TestExchangeFallback(t *testing.T) {
	openTemp(t)
	rep, err := Exchange("device_1", "s1", "whatever")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if rep.Text != responder.Fallback {
		t.Fatalf("expected fallback, got %q", rep.Text)
	}
}

func TestTranscriptPinsGreeting(t *testing.T) {
	openTemp(t)
	_ = store.Set("chatbot/initialMessage", "Welcome!")
	if _, err := Exchange("device_1", "s1", "hello"); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	msgs, err := Transcript("device_1", "s1", "")
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(msgs) < 3 || msgs[0].Text != "Welcome!" || msgs[0].Sender != models.SenderBot {
		t.Fatalf("greeting not pinned: %+v", msgs)
	}
}

func TestSessionsNewestFirst(t *testing.T) {
	openTemp(t)
	push(t, "device_1", "old", models.Message{ID: "1", Text: "a", Sender: models.SenderUser, TS: 100})
	push(t, "device_1", "new", models.Message{ID: "2", Text: "b", Sender: models.SenderUser, TS: 200})

	got, err := Sessions("device_1")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(got) != 2 || got[0].Name != "new" || got[1].Name != "old" {
		t.Fatalf("unexpected ordering: %+v", got)
	}
}

func TestLiveFeedMergesAndSorts(t *testing.T) {
	openTemp(t)
	push(t, "device_1", "a", models.Message{ID: "1", Text: "first", Sender: models.SenderUser, TS: 100})
	push(t, "device_1", "b", models.Message{ID: "2", Text: "second", Sender: models.SenderUser, TS: 300})
	push(t, "device_1", "a", models.Message{ID: "3", Text: "third", Sender: models.SenderAdmin, TS: 200})

	feed, err := LiveFeed("device_1")
	if err != nil {
		t.Fatalf("live feed: %v", err)
	}
	if len(feed) != 3 {
		t.Fatalf("expected 3 messages got %d", len(feed))
	}
	if feed[0].Text != "second" || feed[1].Text != "third" || feed[2].Text != "first" {
		t.Fatalf("feed not newest-first: %+v", feed)
	}
	if feed[0].Session != "b" || feed[1].Session != "a" {
		t.Fatalf("feed missing session tags: %+v", feed)
	}
}

func TestDetectControl(t *testing.T) {
	openTemp(t)
	if got := DetectControl("anything"); got != ControlNone {
		t.Fatalf("no password set, expected ControlNone got %v", got)
	}
	_ = store.Set(PasswordPath, "s3cret")
	cases := map[string]Control{
		"s3cret":           ControlAdmin,
		" s3cret ":         ControlAdmin,
		"s3cret ani #r":    ControlReports,
		"s3cret ani #l":    ControlLiveChat,
		"s3cret ani #t":    ControlConsole,
		"s3cret ani #exit": ControlConsoleExit,
		"wrong ani #r":     ControlNone,
		"hello":            ControlNone,
	}
	for in, want := range cases {
		if got := DetectControl(in); got != want {
			t.Fatalf("DetectControl(%q)=%v want %v", in, got, want)
		}
	}
}

func TestReportsFilterAndOrder(t *testing.T) {
	openTemp(t)
	if err := FileReport("alice", "broken link on notices"); err != nil {
		t.Fatalf("file report: %v", err)
	}
	// malformed record lacking a message must be dropped
	if _, err := store.Push(ReportsPath, map[string]any{"name": "bob", "timestamp": "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("push malformed: %v", err)
	}
	got, err := Reports()
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if len(got) != 1 || got[0].Name != "alice" {
		t.Fatalf("unexpected reports: %+v", got)
	}
	if err := FileReport("", ""); err == nil {
		t.Fatalf("expected error for empty report")
	}
}

func TestDeleteSession(t *testing.T) {
	openTemp(t)
	push(t, "device_1", "gone", models.Message{ID: "1", Text: "x", Sender: models.SenderUser, TS: 1})
	push(t, "device_1", "kept", models.Message{ID: "2", Text: "y", Sender: models.SenderUser, TS: 2})
	if err := DeleteSession("device_1", "gone"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, _ := Sessions("device_1")
	if len(got) != 1 || got[0].Name != "kept" {
		t.Fatalf("unexpected sessions after delete: %+v", got)
	}
	if err := DeleteAll("device_1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	got, _ = Sessions("device_1")
	if len(got) != 0 {
		t.Fatalf("expected no sessions, got %+v", got)
	}
}

func seedMsg(t *testing.T, device, session string) {
	t.Helper()
	push(t, device, session, models.Message{ID: "seed", Text: "hi", Sender: models.SenderUser, TS: 1})
}

func push(t *testing.T, device, session string, m models.Message) {
	t.Helper()
	if _, err := store.Push(sessionPath(device, session), m); err != nil {
		t.Fatalf("push message: %v", err)
	}
}
