package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"studyhub/pkg/chat"
	"studyhub/pkg/config"
	"studyhub/pkg/store"
)

func openTemp(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func seedMsg(t *testing.T, session string, ts time.Time) {
	t.Helper()
	raw := fmt.Sprintf(`{"id": "m", "text": "hi", "sender": "user", "timestamp": %d}`, ts.UnixMilli())
	if _, err := store.Push("chatbot/devices/device_1/"+session, json.RawMessage(raw)); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func seedReport(t *testing.T, ts time.Time) {
	t.Helper()
	raw := fmt.Sprintf(`{"name": "a", "message": "b", "timestamp": %q}`, ts.Format(time.RFC3339))
	if _, err := store.Push("userReports", json.RawMessage(raw)); err != nil {
		t.Fatalf("push report: %v", err)
	}
}

func TestRunPurgesStaleSessions(t *testing.T) {
	openTemp(t)
	seedMsg(t, "stale", time.Now().Add(-60*24*time.Hour))
	seedMsg(t, "fresh", time.Now())

	cfg := config.RetentionConfig{Enabled: true, Period: "30d"}
	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	sessions, err := chat.Sessions("device_1")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Name != "fresh" {
		t.Fatalf("expected only fresh session, got %+v", sessions)
	}
}

func TestRunPurgesUnprefixedScopes(t *testing.T) {
	openTemp(t)
	raw := fmt.Sprintf(`{"id": "m", "text": "hi", "sender": "user", "timestamp": %d}`,
		time.Now().Add(-60*24*time.Hour).UnixMilli())
	if _, err := store.Push("chatbot/devices/kiosk-7/old", json.RawMessage(raw)); err != nil {
		t.Fatalf("push: %v", err)
	}

	cfg := config.RetentionConfig{Enabled: true, Period: "30d"}
	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	sessions, err := chat.Sessions("kiosk-7")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("unprefixed scope survived purge: %+v", sessions)
	}
}

func TestRunDryRunKeepsEverything(t *testing.T) {
	openTemp(t)
	seedMsg(t, "stale", time.Now().Add(-60*24*time.Hour))
	seedReport(t, time.Now().Add(-60*24*time.Hour))

	cfg := config.RetentionConfig{Enabled: true, Period: "30d", DryRun: true}
	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	sessions, _ := chat.Sessions("device_1")
	if len(sessions) != 1 {
		t.Fatalf("dry run removed a session: %+v", sessions)
	}
	reports, _ := chat.Reports()
	if len(reports) != 1 {
		t.Fatalf("dry run removed a report: %+v", reports)
	}
}

func TestRunPurgesOldReports(t *testing.T) {
	openTemp(t)
	seedReport(t, time.Now().Add(-60*24*time.Hour))
	seedReport(t, time.Now())

	cfg := config.RetentionConfig{Enabled: true, Period: "30d"}
	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	reports, err := chat.Reports()
	if err != nil {
		t.Fatalf("reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected one surviving report, got %d", len(reports))
	}
}

func TestRunPausedSkips(t *testing.T) {
	openTemp(t)
	seedMsg(t, "stale", time.Now().Add(-60*24*time.Hour))

	cfg := config.RetentionConfig{Enabled: true, Period: "30d", Paused: true}
	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	sessions, _ := chat.Sessions("device_1")
	if len(sessions) != 1 {
		t.Fatalf("paused run removed a session: %+v", sessions)
	}
}

func TestMinPeriodClamps(t *testing.T) {
	openTemp(t)
	// 10 days old, period says purge after 1d but min period holds 30d
	seedMsg(t, "recentish", time.Now().Add(-10*24*time.Hour))

	cfg := config.RetentionConfig{Enabled: true, Period: "1d", MinPeriod: "30d"}
	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	sessions, _ := chat.Sessions("device_1")
	if len(sessions) != 1 {
		t.Fatalf("min period not honored: %+v", sessions)
	}
}

func TestStartRejectsBadCron(t *testing.T) {
	if _, err := Start(context.Background(), config.RetentionConfig{Enabled: true, Cron: "not a cron"}); err == nil {
		t.Fatalf("expected error for invalid cron")
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 30 * 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"48h", 48 * time.Hour},
	}
	for _, c := range cases {
		got, err := parsePeriod(c.in, 30*24*time.Hour)
		if err != nil {
			t.Fatalf("parsePeriod(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parsePeriod(%q) = %v want %v", c.in, got, c.want)
		}
	}
	if _, err := parsePeriod("bogus", 0); err == nil {
		t.Fatalf("expected error for bogus period")
	}
}
