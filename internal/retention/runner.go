package retention

import (
	"context"
	"fmt"
	"time"

	"studyhub/pkg/chat"
	"studyhub/pkg/config"
	"studyhub/pkg/logger"
	"studyhub/pkg/store"
	"studyhub/pkg/utils"
)

// runOnce executes a single retention run: scan chat sessions and reports,
// purge items whose latest activity is older than the configured period.
func runOnce(ctx context.Context, cfg config.RetentionConfig) error {
	if cfg.Paused {
		logger.Info("retention_paused")
		return nil
	}

	pd, err := effectivePeriod(cfg)
	if err != nil {
		logger.Error("retention_invalid_period", "period", cfg.Period, "error", err)
		return fmt.Errorf("invalid retention period: %w", err)
	}
	cutoff := time.Now().Add(-pd)

	runID := utils.GenID()
	logger.Info("retention_run_start", "run_id", runID, "dry_run", cfg.DryRun, "cutoff", cutoff.Format(time.RFC3339))

	var scanned, purged int

	devices, err := listDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	for _, dev := range devices {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, p, err := purgeSessions(dev, cutoff, cfg.DryRun, runID)
		if err != nil {
			logger.Error("retention_device_error", "device", dev, "error", err)
			continue
		}
		scanned += n
		purged += p
	}

	n, p, err := purgeReports(cutoff, cfg.DryRun, runID)
	if err != nil {
		logger.Error("retention_reports_error", "error", err)
	} else {
		scanned += n
		purged += p
	}

	logger.Info("retention_run_complete", "run_id", runID, "scanned", scanned, "purged", purged)
	return nil
}

// purgeSessions removes sessions whose newest message predates the cutoff.
func purgeSessions(device string, cutoff time.Time, dryRun bool, runID string) (scanned, purged int, err error) {
	feed, err := chat.LiveFeed(device)
	if err != nil {
		return 0, 0, err
	}
	// feed is newest-first, so the first message seen per session carries
	// that session's latest activity.
	latest := make(map[string]int64)
	for _, m := range feed {
		if _, ok := latest[m.Session]; !ok {
			latest[m.Session] = m.TS
		}
	}
	for session, ts := range latest {
		scanned++
		if time.UnixMilli(ts).After(cutoff) {
			continue
		}
		if dryRun {
			logger.Info("retention_item", "run_id", runID, "type", "session", "device", device, "session", session, "status", "dry_run")
			continue
		}
		if err := chat.DeleteSession(device, session); err != nil {
			logger.Error("retention_purge_failed", "type", "session", "session", session, "error", err)
			continue
		}
		purged++
		logger.Info("retention_item", "run_id", runID, "type", "session", "device", device, "session", session, "status", "purged")
	}
	return scanned, purged, nil
}

// purgeReports removes user reports older than the cutoff.
func purgeReports(cutoff time.Time, dryRun bool, runID string) (scanned, purged int, err error) {
	reports, err := chat.Reports()
	if err != nil {
		return 0, 0, err
	}
	for _, rep := range reports {
		scanned++
		ts, perr := time.Parse(time.RFC3339, rep.Timestamp)
		if perr != nil || ts.After(cutoff) {
			continue
		}
		if dryRun {
			logger.Info("retention_item", "run_id", runID, "type", "report", "id", rep.ID, "status", "dry_run")
			continue
		}
		if err := store.Remove(chat.ReportsPath + "/" + rep.ID); err != nil {
			logger.Error("retention_purge_failed", "type", "report", "id", rep.ID, "error", err)
			continue
		}
		purged++
		logger.Info("retention_item", "run_id", runID, "type", "report", "id", rep.ID, "status", "purged")
	}
	return scanned, purged, nil
}

// listDevices enumerates the device scopes holding chat sessions.
func listDevices() ([]string, error) {
	return store.Children("chatbot/devices")
}

// effectivePeriod parses the configured period, clamped to the minimum.
// Supports day suffixes like "30d" alongside time.ParseDuration syntax.
func effectivePeriod(cfg config.RetentionConfig) (time.Duration, error) {
	pd, err := parsePeriod(cfg.Period, 30*24*time.Hour)
	if err != nil {
		return 0, err
	}
	if cfg.MinPeriod != "" {
		min, err := parsePeriod(cfg.MinPeriod, 0)
		if err != nil {
			return 0, fmt.Errorf("invalid min period: %w", err)
		}
		if pd < min {
			pd = min
		}
	}
	return pd, nil
}

func parsePeriod(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	if s[len(s)-1] == 'd' {
		n := 0
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return 0, fmt.Errorf("invalid days period: %w", err)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
