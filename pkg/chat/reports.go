package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"studyhub/pkg/logger"
	"studyhub/pkg/models"
	"studyhub/pkg/store"
)

// ReportsPath is the store path holding user-filed reports.
const ReportsPath = "userReports"

// FileReport stores a new user report stamped with RFC 3339 time.
func FileReport(name, message string) error {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)
	if name == "" || message == "" {
		return fmt.Errorf("report needs both a name and a message")
	}
	_, err := store.Push(ReportsPath, models.Report{
		Name:      name,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return err
}

// Reports lists filed reports newest-first, dropping records missing any
// of the three fields.
func Reports() ([]models.Report, error) {
	keys, err := store.Children(ReportsPath)
	if err != nil {
		return nil, err
	}
	out := make([]models.Report, 0, len(keys))
	for _, k := range keys {
		raw, err := store.GetRaw(ReportsPath + "/" + k)
		if err != nil {
			return nil, err
		}
		var r models.Report
		if err := json.Unmarshal(raw, &r); err != nil {
			logger.Warn("report_corrupt", "key", k, "error", err)
			continue
		}
		if r.Name == "" || r.Message == "" || r.Timestamp == "" {
			continue
		}
		r.ID = k
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := time.Parse(time.RFC3339, out[i].Timestamp)
		tj, _ := time.Parse(time.RFC3339, out[j].Timestamp)
		return ti.After(tj)
	})
	return out, nil
}

// ClearReports removes every filed report.
func ClearReports() error {
	return store.Remove(ReportsPath)
}
