package content

import (
	"encoding/json"
	"math/rand"

	"studyhub/pkg/logger"
	"studyhub/pkg/models"
	"studyhub/pkg/store"
)

// Default accent colors applied when a notice or link carries none, or
// carries the literal placeholder "0".
const (
	DefaultNoticeBg    = "#eaf4ff"
	DefaultNoticeEmoji = "#2E86DE"
	DefaultLinkColor   = "#2E86DE"
)

// Notices returns the board notices in store order with colors defaulted.
func Notices() ([]models.Notice, error) {
	m, err := objectAt("notices")
	if err != nil {
		return nil, err
	}
	out := make([]models.Notice, 0, len(m))
	for _, key := range sortedKeys(m) {
		rec, ok := m[key].(map[string]any)
		if !ok {
			continue
		}
		n := models.Notice{
			ID:         key,
			Message:    str(rec["message"]),
			BgColor:    str(rec["bgColor"]),
			EmojiColor: str(rec["emojiColor"]),
		}
		if n.BgColor == "" || n.BgColor == "0" {
			n.BgColor = DefaultNoticeBg
		}
		if n.EmojiColor == "" || n.EmojiColor == "0" {
			n.EmojiColor = DefaultNoticeEmoji
		}
		out = append(out, n)
	}
	return out, nil
}

// AppLinks returns the quick-link buttons with colors defaulted.
func AppLinks() ([]models.AppLink, error) {
	m, err := objectAt("appLinks")
	if err != nil {
		return nil, err
	}
	out := make([]models.AppLink, 0, len(m))
	for _, key := range sortedKeys(m) {
		rec, ok := m[key].(map[string]any)
		if !ok {
			continue
		}
		l := models.AppLink{
			ID:    key,
			Name:  str(rec["name"]),
			URL:   str(rec["url"]),
			Color: str(rec["color"]),
		}
		if l.Color == "" || l.Color == "0" {
			l.Color = DefaultLinkColor
		}
		out = append(out, l)
	}
	return out, nil
}

// WelcomeBox returns the banner record, or nil when hidden (show != 1) or
// absent.
func WelcomeBox() (*models.WelcomeBox, error) {
	var box models.WelcomeBox
	ok, err := decodeAt("welcomeBox", &box)
	if err != nil || !ok {
		return nil, err
	}
	if box.Show != 1 {
		return nil, nil
	}
	return &box, nil
}

// Popup returns the announcement popup, or nil unless its flag is 1.
func Popup() (*models.Popup, error) {
	var p models.Popup
	ok, err := decodeAt("popup", &p)
	if err != nil || !ok {
		return nil, err
	}
	if p.Flag != 1 {
		return nil, nil
	}
	return &p, nil
}

// ForceUpdate returns the update gate, or nil unless it is armed:
// status 0 with a download URL present.
func ForceUpdate() (*models.ForceUpdate, error) {
	m, err := objectAt("forceUpdate")
	if err != nil || m == nil {
		return nil, err
	}
	// the gate arms only on an explicit status 0
	status, hasStatus := m["status"]
	if !hasStatus || num(status) != 0 {
		return nil, nil
	}
	f := models.ForceUpdate{Status: 0, APKURL: str(m["apkUrl"])}
	if f.APKURL == "" {
		return nil, nil
	}
	return &f, nil
}

// Courses lists the configured course names.
func Courses() ([]string, error) {
	return store.Children("courses")
}

// RandomBooks flattens every course's books and returns them shuffled,
// for the discovery shelf.
func RandomBooks() ([]models.ContentItem, error) {
	snap, err := store.GetRaw("courses")
	if err != nil {
		return nil, err
	}
	a := &Aggregator{}
	a.rebuildBooks(snap)
	books := a.books
	rand.Shuffle(len(books), func(i, j int) {
		books[i], books[j] = books[j], books[i]
	})
	return books, nil
}

func objectAt(path string) (map[string]any, error) {
	v, err := store.Get(path)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)
	return m, nil
}

func decodeAt(path string, dst any) (bool, error) {
	v, err := store.Get(path)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		logger.Warn("home_record_corrupt", "path", path, "error", err)
		return false, nil
	}
	return true, nil
}
