package content

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

// Engagement counters are plain read-then-write increments, matching the
// client contract: concurrent taps may collapse into one increment and
// that is accepted.

// Like bumps the likes counter at an item's store path.
func Like(path string) (int64, error) {
	return bump(path, "likes")
}

// Share bumps the shares counter at an item's store path.
func Share(path string) (int64, error) {
	return bump(path, "shares")
}

func bump(path, field string) (int64, error) {
	path = store.CleanPath(path)
	if path == "" {
		return 0, fmt.Errorf("empty path")
	}
	cur, err := store.Get(path + "/" + field)
	if err != nil {
		return 0, err
	}
	next := num(cur) + 1
	if err := store.Set(path+"/"+field, next); err != nil {
		return 0, err
	}
	logger.Debug("counter_bumped", "path", path, "field", field, "value", next)
	return next, nil
}

// AddComment stores a new comment under a post and returns its id.
func AddComment(postID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty comment")
	}
	return store.Push("postcom/"+store.CleanPath(postID), map[string]any{
		"text":  text,
		"date":  time.Now().Format(time.RFC3339),
		"likes": 0,
	})
}

// LikeComment bumps one comment's likes counter.
func LikeComment(postID, commentID string) (int64, error) {
	return bump("postcom/"+store.CleanPath(postID)+"/"+store.CleanPath(commentID), "likes")
}

// Comments lists a post's comments in store order.
func Comments(postID string) ([]models.Comment, error) {
	base := "postcom/" + store.CleanPath(postID)
	keys, err := store.Children(base)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	out := make([]models.Comment, 0, len(keys))
	for _, k := range keys {
		raw, err := store.GetRaw(base + "/" + k)
		if err != nil {
			return nil, err
		}
		var c models.Comment
		if err := json.Unmarshal(raw, &c); err != nil {
			logger.Warn("comment_corrupt", "post", postID, "key", k, "error", err)
			continue
		}
		c.ID = k
		out = append(out, c)
	}
	return out, nil
}
