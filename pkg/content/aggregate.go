// Package content materializes the feed the app renders: posts plus the
// course material trees flattened into one item list, kept fresh through
// store watches, with engagement counters written back to the item's own
// store path.
package content

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"studyhub/pkg/logger"
	"studyhub/pkg/models"
	"studyhub/pkg/store"
)

// Aggregator owns the subtree watches and serves consistent snapshots of
// the flattened feed. One Close tears the whole set down.
type Aggregator struct {
	mu        sync.RWMutex
	posts     []models.ContentItem
	books     []models.ContentItem
	qps       []models.ContentItem
	materials []models.ContentItem
	comments  map[string]int64

	subs     []*store.Subscription
	wg       sync.WaitGroup
	onUpdate []func()
	closed   bool
}

// NewAggregator subscribes to every content root and primes the feed
// from the initial snapshots.
func NewAggregator() (*Aggregator, error) {
	a := &Aggregator{comments: map[string]int64{}}
	roots := map[string]func(json.RawMessage){
		"posts":          a.rebuildPosts,
		"courses":        a.rebuildBooks,
		"previousYearQP": a.rebuildQPs,
		"extraMaterial":  a.rebuildMaterials,
		"postcom":        a.rebuildComments,
	}
	for path, rebuild := range roots {
		sub, err := store.Watch(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.subs = append(a.subs, sub)
		// first snapshot applies synchronously so the feed is ready
		// before NewAggregator returns
		rebuild(<-sub.Updates())
		a.wg.Add(1)
		go a.consume(sub, rebuild)
	}
	logger.Info("aggregator_started", "roots", len(roots))
	return a, nil
}

func (a *Aggregator) consume(sub *store.Subscription, rebuild func(json.RawMessage)) {
	defer a.wg.Done()
	for snap := range sub.Updates() {
		rebuild(snap)
		a.fireUpdate()
	}
}

// OnUpdate registers a callback invoked after every feed rebuild.
func (a *Aggregator) OnUpdate(fn func()) {
	a.mu.Lock()
	a.onUpdate = append(a.onUpdate, fn)
	a.mu.Unlock()
}

func (a *Aggregator) fireUpdate() {
	a.mu.RLock()
	fns := append([]func(){}, a.onUpdate...)
	a.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// Close detaches every watch and waits for the consumers to drain.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()
	for _, sub := range a.subs {
		sub.Close()
	}
	a.wg.Wait()
}

// Feed returns the items of one category, newest first. Posts carry
// their comment counts; an unknown category falls back to posts.
func (a *Aggregator) Feed(category string) []models.ContentItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var src []models.ContentItem
	switch category {
	case models.CategoryBook:
		src = a.books
	case models.CategoryQP:
		src = a.qps
	case models.CategoryMaterial:
		src = a.materials
	default:
		src = a.posts
	}
	out := make([]models.ContentItem, len(src))
	copy(out, src)
	for i := range out {
		if out[i].Category == models.CategoryPost {
			out[i].Comments = a.comments[out[i].ID]
		}
	}
	return out
}

// Search filters one category by a case-insensitive substring of the
// title or body.
func (a *Aggregator) Search(category, query string) []models.ContentItem {
	q := strings.ToLower(query)
	var out []models.ContentItem
	for _, it := range a.Feed(category) {
		if strings.Contains(strings.ToLower(it.Title), q) ||
			strings.Contains(strings.ToLower(it.Content), q) {
			out = append(out, it)
		}
	}
	return out
}

// Post returns one post by id, or false when it is gone.
func (a *Aggregator) Post(id string) (models.ContentItem, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, p := range a.posts {
		if p.ID == id {
			p.Comments = a.comments[p.ID]
			return p, true
		}
	}
	return models.ContentItem{}, false
}

func (a *Aggregator) rebuildPosts(snap json.RawMessage) {
	m := decodeObject(snap)
	items := make([]models.ContentItem, 0, len(m))
	for _, key := range sortedKeys(m) {
		rec, ok := m[key].(map[string]any)
		if !ok {
			continue
		}
		items = append(items, models.ContentItem{
			ID:       key,
			Title:    str(rec["title"]),
			Content:  str(rec["content"]),
			Date:     str(rec["date"]),
			ImageURL: str(rec["imageUrl"]),
			Likes:    num(rec["likes"]),
			Shares:   num(rec["shares"]),
			Category: models.CategoryPost,
			Path:     "posts/" + key,
		})
	}
	reverse(items)
	a.mu.Lock()
	a.posts = items
	a.mu.Unlock()
}

func (a *Aggregator) rebuildBooks(snap json.RawMessage) {
	courses := decodeObject(snap)
	var items []models.ContentItem
	for _, course := range sortedKeys(courses) {
		courseRec, ok := courses[course].(map[string]any)
		if !ok {
			continue
		}
		sems, ok := courseRec["books"].(map[string]any)
		if !ok {
			continue
		}
		for _, sem := range sortedKeys(sems) {
			books, ok := sems[sem].(map[string]any)
			if !ok {
				continue
			}
			for _, key := range sortedKeys(books) {
				rec, ok := books[key].(map[string]any)
				if !ok || str(rec["name"]) == "" {
					continue
				}
				items = append(items, models.ContentItem{
					ID:       course + "-" + sem + "-" + key,
					Title:    str(rec["name"]),
					Content:  str(rec["description"]),
					Date:     str(rec["date"]),
					ImageURL: str(rec["coverUrl"]),
					PDFURL:   str(rec["pdfUrl"]),
					Likes:    num(rec["likes"]),
					Shares:   num(rec["shares"]),
					Category: models.CategoryBook,
					Path:     "courses/" + course + "/books/" + sem + "/" + key,
				})
			}
		}
	}
	reverse(items)
	a.mu.Lock()
	a.books = items
	a.mu.Unlock()
}

func (a *Aggregator) rebuildQPs(snap json.RawMessage) {
	items := a.flattenThreeLevel(snap, "previousYearQP", models.CategoryQP)
	a.mu.Lock()
	a.qps = items
	a.mu.Unlock()
}

func (a *Aggregator) rebuildMaterials(snap json.RawMessage) {
	items := a.flattenThreeLevel(snap, "extraMaterial", models.CategoryMaterial)
	a.mu.Lock()
	a.materials = items
	a.mu.Unlock()
}

// flattenThreeLevel walks course/semester/subject trees whose leaves are
// named records. Records missing a name are skipped.
func (a *Aggregator) flattenThreeLevel(snap json.RawMessage, root, category string) []models.ContentItem {
	courses := decodeObject(snap)
	var items []models.ContentItem
	for _, course := range sortedKeys(courses) {
		sems, ok := courses[course].(map[string]any)
		if !ok {
			continue
		}
		for _, sem := range sortedKeys(sems) {
			subjects, ok := sems[sem].(map[string]any)
			if !ok {
				continue
			}
			for _, subject := range sortedKeys(subjects) {
				recs, ok := subjects[subject].(map[string]any)
				if !ok {
					continue
				}
				for _, key := range sortedKeys(recs) {
					rec, ok := recs[key].(map[string]any)
					if !ok || str(rec["name"]) == "" {
						continue
					}
					items = append(items, models.ContentItem{
						ID:       course + "-" + sem + "-" + subject + "-" + key,
						Title:    str(rec["name"]),
						Content:  str(rec["description"]),
						Date:     str(rec["date"]),
						PDFURL:   str(rec["pdfUrl"]),
						Likes:    num(rec["likes"]),
						Shares:   num(rec["shares"]),
						Category: category,
						Path:     root + "/" + course + "/" + sem + "/" + subject + "/" + key,
					})
				}
			}
		}
	}
	reverse(items)
	return items
}

func (a *Aggregator) rebuildComments(snap json.RawMessage) {
	m := decodeObject(snap)
	counts := make(map[string]int64, len(m))
	for postID, v := range m {
		if kids, ok := v.(map[string]any); ok {
			counts[postID] = int64(len(kids))
		}
	}
	a.mu.Lock()
	a.comments = counts
	a.mu.Unlock()
}

func decodeObject(snap json.RawMessage) map[string]any {
	var v any
	if err := json.Unmarshal(snap, &v); err != nil {
		logger.Warn("aggregate_bad_snapshot", "error", err)
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func reverse(items []models.ContentItem) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	}
	return 0
}
