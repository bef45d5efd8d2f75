package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"

	"studyhub/pkg/logger"
	"studyhub/pkg/utils"
)

// The tree store maps slash-delimited paths onto a flat pebble keyspace.
// Values live only at leaves, under keys of the form "node:<path>"; a
// subtree is the set of keys sharing the "node:<path>/" prefix. Pushed
// children use zero-padded timestamp keys (utils.GenKey) so lexicographic
// iteration equals insertion order. Named children iterate in lexical key
// order; callers that depend on insertion order must push.

const keyPrefix = "node:"

var (
	db     *pebble.DB
	dbPath string

	// mu serializes compound mutations (replace = delete subtree + write
	// leaves) so watchers never observe a half-applied replace.
	mu sync.Mutex
)

// Open opens (or creates) a pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_store", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("store_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("store_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present and drops all watchers.
func Close() error {
	closeAllWatches()
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("store_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// CleanPath normalizes a slash-delimited path: leading/trailing slashes
// stripped, empty segments collapsed. The empty string addresses the root.
func CleanPath(p string) string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

func leafKey(path string) []byte {
	return []byte(keyPrefix + path)
}

func childPrefix(path string) []byte {
	if path == "" {
		return []byte(keyPrefix)
	}
	return []byte(keyPrefix + path + "/")
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, for use as an exclusive iteration/delete upper bound.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// Set replaces the entire subtree at path with v. Objects become nested
// children; scalars, arrays and null become leaf values. A nil v (or JSON
// null) is equivalent to Remove.
func Set(path string, v any) error {
	if db == nil {
		return fmt.Errorf("store not opened; call store.Open first")
	}
	path = CleanPath(path)
	if path == "" {
		return fmt.Errorf("refusing to replace store root")
	}
	val, err := decodeValue(v)
	if err != nil {
		return err
	}
	mu.Lock()
	err = func() error {
		if err := deleteSubtreeLocked(path); err != nil {
			return err
		}
		if val == nil {
			return nil
		}
		return writeValueLocked(path, val)
	}()
	mu.Unlock()
	if err != nil {
		logger.Error("store_set_failed", "path", path, "error", err)
		return err
	}
	opsTotal.WithLabelValues("set").Inc()
	notify(path)
	return nil
}

// Update applies a partial-field update: each named field replaces the
// corresponding direct child of path, leaving siblings untouched.
func Update(path string, fields map[string]any) error {
	if db == nil {
		return fmt.Errorf("store not opened; call store.Open first")
	}
	path = CleanPath(path)
	if path == "" {
		return fmt.Errorf("refusing to update store root")
	}
	mu.Lock()
	err := func() error {
		// a leaf value at path cannot hold named children
		if ok, err := hasLeafLocked(path); err != nil {
			return err
		} else if ok {
			if err := db.Delete(leafKey(path), pebble.Sync); err != nil {
				return err
			}
		}
		for k, v := range fields {
			child := path + "/" + CleanPath(k)
			val, err := decodeValue(v)
			if err != nil {
				return err
			}
			if err := deleteSubtreeLocked(child); err != nil {
				return err
			}
			if val == nil {
				continue
			}
			if err := writeValueLocked(child, val); err != nil {
				return err
			}
		}
		return nil
	}()
	mu.Unlock()
	if err != nil {
		logger.Error("store_update_failed", "path", path, "error", err)
		return err
	}
	opsTotal.WithLabelValues("update").Inc()
	notify(path)
	return nil
}

// Push appends v under path with a generated, insertion-ordered key and
// returns the key.
func Push(path string, v any) (string, error) {
	key := utils.GenKey()
	if err := Set(CleanPath(path)+"/"+key, v); err != nil {
		return "", err
	}
	opsTotal.WithLabelValues("push").Inc()
	return key, nil
}

// Remove recursively deletes the subtree at path. Removing a missing path
// is not an error.
func Remove(path string) error {
	if db == nil {
		return fmt.Errorf("store not opened; call store.Open first")
	}
	path = CleanPath(path)
	if path == "" {
		return fmt.Errorf("refusing to remove store root")
	}
	mu.Lock()
	err := deleteSubtreeLocked(path)
	mu.Unlock()
	if err != nil {
		logger.Error("store_remove_failed", "path", path, "error", err)
		return err
	}
	opsTotal.WithLabelValues("remove").Inc()
	notify(path)
	return nil
}

// Get performs a one-shot read of the value at path: a decoded scalar or
// array for leaves, a nested map[string]any for interior nodes, or nil
// when nothing exists at the path.
func Get(path string) (any, error) {
	if db == nil {
		return nil, fmt.Errorf("store not opened; call store.Open first")
	}
	path = CleanPath(path)
	opsTotal.WithLabelValues("get").Inc()
	return getLocked(path)
}

// GetRaw is Get with the result re-encoded as JSON. Missing paths yield
// JSON null.
func GetRaw(path string) (json.RawMessage, error) {
	v, err := Get(path)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetString reads a string leaf; missing or non-string values yield "".
func GetString(path string) string {
	v, err := Get(path)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetBool reads a boolean leaf, falling back to def when missing or of
// another type.
func GetBool(path string, def bool) bool {
	v, err := Get(path)
	if err != nil || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// Children returns the ordered direct child names under path.
func Children(path string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("store not opened; call store.Open first")
	}
	path = CleanPath(path)
	prefix := childPrefix(path)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	last := ""
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		rest := string(iter.Key()[len(prefix):])
		name := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name = rest[:i]
		}
		if name != last {
			out = append(out, name)
			last = name
		}
	}
	return out, iter.Error()
}

// ListKeys returns all raw keys starting with the given path prefix; an
// empty prefix returns every key. Used by admin tooling.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("store not opened; call store.Open first")
	}
	pfx := []byte(keyPrefix + CleanPath(prefix))
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, strings.TrimPrefix(string(iter.Key()), keyPrefix))
	}
	return out, iter.Error()
}

// decodeValue normalizes input to plain decoded JSON values. []byte and
// json.RawMessage are unmarshaled; everything else round-trips through
// encoding/json so structs flatten to maps.
func decodeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		var out any
		if err := json.Unmarshal(t, &out); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return out, nil
	case []byte:
		var out any
		if err := json.Unmarshal(t, &out); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return out, nil
	case string, bool, float64, int, int64:
		return jsonRoundTrip(v)
	default:
		return jsonRoundTrip(v)
	}
}

func jsonRoundTrip(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeValueLocked(path string, val any) error {
	if m, ok := val.(map[string]any); ok && len(m) > 0 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sub, err := decodeValue(m[k])
			if err != nil {
				return err
			}
			if sub == nil {
				continue
			}
			if err := writeValueLocked(path+"/"+CleanPath(k), sub); err != nil {
				return err
			}
		}
		return nil
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return db.Set(leafKey(path), b, pebble.Sync)
}

func hasLeafLocked(path string) (bool, error) {
	_, closer, err := db.Get(leafKey(path))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if closer != nil {
		_ = closer.Close()
	}
	return true, nil
}

func deleteSubtreeLocked(path string) error {
	if err := db.Delete(leafKey(path), pebble.Sync); err != nil && err != pebble.ErrNotFound {
		return err
	}
	start := childPrefix(path)
	end := prefixEnd(start)
	if end == nil {
		return nil
	}
	return db.DeleteRange(start, end, pebble.Sync)
}

func getLocked(path string) (any, error) {
	if path != "" {
		v, closer, err := db.Get(leafKey(path))
		if err == nil {
			raw := append([]byte(nil), v...)
			if closer != nil {
				_ = closer.Close()
			}
			var out any
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, err
			}
			return out, nil
		}
		if err != pebble.ErrNotFound {
			return nil, err
		}
	}
	prefix := childPrefix(path)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	root := map[string]any{}
	found := false
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		rest := string(iter.Key()[len(prefix):])
		var leaf any
		if err := json.Unmarshal(iter.Value(), &leaf); err != nil {
			logger.Warn("store_corrupt_leaf", "key", string(iter.Key()), "error", err)
			continue
		}
		insertAt(root, strings.Split(rest, "/"), leaf)
		found = true
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return root, nil
}

func insertAt(node map[string]any, segs []string, leaf any) {
	if len(segs) == 1 {
		node[segs[0]] = leaf
		return
	}
	child, ok := node[segs[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		node[segs[0]] = child
	}
	insertAt(child, segs[1:], leaf)
}
