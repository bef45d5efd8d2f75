// Package responder implements the rule table the chat assistant answers
// from. Rules live in the store under chatbot/responses as a map of
// trigger phrase to reply candidates; replies carry optional follow-up
// suggestion chips under suggestionReply/<safe reply key>.
package responder

import (
	"sort"
	"strings"

	"studyhub/pkg/store"
)

// Fallback is the default reply used when no rule matches.
const Fallback = "Sorry, I don't understand that."

var fallback = Fallback

// SetFallback overrides the no-match reply. An empty string restores
// the default.
func SetFallback(s string) {
	if strings.TrimSpace(s) == "" {
		fallback = Fallback
		return
	}
	fallback = s
}

// TablePath is the store path holding the rule table.
const TablePath = "chatbot/responses"

// Rule is one trigger with its ordered reply candidates.
type Rule struct {
	Trigger string
	Replies []string
}

// LoadTable reads and normalizes the rule table. Candidate values may be
// a plain string, an array of strings, or an object whose values are
// strings; all collapse to an ordered string slice. Triggers come back in
// stable store order.
func LoadTable() ([]Rule, error) {
	v, err := store.Get(TablePath)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, nil
	}
	triggers := make([]string, 0, len(m))
	for k := range m {
		triggers = append(triggers, k)
	}
	sort.Strings(triggers)
	rules := make([]Rule, 0, len(triggers))
	for _, t := range triggers {
		rules = append(rules, Rule{Trigger: t, Replies: normalize(m[t])})
	}
	return rules, nil
}

// normalize collapses one table value into reply candidates.
func normalize(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := t[k].(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Resolve matches input against the rules in three passes of decreasing
// strictness: exact trigger, trigger containing the input, input
// containing the trigger. The first candidate of the first matching rule
// wins; no match yields the fallback. Matching is case-insensitive on a
// trimmed input.
func Resolve(input string, rules []Rule) string {
	in := strings.ToLower(strings.TrimSpace(input))
	passes := []func(trigger string) bool{
		func(t string) bool { return t == in },
		func(t string) bool { return strings.Contains(t, in) },
		func(t string) bool { return strings.Contains(in, t) },
	}
	for _, match := range passes {
		for _, r := range rules {
			if !match(strings.ToLower(r.Trigger)) {
				continue
			}
			if len(r.Replies) == 0 {
				return fallback
			}
			return r.Replies[0]
		}
	}
	return fallback
}

// Reply loads the table and resolves input in one step.
func Reply(input string) (string, error) {
	rules, err := LoadTable()
	if err != nil {
		return "", err
	}
	return Resolve(input, rules), nil
}

// SafeKey converts a reply into a store-safe child key by replacing the
// characters a path cannot carry.
func SafeKey(reply string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '#', '$', '/', '[', ']':
			return '_'
		}
		return r
	}, reply)
}

// Suggestions returns the follow-up chips configured for a given reply,
// dropping blank entries. A reply without configured chips yields nil.
func Suggestions(reply string) ([]string, error) {
	v, err := store.Get("suggestionReply/" + SafeKey(reply))
	if err != nil {
		return nil, err
	}
	return stringValues(v), nil
}

// DefaultSuggestions returns the chips shown before any exchange, from
// chatbot/suggestions.
func DefaultSuggestions() ([]string, error) {
	v, err := store.Get("chatbot/suggestions")
	if err != nil {
		return nil, err
	}
	return stringValues(v), nil
}

func stringValues(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := t[k].(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
