// Package chat manages assistant sessions: one store subtree per device
// holding named sessions, each a push-ordered list of messages. The bot
// answers from the responder rule table unless it has been switched off
// at chatbot/botActive.
package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"studyhub/pkg/logger"
	"studyhub/pkg/models"
	"studyhub/pkg/responder"
	"studyhub/pkg/store"
	"studyhub/pkg/utils"
)

// DefaultDevice is the session scope used when a client sends none.
const DefaultDevice = "device_1"

const basePath = "chatbot"

// Device scopes live under their own subtree so a client-supplied scope
// name can never land on the bot settings keys next to it.
const devicesPath = basePath + "/devices"

func devicePath(device string) string {
	if device == "" {
		device = DefaultDevice
	}
	return devicesPath + "/" + store.CleanPath(device)
}

func sessionPath(device, session string) string {
	return devicePath(device) + "/" + store.CleanPath(session)
}

// EnsureSession returns a session name unique within the device scope.
// The first visitor naming their session "hello" gets "hello"; later
// collisions get "hello_1", "hello_2" and so on.
func EnsureSession(device, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty session name")
	}
	existing, err := store.Children(devicePath(device))
	if err != nil {
		return "", err
	}
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	unique := name
	for count := 1; ; count++ {
		if _, ok := taken[unique]; !ok {
			break
		}
		unique = fmt.Sprintf("%s_%d", name, count)
	}
	return unique, nil
}

// Reply is the assistant's side of one exchange.
type Reply struct {
	Session     string   `json:"session"`
	Text        string   `json:"text,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	BotActive   bool     `json:"botActive"`
}

// Exchange appends the user's message to the session and, when the bot
// is active, resolves and appends the bot reply plus its suggestion
// chips. An inactive bot stores the user message and returns no text;
// an operator is expected to answer over the live channel.
func Exchange(device, session, text string) (*Reply, error) {
	session = store.CleanPath(session)
	if session == "" {
		return nil, fmt.Errorf("empty session")
	}
	now := time.Now().UnixMilli()
	userMsg := models.Message{
		ID:     utils.GenID(),
		Text:   text,
		Sender: models.SenderUser,
		TS:     now,
	}
	if _, err := store.Push(sessionPath(device, session), userMsg); err != nil {
		return nil, err
	}
	active := store.GetBool(basePath+"/botActive", true)
	out := &Reply{Session: session, BotActive: active}
	if !active {
		logger.Info("chat_bot_inactive", "session", session)
		return out, nil
	}
	replyText, err := responder.Reply(text)
	if err != nil {
		return nil, err
	}
	botMsg := models.Message{
		ID:     utils.GenID(),
		Text:   replyText,
		Sender: models.SenderBot,
		TS:     now + 1,
	}
	if _, err := store.Push(sessionPath(device, session), botMsg); err != nil {
		return nil, err
	}
	out.Text = replyText
	if sugg, err := responder.Suggestions(replyText); err == nil {
		out.Suggestions = sugg
	} else {
		logger.Warn("chat_suggestions_failed", "reply", replyText, "error", err)
	}
	return out, nil
}

// AdminSend appends an operator message to a visitor session.
func AdminSend(device, session, text string) error {
	msg := models.Message{
		ID:     utils.GenID(),
		Text:   text,
		Sender: models.SenderAdmin,
		TS:     time.Now().UnixMilli(),
	}
	_, err := store.Push(sessionPath(device, session), msg)
	return err
}

// Greeting returns the configured opening message, or def when the store
// carries none.
func Greeting(def string) string {
	if msg := store.GetString(basePath + "/initialMessage"); msg != "" {
		return msg
	}
	return def
}

// Transcript returns a session's messages in store order, with the
// greeting pinned in front when one is configured.
func Transcript(device, session, greeting string) ([]models.Message, error) {
	msgs, err := sessionMessages(device, session)
	if err != nil {
		return nil, err
	}
	if g := Greeting(greeting); g != "" {
		pinned := models.Message{ID: "greeting", Text: g, Sender: models.SenderBot}
		msgs = append([]models.Message{pinned}, msgs...)
	}
	return msgs, nil
}

// Sessions lists a device's sessions newest-first by the timestamp of
// each session's first message.
func Sessions(device string) ([]models.SessionInfo, error) {
	names, err := store.Children(devicePath(device))
	if err != nil {
		return nil, err
	}
	out := make([]models.SessionInfo, 0, len(names))
	for _, name := range names {
		msgs, err := sessionMessages(device, name)
		if err != nil {
			return nil, err
		}
		info := models.SessionInfo{Name: name}
		if len(msgs) > 0 {
			info.FirstTS = msgs[0].TS
		}
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FirstTS > out[j].FirstTS })
	return out, nil
}

// LiveFeed merges every session of a device into one stream, tagged with
// the session name and sorted newest-first.
func LiveFeed(device string) ([]models.Message, error) {
	names, err := store.Children(devicePath(device))
	if err != nil {
		return nil, err
	}
	var all []models.Message
	for _, name := range names {
		msgs, err := sessionMessages(device, name)
		if err != nil {
			return nil, err
		}
		for i := range msgs {
			msgs[i].Session = name
		}
		all = append(all, msgs...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].TS > all[j].TS })
	return all, nil
}

// DeleteSession removes one session's subtree.
func DeleteSession(device, session string) error {
	return store.Remove(sessionPath(device, session))
}

// DeleteAll removes every session of a device.
func DeleteAll(device string) error {
	return store.Remove(devicePath(device))
}

func sessionMessages(device, session string) ([]models.Message, error) {
	keys, err := store.Children(sessionPath(device, session))
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(keys))
	for _, k := range keys {
		raw, err := store.GetRaw(sessionPath(device, session) + "/" + k)
		if err != nil {
			return nil, err
		}
		var m models.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			logger.Warn("chat_corrupt_message", "session", session, "key", k, "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
