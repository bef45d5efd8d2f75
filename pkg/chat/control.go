package chat

import (
	"strings"

	"studyhub/pkg/store"
)

// Control identifies an in-band operator phrase typed into the chat box.
// The phrases are never stored as messages; they switch the client into
// an operator surface instead.
type Control int

const (
	ControlNone Control = iota
	ControlAdmin
	ControlReports
	ControlLiveChat
	ControlConsole
	ControlConsoleExit
)

// PasswordPath is the store path holding the operator password.
const PasswordPath = basePath + "/adminPassword"

// DetectControl classifies text against the configured operator
// password. With no password set nothing is a control phrase, so every
// input flows to the bot.
func DetectControl(text string) Control {
	pw := store.GetString(PasswordPath)
	if pw == "" {
		return ControlNone
	}
	switch strings.TrimSpace(text) {
	case pw:
		return ControlAdmin
	case pw + " ani #r":
		return ControlReports
	case pw + " ani #l":
		return ControlLiveChat
	case pw + " ani #t":
		return ControlConsole
	case pw + " ani #exit":
		return ControlConsoleExit
	}
	return ControlNone
}

// SetBotActive flips the bot on or off.
func SetBotActive(active bool) error {
	return store.Set(basePath+"/botActive", active)
}

// BotActive reports whether the bot currently answers on its own.
func BotActive() bool {
	return store.GetBool(basePath+"/botActive", true)
}
