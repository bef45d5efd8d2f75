// Package console implements the operator store console reachable from
// the chat box and the admin API. Commands never return an error: every
// failure is formatted into the command output so the surface stays a
// plain text exchange.
package console

import (
	"encoding/json"
	"fmt"
	"strings"

	"studyhub/pkg/logger"
	"studyhub/pkg/store"
)

const helpText = `Available commands:
- set /path {...}
- update /path {...}
- get /path
- list /path
- remove /path
- dump   (full database as JSON)
- help
- exit`

// Exec runs one console line and returns its output.
func Exec(line string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return "Unknown command:"
	}
	cmd, args := fields[0], fields[1:]
	logger.Info("console_exec", "cmd", cmd)

	switch cmd {
	case "set":
		return execSet(args)
	case "update":
		return execUpdate(args)
	case "get":
		return execGet(args)
	case "list":
		return execList(args)
	case "remove":
		return execRemove(args)
	case "dump":
		return execDump()
	case "help":
		return helpText
	case "exit":
		return "Exiting console..."
	}
	return fmt.Sprintf("Unknown command: %s", cmd)
}

func execSet(args []string) string {
	if len(args) < 2 {
		return "Error: set needs a path and a JSON value"
	}
	path := args[0]
	raw := strings.Join(args[1:], " ")
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if err := store.Set(path, v); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Set value at %s", path)
}

func execUpdate(args []string) string {
	if len(args) < 2 {
		return "Error: update needs a path and a JSON object"
	}
	path := args[0]
	raw := strings.Join(args[1:], " ")
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if err := store.Update(path, fields); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Updated %s", path)
}

func execGet(args []string) string {
	if len(args) < 1 {
		return "Error: get needs a path"
	}
	path := args[0]
	v, err := store.Get(path)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if v == nil {
		return fmt.Sprintf("No data at %s", path)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Data at %s: %s", path, b)
}

func execList(args []string) string {
	if len(args) < 1 {
		return "Error: list needs a path"
	}
	path := args[0]
	names, err := store.Children(path)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if len(names) == 0 {
		return fmt.Sprintf("No data at %s", path)
	}
	return fmt.Sprintf("Keys under %s: %s", path, strings.Join(names, ", "))
}

func execRemove(args []string) string {
	if len(args) < 1 {
		return "Error: remove needs a path"
	}
	path := args[0]
	if err := store.Remove(path); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Removed %s", path)
}

func execDump() string {
	v, err := store.Get("")
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if v == nil {
		return "Database is empty"
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Full database:\n%s", b)
}
