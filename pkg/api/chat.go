package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"studyhub/pkg/auth"
	"studyhub/pkg/chat"
	"studyhub/pkg/logger"
	"studyhub/pkg/responder"
	"studyhub/pkg/utils"
)

// RegisterChat registers the assistant routes.
func RegisterChat(r *mux.Router) {
	r.HandleFunc("/chat/sessions", openSession).Methods(http.MethodPost)
	r.HandleFunc("/chat/sessions/{session}/messages", getTranscript).Methods(http.MethodGet)
	r.HandleFunc("/chat/messages", postMessage).Methods(http.MethodPost)
	r.HandleFunc("/chat/suggestions", getSuggestions).Methods(http.MethodGet)
	r.HandleFunc("/reports", fileReport).Methods(http.MethodPost)
}

func device(r *http.Request) string {
	if d := auth.DeviceID(r); d != "" {
		return d
	}
	return chat.DefaultDevice
}

// openSession reserves a session name, suffixing on collision.
func openSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	session, err := chat.EnsureSession(device(r), body.Name)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Info("session_opened", "session", session)
	_ = utils.JSONWrite(w, http.StatusCreated, map[string]any{
		"session":  session,
		"greeting": chat.Greeting(deps.Greeting),
	})
}

// postMessage runs one exchange. Operator control phrases are
// intercepted before anything is stored; the client switches surface
// based on the returned control name.
func postMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Session string `json:"session"`
		Text    string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if ctl := chat.DetectControl(body.Text); ctl != chat.ControlNone {
		logger.Info("control_phrase", "control", controlName(ctl))
		_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"control": controlName(ctl)})
		return
	}
	reply, err := chat.Exchange(device(r), body.Session, body.Text)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, reply)
}

func controlName(c chat.Control) string {
	switch c {
	case chat.ControlAdmin:
		return "admin"
	case chat.ControlReports:
		return "reports"
	case chat.ControlLiveChat:
		return "live"
	case chat.ControlConsole:
		return "console"
	case chat.ControlConsoleExit:
		return "console_exit"
	}
	return "none"
}

func getTranscript(w http.ResponseWriter, r *http.Request) {
	session := mux.Vars(r)["session"]
	msgs, err := chat.Transcript(device(r), session, deps.Greeting)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"messages": msgs})
}

func getSuggestions(w http.ResponseWriter, r *http.Request) {
	var (
		chips []string
		err   error
	)
	if reply := r.URL.Query().Get("reply"); reply != "" {
		chips, err = responder.Suggestions(reply)
	} else {
		chips, err = responder.DefaultSuggestions()
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"suggestions": chips})
}

func fileReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := chat.FileReport(body.Name, body.Message); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, map[string]any{"status": "filed"})
}
