package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"studyhub/pkg/chat"
	"studyhub/pkg/console"
	"studyhub/pkg/logger"
	"studyhub/pkg/models"
	"studyhub/pkg/store"
	"studyhub/pkg/utils"
)

// RegisterAdmin registers the operator routes. The auth middleware
// already restricts this subtree to backend and admin keys.
func RegisterAdmin(r *mux.Router) {
	r.HandleFunc("/sessions", adminListSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions", adminDeleteAllSessions).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{session}", adminDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/live", adminLiveFeed).Methods(http.MethodGet)
	r.HandleFunc("/live", adminSend).Methods(http.MethodPost)
	r.HandleFunc("/reports", adminListReports).Methods(http.MethodGet)
	r.HandleFunc("/reports", adminClearReports).Methods(http.MethodDelete)
	r.HandleFunc("/console", adminConsole).Methods(http.MethodPost)
	r.HandleFunc("/bot", adminGetBot).Methods(http.MethodGet)
	r.HandleFunc("/bot", adminSetBot).Methods(http.MethodPut)
	r.HandleFunc("/stats", adminStats).Methods(http.MethodGet)
}

func adminListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := chat.Sessions(device(r))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func adminDeleteSession(w http.ResponseWriter, r *http.Request) {
	session := mux.Vars(r)["session"]
	if err := chat.DeleteSession(device(r), session); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("session_deleted", "session", session)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func adminDeleteAllSessions(w http.ResponseWriter, r *http.Request) {
	if err := chat.DeleteAll(device(r)); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("sessions_cleared", "device", device(r))
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func adminLiveFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := chat.LiveFeed(device(r))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"messages": feed})
}

func adminSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Session string `json:"session"`
		Text    string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Session == "" || body.Text == "" {
		utils.JSONError(w, http.StatusBadRequest, "session and text required")
		return
	}
	if err := chat.AdminSend(device(r), body.Session, body.Text); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, map[string]any{"status": "sent"})
}

func adminListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := chat.Reports()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"reports": reports})
}

func adminClearReports(w http.ResponseWriter, r *http.Request) {
	if err := chat.ClearReports(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"status": "cleared"})
}

// adminConsole executes one store console line and returns its output.
func adminConsole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	out := console.Exec(body.Command)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"output": out})
}

func adminGetBot(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"active": chat.BotActive()})
}

func adminSetBot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := chat.SetBotActive(body.Active); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("bot_toggled", "active", body.Active)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"active": body.Active})
}

// adminStats summarizes the store for the operator dashboard.
func adminStats(w http.ResponseWriter, r *http.Request) {
	sessions, err := chat.Sessions(device(r))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	reports, err := chat.Reports()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keys, err := store.ListKeys("")
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"sessions":  len(sessions),
		"reports":   len(reports),
		"storeKeys": len(keys),
		"posts":     len(deps.Agg.Feed(models.CategoryPost)),
		"books":     len(deps.Agg.Feed(models.CategoryBook)),
		"botActive": chat.BotActive(),
	})
}
