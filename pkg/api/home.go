package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"studyhub/pkg/content"
	"studyhub/pkg/logger"
	"studyhub/pkg/models"
	"studyhub/pkg/utils"
)

// RegisterHome registers the home-screen routes.
func RegisterHome(r *mux.Router) {
	r.HandleFunc("/home", getHome).Methods(http.MethodGet)
	r.HandleFunc("/notices", listNotices).Methods(http.MethodGet)
	r.HandleFunc("/links", listLinks).Methods(http.MethodGet)
	r.HandleFunc("/courses", listCourses).Methods(http.MethodGet)
	r.HandleFunc("/books/random", randomBooks).Methods(http.MethodGet)
}

type homeView struct {
	Notices     []models.Notice      `json:"notices"`
	AppLinks    []models.AppLink     `json:"appLinks"`
	Courses     []string             `json:"courses"`
	WelcomeBox  *models.WelcomeBox   `json:"welcomeBox,omitempty"`
	Popup       *models.Popup        `json:"popup,omitempty"`
	ForceUpdate *models.ForceUpdate  `json:"forceUpdate,omitempty"`
	RandomBooks []models.ContentItem `json:"randomBooks"`
}

// getHome returns everything the home screen renders in one response.
func getHome(w http.ResponseWriter, r *http.Request) {
	var view homeView
	var err error
	if view.Notices, err = content.Notices(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view.AppLinks, err = content.AppLinks(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view.Courses, err = content.Courses(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view.WelcomeBox, err = content.WelcomeBox(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view.Popup, err = content.Popup(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view.ForceUpdate, err = content.ForceUpdate(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view.RandomBooks, err = content.RandomBooks(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Debug("home_served", "notices", len(view.Notices), "links", len(view.AppLinks))
	_ = utils.JSONWrite(w, http.StatusOK, view)
}

func listNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := content.Notices()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"notices": notices})
}

func listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := content.AppLinks()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"appLinks": links})
}

func listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := content.Courses()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"courses": courses})
}

func randomBooks(w http.ResponseWriter, r *http.Request) {
	books, err := content.RandomBooks()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"books": books})
}
