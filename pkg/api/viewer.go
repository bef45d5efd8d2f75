package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"studyhub/pkg/utils"
)

// RegisterViewer registers the document probe route.
func RegisterViewer(r *mux.Router) {
	r.HandleFunc("/viewer", probeDocument).Methods(http.MethodGet)
}

// probeDocument decides embed-or-external for ?url=.
func probeDocument(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		utils.JSONError(w, http.StatusBadRequest, "url required")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, deps.Viewer.Probe(url))
}
