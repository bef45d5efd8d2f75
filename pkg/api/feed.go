package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"studyhub/pkg/content"
	"studyhub/pkg/logger"
	"studyhub/pkg/models"
	"studyhub/pkg/utils"
)

// RegisterFeed registers the content feed and engagement routes.
func RegisterFeed(r *mux.Router) {
	r.HandleFunc("/feed", getFeed).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", getPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}/comments", listComments).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}/comments", addComment).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}/comments/{cid}/like", likeComment).Methods(http.MethodPost)
	r.HandleFunc("/engage/like", likeItem).Methods(http.MethodPost)
	r.HandleFunc("/engage/share", shareItem).Methods(http.MethodPost)
}

type feedItem struct {
	models.ContentItem
	TimeAgo string `json:"timeAgo,omitempty"`
}

// getFeed serves one category of the flattened feed, optionally filtered
// by ?q=.
func getFeed(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	q := r.URL.Query().Get("q")
	var items []models.ContentItem
	if q != "" {
		items = deps.Agg.Search(category, q)
	} else {
		items = deps.Agg.Feed(category)
	}
	now := time.Now()
	out := make([]feedItem, 0, len(items))
	for _, it := range items {
		out = append(out, feedItem{ContentItem: it, TimeAgo: content.TimeAgo(it.Date, now)})
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"items": out})
}

// getPost returns one post with its image list and comments.
func getPost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	post, ok := deps.Agg.Post(id)
	if !ok {
		utils.JSONError(w, http.StatusNotFound, "post not found")
		return
	}
	comments, err := content.Comments(id)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"post":     post,
		"images":   post.Images(),
		"comments": comments,
		"timeAgo":  content.TimeAgo(post.Date, time.Now()),
	})
}

func listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := content.Comments(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"comments": comments})
}

func addComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	id := mux.Vars(r)["id"]
	cid, err := content.AddComment(id, body.Text)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Info("comment_added", "post", id, "comment", cid)
	_ = utils.JSONWrite(w, http.StatusCreated, map[string]any{"id": cid})
}

func likeComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	n, err := content.LikeComment(vars["id"], vars["cid"])
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"likes": n})
}

// engagePaths are the store roots engagement writes may touch.
var engagePaths = []string{"posts/", "courses/", "previousYearQP/", "extraMaterial/"}

func engageTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return "", false
	}
	path := strings.TrimPrefix(strings.TrimSpace(body.Path), "/")
	for _, prefix := range engagePaths {
		if strings.HasPrefix(path, prefix) {
			return path, true
		}
	}
	utils.JSONError(w, http.StatusBadRequest, "path outside content roots")
	return "", false
}

func likeItem(w http.ResponseWriter, r *http.Request) {
	path, ok := engageTarget(w, r)
	if !ok {
		return
	}
	n, err := content.Like(path)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"likes": n})
}

func shareItem(w http.ResponseWriter, r *http.Request) {
	path, ok := engageTarget(w, r)
	if !ok {
		return
	}
	n, err := content.Share(path)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"shares": n})
}
