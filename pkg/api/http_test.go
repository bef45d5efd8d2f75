package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studyhub/pkg/chat"
	"studyhub/pkg/content"
	"studyhub/pkg/store"
	"studyhub/pkg/viewer"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	agg, err := content.NewAggregator()
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	srv := httptest.NewServer(Handler(Deps{
		Agg:      agg,
		Viewer:   viewer.New(time.Second),
		Greeting: "Hi! Ask me anything.",
	}))
	t.Cleanup(func() {
		srv.Close()
		agg.Close()
		_ = store.Close()
	})
	return srv
}

func seed(t *testing.T, path, raw string) {
	t.Helper()
	if err := store.Set(path, json.RawMessage(raw)); err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return res
}

func postJSON(t *testing.T, url string, body any, out any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return res
}

func TestFeedEndpoint(t *testing.T) {
	srv := setupServer(t)
	seed(t, "posts/p1", `{"title": "first", "content": "a", "likes": 1}`)
	seed(t, "posts/p2", `{"title": "second", "content": "b"}`)
	time.Sleep(100 * time.Millisecond) // let the watch deliver

	var out struct {
		Items []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Likes int64  `json:"likes"`
		} `json:"items"`
	}
	res := getJSON(t, srv.URL+"/v1/feed", &out)
	if res.StatusCode != 200 {
		t.Fatalf("expected 200 got %v", res.Status)
	}
	if len(out.Items) != 2 || out.Items[0].ID != "p2" {
		t.Fatalf("unexpected feed: %+v", out.Items)
	}

	var filtered struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	getJSON(t, srv.URL+"/v1/feed?q=first", &filtered)
	if len(filtered.Items) != 1 || filtered.Items[0].ID != "p1" {
		t.Fatalf("unexpected filtered feed: %+v", filtered.Items)
	}
}

func TestPostDetailAndComments(t *testing.T) {
	srv := setupServer(t)
	seed(t, "posts/p1", `{"title": "gallery", "imageUrl": "http://a.png, http://b.png"}`)
	time.Sleep(100 * time.Millisecond)

	var created struct {
		ID string `json:"id"`
	}
	res := postJSON(t, srv.URL+"/v1/posts/p1/comments", map[string]string{"text": "nice"}, &created)
	if res.StatusCode != 201 || created.ID == "" {
		t.Fatalf("comment create failed: %v %+v", res.Status, created)
	}

	var likeOut struct {
		Likes int64 `json:"likes"`
	}
	res = postJSON(t, srv.URL+"/v1/posts/p1/comments/"+created.ID+"/like", nil, &likeOut)
	if res.StatusCode != 200 || likeOut.Likes != 1 {
		t.Fatalf("comment like failed: %v %+v", res.Status, likeOut)
	}

	var detail struct {
		Images   []string `json:"images"`
		Comments []struct {
			Text  string `json:"text"`
			Likes int64  `json:"likes"`
		} `json:"comments"`
	}
	getJSON(t, srv.URL+"/v1/posts/p1", &detail)
	if len(detail.Images) != 2 {
		t.Fatalf("unexpected images: %v", detail.Images)
	}
	if len(detail.Comments) != 1 || detail.Comments[0].Likes != 1 {
		t.Fatalf("unexpected comments: %+v", detail.Comments)
	}

	res = getJSON(t, srv.URL+"/v1/posts/missing", nil)
	if res.StatusCode != 404 {
		t.Fatalf("expected 404 got %v", res.Status)
	}
}

func TestEngageEndpoints(t *testing.T) {
	srv := setupServer(t)
	seed(t, "posts/p1", `{"title": "t", "likes": 4}`)

	var out struct {
		Likes int64 `json:"likes"`
	}
	res := postJSON(t, srv.URL+"/v1/engage/like", map[string]string{"path": "posts/p1"}, &out)
	if res.StatusCode != 200 || out.Likes != 5 {
		t.Fatalf("like failed: %v %+v", res.Status, out)
	}

	res = postJSON(t, srv.URL+"/v1/engage/like", map[string]string{"path": "chatbot/adminPassword"}, nil)
	if res.StatusCode != 400 {
		t.Fatalf("expected 400 for path outside content roots, got %v", res.Status)
	}

	var shareOut struct {
		Shares int64 `json:"shares"`
	}
	res = postJSON(t, srv.URL+"/v1/engage/share", map[string]string{"path": "posts/p1"}, &shareOut)
	if res.StatusCode != 200 || shareOut.Shares != 1 {
		t.Fatalf("share failed: %v %+v", res.Status, shareOut)
	}
}

func TestChatFlow(t *testing.T) {
	srv := setupServer(t)
	seed(t, "chatbot/responses", `{"hello": ["hi there"]}`)
	seed(t, "chatbot/initialMessage", `"Welcome to the help desk"`)

	var opened struct {
		Session  string `json:"session"`
		Greeting string `json:"greeting"`
	}
	res := postJSON(t, srv.URL+"/v1/chat/sessions", map[string]string{"name": "alice"}, &opened)
	if res.StatusCode != 201 || opened.Session != "alice" {
		t.Fatalf("open session failed: %v %+v", res.Status, opened)
	}
	if opened.Greeting != "Welcome to the help desk" {
		t.Fatalf("unexpected greeting: %q", opened.Greeting)
	}

	// same name again collides into a suffix
	postJSON(t, srv.URL+"/v1/chat/sessions", map[string]string{"name": "alice"}, &opened)
	// no messages yet, so "alice" is still free; store a message first
	var reply struct {
		Text      string `json:"text"`
		BotActive bool   `json:"botActive"`
	}
	res = postJSON(t, srv.URL+"/v1/chat/messages", map[string]string{"session": "alice", "text": "hello"}, &reply)
	if res.StatusCode != 200 || reply.Text != "hi there" || !reply.BotActive {
		t.Fatalf("exchange failed: %v %+v", res.Status, reply)
	}

	var opened2 struct {
		Session string `json:"session"`
	}
	postJSON(t, srv.URL+"/v1/chat/sessions", map[string]string{"name": "alice"}, &opened2)
	if opened2.Session != "alice_1" {
		t.Fatalf("expected alice_1 got %q", opened2.Session)
	}

	var transcript struct {
		Messages []struct {
			Text   string `json:"text"`
			Sender string `json:"sender"`
		} `json:"messages"`
	}
	getJSON(t, srv.URL+"/v1/chat/sessions/alice/messages", &transcript)
	if len(transcript.Messages) != 3 || transcript.Messages[0].Text != "Welcome to the help desk" {
		t.Fatalf("unexpected transcript: %+v", transcript.Messages)
	}
}

func TestChatControlPhrase(t *testing.T) {
	srv := setupServer(t)
	seed(t, "chatbot/adminPassword", `"s3cret"`)

	var out struct {
		Control string `json:"control"`
	}
	res := postJSON(t, srv.URL+"/v1/chat/messages", map[string]string{"session": "s", "text": "s3cret ani #t"}, &out)
	if res.StatusCode != 200 || out.Control != "console" {
		t.Fatalf("expected console control, got %v %+v", res.Status, out)
	}
	// control phrases leave no trace in the session
	sessions, err := chat.Sessions(chat.DefaultDevice)
	if err != nil || len(sessions) != 0 {
		t.Fatalf("control phrase was stored: %+v err %v", sessions, err)
	}
}

func TestAdminConsoleAndBot(t *testing.T) {
	srv := setupServer(t)

	var out struct {
		Output string `json:"output"`
	}
	postJSON(t, srv.URL+"/v1/admin/console", map[string]string{"command": `set notices/n1 {"message": "hi"}`}, &out)
	if out.Output != "Set value at notices/n1" {
		t.Fatalf("unexpected console output: %q", out.Output)
	}

	var bot struct {
		Active bool `json:"active"`
	}
	getJSON(t, srv.URL+"/v1/admin/bot", &bot)
	if !bot.Active {
		t.Fatalf("expected bot active by default")
	}
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/admin/bot", bytes.NewReader([]byte(`{"active": false}`)))
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil || res.StatusCode != 200 {
		t.Fatalf("bot toggle failed: %v %v", err, res.Status)
	}
	getJSON(t, srv.URL+"/v1/admin/bot", &bot)
	if bot.Active {
		t.Fatalf("expected bot inactive after toggle")
	}
}

func TestViewerEndpoint(t *testing.T) {
	srv := setupServer(t)
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/blocked.pdf" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer origin.Close()

	var out struct {
		Mode   string `json:"mode"`
		Status int    `json:"status"`
	}
	getJSON(t, srv.URL+"/v1/viewer?url="+origin.URL+"/doc.pdf", &out)
	if out.Mode != "embed" || out.Status != 200 {
		t.Fatalf("expected embed, got %+v", out)
	}
	getJSON(t, srv.URL+"/v1/viewer?url="+origin.URL+"/blocked.pdf", &out)
	if out.Mode != "external" || out.Status != 403 {
		t.Fatalf("expected external, got %+v", out)
	}
	res := getJSON(t, srv.URL+"/v1/viewer", nil)
	if res.StatusCode != 400 {
		t.Fatalf("expected 400 without url, got %v", res.Status)
	}
}

func TestHomeEndpoint(t *testing.T) {
	srv := setupServer(t)
	seed(t, "notices/n1", `{"message": "exam moved"}`)
	seed(t, "appLinks/a1", `{"name": "Portal", "url": "http://portal"}`)
	seed(t, "welcomeBox", `{"show": 1, "text": "hello"}`)
	seed(t, "courses/cs/books/sem1/b1", `{"name": "Algo"}`)

	var out struct {
		Notices []struct {
			Message string `json:"message"`
			BgColor string `json:"bgColor"`
		} `json:"notices"`
		AppLinks   []struct{ Name string } `json:"appLinks"`
		Courses    []string                `json:"courses"`
		WelcomeBox *struct {
			Text string `json:"text"`
		} `json:"welcomeBox"`
		RandomBooks []struct{ Title string } `json:"randomBooks"`
	}
	res := getJSON(t, srv.URL+"/v1/home", &out)
	if res.StatusCode != 200 {
		t.Fatalf("expected 200 got %v", res.Status)
	}
	if len(out.Notices) != 1 || out.Notices[0].BgColor != content.DefaultNoticeBg {
		t.Fatalf("unexpected notices: %+v", out.Notices)
	}
	if out.WelcomeBox == nil || out.WelcomeBox.Text != "hello" {
		t.Fatalf("unexpected welcome box: %+v", out.WelcomeBox)
	}
	if len(out.Courses) != 1 || len(out.RandomBooks) != 1 {
		t.Fatalf("unexpected courses/books: %+v %+v", out.Courses, out.RandomBooks)
	}
}

func TestReportsFlow(t *testing.T) {
	srv := setupServer(t)
	res := postJSON(t, srv.URL+"/v1/reports", map[string]string{"name": "alice", "message": "broken link"}, nil)
	if res.StatusCode != 201 {
		t.Fatalf("file report failed: %v", res.Status)
	}
	var out struct {
		Reports []struct {
			Name string `json:"name"`
		} `json:"reports"`
	}
	getJSON(t, srv.URL+"/v1/admin/reports", &out)
	if len(out.Reports) != 1 || out.Reports[0].Name != "alice" {
		t.Fatalf("unexpected reports: %+v", out.Reports)
	}
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/admin/reports", nil)
	if res, err := http.DefaultClient.Do(req); err != nil || res.StatusCode != 200 {
		t.Fatalf("clear reports failed: %v", err)
	}
	getJSON(t, srv.URL+"/v1/admin/reports", &out)
	if len(out.Reports) != 0 {
		t.Fatalf("reports not cleared: %+v", out.Reports)
	}
}
