package models

import "strings"

// Content categories for flattened items.
const (
	CategoryPost     = "post"
	CategoryBook     = "book"
	CategoryQP       = "qp"
	CategoryMaterial = "material"
)

// ContentItem is a flattened, display-ready record derived from a nested
// collection. Path is the write target for counter mutations.
type ContentItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Date     string `json:"date,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	PDFURL   string `json:"pdfUrl,omitempty"`
	Likes    int64  `json:"likes"`
	Shares   int64  `json:"shares"`
	Comments int64  `json:"comments"`
	Category string `json:"type"`
	Path     string `json:"path"`
}

// Images splits the comma-joined image reference list into clean URLs.
func (c ContentItem) Images() []string {
	if c.ImageURL == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(c.ImageURL, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Notice struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	BgColor    string `json:"bgColor"`
	EmojiColor string `json:"emojiColor"`
}

type AppLink struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Color string `json:"color"`
}

type Comment struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Date  string `json:"date"`
	Likes int64  `json:"likes"`
}

// WelcomeBox is shown on the home screen when Show == 1.
type WelcomeBox struct {
	Show     int    `json:"show"`
	ImageURL string `json:"imageUrl,omitempty"`
	Header   string `json:"header,omitempty"`
	Text1    string `json:"text1,omitempty"`
	Text2    string `json:"text2,omitempty"`
}

// Popup is a one-shot announcement; served when Flag == 1.
type Popup struct {
	Flag      int    `json:"flag"`
	Heading   string `json:"heading"`
	Paragraph string `json:"paragraph"`
	ImageURL  string `json:"imageUrl"`
	LinkText  string `json:"linkText"`
	LinkURL   string `json:"linkUrl"`
}

// ForceUpdate gates old clients; Status == 0 with a non-empty APKURL
// means the client must update before continuing.
type ForceUpdate struct {
	Status int    `json:"status"`
	APKURL string `json:"apkUrl"`
}
