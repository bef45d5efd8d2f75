package models

// Sender values for chat messages.
const (
	SenderUser  = "user"
	SenderBot   = "bot"
	SenderAdmin = "admin"
)

type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
	TS     int64  `json:"timestamp,omitempty"`
	// Session tags messages in cross-session views (live feed); empty
	// inside a session's own transcript.
	Session string `json:"session,omitempty"`
}

// SessionInfo describes a named conversation thread under a device scope.
type SessionInfo struct {
	Name    string `json:"name"`
	FirstTS int64  `json:"first_ts"`
}

// Report is a user-submitted report record under userReports.
type Report struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
