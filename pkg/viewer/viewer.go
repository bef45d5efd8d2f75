// Package viewer decides how the app should open a document URL: inside
// the embedded web view, or handed to the device browser when the origin
// cannot be embedded. The server probes the URL once so every client
// gets the same decision without burning a render attempt.
package viewer

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"studyhub/pkg/logger"
)

// Modes returned to the client.
const (
	ModeEmbed    = "embed"
	ModeExternal = "external"
)

// DefaultTimeout bounds one probe round trip.
const DefaultTimeout = 5 * time.Second

// Decision is the probe outcome for one URL.
type Decision struct {
	URL    string `json:"url"`
	Mode   string `json:"mode"`
	Status int    `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// Client probes document URLs.
type Client struct {
	http    doer
	timeout time.Duration
}

// New returns a probe client. A zero timeout uses DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &fasthttp.Client{
			Name:                "studyhub-viewer",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		timeout: timeout,
	}
}

// Probe fetches url and classifies it. Certificate trouble and the
// status codes embedded viewers choke on (403, 500) route to the device
// browser; everything else embeds. Unreachable hosts also route
// external so the client at least tries the browser.
func (c *Client) Probe(url string) Decision {
	url = strings.TrimSpace(url)
	if url == "" {
		return Decision{Mode: ModeExternal, Reason: "empty url"}
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
		reason := classifyError(err)
		logger.Warn("viewer_probe_failed", "url", url, "reason", reason, "error", err)
		return Decision{URL: url, Mode: ModeExternal, Reason: reason}
	}
	status := resp.StatusCode()
	if status == fasthttp.StatusForbidden || status == fasthttp.StatusInternalServerError {
		return Decision{URL: url, Mode: ModeExternal, Status: status, Reason: fmt.Sprintf("status %d", status)}
	}
	return Decision{URL: url, Mode: ModeEmbed, Status: status}
}

func classifyError(err error) string {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"ssl", "certificate", "x509", "tls"} {
		if strings.Contains(msg, marker) {
			return "certificate"
		}
	}
	return "unreachable"
}
