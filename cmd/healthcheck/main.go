package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

// healthcheck probes a running server's /healthz endpoint. Intended for
// container HEALTHCHECK directives where a full curl image is overkill.
func main() {
	url := flag.String("url", "http://127.0.0.1:8080/healthz", "health endpoint to probe")
	timeout := flag.Duration("timeout", 3*time.Second, "probe timeout")
	flag.Parse()

	c := &fasthttp.Client{Name: "studyhub-healthcheck"}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(*url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if err := c.DoTimeout(req, resp, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "probe %s: %v\n", *url, err)
		os.Exit(1)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		fmt.Fprintf(os.Stderr, "probe %s: status %d\n", *url, resp.StatusCode())
		os.Exit(1)
	}
	fmt.Printf("ok: %s\n", resp.Body())
}
