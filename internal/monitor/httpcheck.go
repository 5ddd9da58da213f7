package monitor

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// HTTPTimeout bounds one whole probe including every redirect hop.
	HTTPTimeout = 5 * time.Second
	// MaxRedirects is the number of 3xx hops followed before the probe
	// gives up and reports the host down.
	MaxRedirects = 3
	// DefaultUserAgent identifies probes that did not configure their own.
	DefaultUserAgent = "reachwatch/1.0"
)

// HTTPStrategy probes a host with a HEAD request, following up to
// MaxRedirects redirect hops by hand. The status code reported back is
// always the first response's, even when later hops are followed.
type HTTPStrategy struct {
	client *http.Client
}

func NewHTTPStrategy(client *http.Client) *HTTPStrategy {
	if client == nil {
		client = NewHTTPClient(HTTPClientConfig{
			Timeout:         HTTPTimeout,
			UserAgent:       DefaultUserAgent,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		})
	}
	return &HTTPStrategy{client: client}
}

// Check implements Strategy. Malformed hosts, transport errors, bad
// statuses and exceeded redirect chains all come back as Reachable=false;
// nothing here is an error to the caller.
func (s *HTTPStrategy) Check(ctx context.Context, host string) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, HTTPTimeout)
	defer cancel()

	target := CheckURL(host)
	firstStatus := 0

	for hop := 0; ; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
		if err != nil {
			return Result{Reachable: false, Latency: time.Since(start), Err: "build request: " + err.Error()}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return Result{Reachable: false, StatusCode: firstStatus, Latency: time.Since(start), Err: classifyHTTPError(err)}
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if firstStatus == 0 {
			firstStatus = resp.StatusCode
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return Result{Reachable: true, StatusCode: firstStatus, Latency: time.Since(start)}
		}

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			return Result{Reachable: false, StatusCode: firstStatus, Latency: time.Since(start), Err: "bad status"}
		}

		if hop+1 > MaxRedirects {
			// Too many hops is an ordinary down sample, and the chain's
			// codes are not worth reporting.
			return Result{Reachable: false, Latency: time.Since(start), Err: "too many redirects"}
		}

		next, err := resolveRedirect(target, location)
		if err != nil {
			return Result{Reachable: false, StatusCode: firstStatus, Latency: time.Since(start), Err: "bad redirect location"}
		}
		target = next
	}
}

// CheckURL derives the probe URL for a host identifier: identifiers that
// already carry an http(s) scheme are used as-is, everything else gets
// https.
func CheckURL(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// resolveRedirect interprets a Location header relative to the URL that
// produced it.
func resolveRedirect(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// classifyHTTPError produces a stable, human-readable reason.
func classifyHTTPError(err error) string {
	if isContextDeadline(err) {
		return "timeout"
	}
	if isContextCanceled(err) {
		return "canceled"
	}
	return err.Error()
}

func isContextDeadline(err error) bool {
	return err == context.DeadlineExceeded || strings.Contains(err.Error(), "context deadline exceeded")
}

func isContextCanceled(err error) bool {
	return err == context.Canceled || strings.Contains(err.Error(), "context canceled")
}
