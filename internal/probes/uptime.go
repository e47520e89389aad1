package probes

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/util"
)

// UptimeChecker issues one GET per check and reports Online only for 200.
type UptimeChecker struct {
	client  *http.Client
	timeout time.Duration
}

// NewUptimeChecker creates an uptime checker with the given request timeout.
func NewUptimeChecker(timeout time.Duration) *UptimeChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UptimeChecker{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// NormalizeURL prefixes http:// unless rawURL already names http or https.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return "http://" + rawURL
}

// Check fetches rawURL. Redirects are followed, so a 301 to a 200 counts as
// Online. Any transport error, timeout or other final status is Offline.
// The result echoes rawURL as given.
func (c *UptimeChecker) Check(ctx context.Context, rawURL string) model.UptimeResult {
	result := model.UptimeResult{URL: rawURL, Status: model.StatusOffline}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeURL(rawURL), nil)
	if err != nil {
		util.Debug("uptime %s: %v", rawURL, err)
		return result
	}
	req.Header.Set("User-Agent", "netmon/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		util.Debug("uptime %s: %v", rawURL, err)
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusOK {
		result.Status = model.StatusOnline
	}
	return result
}
