// Package probes provides network probing functionality.
package probes

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pion/stun/v3"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/util"
)

// IdentityResolver discovers the public and local addresses of this host.
type IdentityResolver struct {
	echoURL     string
	client      *http.Client
	timeout     time.Duration
	stunServers []string
	geo         *GeoIPLookup
	dial        func(network, address string) (net.Conn, error)
}

// NewIdentityResolver creates a resolver that asks echoURL for the public address.
func NewIdentityResolver(echoURL string, timeout time.Duration) *IdentityResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IdentityResolver{
		echoURL: echoURL,
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		dial:    net.Dial,
	}
}

// SetSTUNServers sets the servers tried when the echo service fails.
func (r *IdentityResolver) SetSTUNServers(servers []string) {
	r.stunServers = servers
}

// SetGeoIP enables country and ASN enrichment in Resolve.
func (r *IdentityResolver) SetGeoIP(geo *GeoIPLookup) {
	r.geo = geo
}

// SetDialer replaces the dialer used to discover the local address.
func (r *IdentityResolver) SetDialer(dial func(network, address string) (net.Conn, error)) {
	r.dial = dial
}

// PublicIP returns the address the internet sees, or "N/A" when neither the
// echo service nor any STUN server answers.
func (r *IdentityResolver) PublicIP(ctx context.Context) string {
	if r.echoURL != "" {
		ip, err := r.fetchIP(ctx, r.echoURL)
		if err == nil {
			return ip
		}
		util.Debug("public IP via %s failed: %v", r.echoURL, err)
	}

	for _, server := range r.stunServers {
		ip, err := r.stunIP(ctx, server)
		if err == nil {
			return ip
		}
		util.Debug("public IP via STUN %s failed: %v", server, err)
	}

	return model.PublicIPUnavailable
}

// LocalIP returns the source address of the default route. Dialing UDP sends
// no packets; it only makes the kernel pick an interface.
func (r *IdentityResolver) LocalIP() string {
	conn, err := r.dial("udp", "8.8.8.8:80")
	if err != nil {
		util.Debug("local IP lookup failed: %v", err)
		return model.LoopbackIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return model.LoopbackIP
	}
	return addr.IP.String()
}

// Resolve gathers the full identity, enriched with GeoIP data when configured.
func (r *IdentityResolver) Resolve(ctx context.Context) model.Identity {
	id := model.Identity{
		PublicIP: r.PublicIP(ctx),
		LocalIP:  r.LocalIP(),
	}
	if r.geo != nil && id.PublicIP != model.PublicIPUnavailable {
		r.geo.Enrich(&id)
	}
	return id
}

func (r *IdentityResolver) fetchIP(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "netmon/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("invalid IP: %q", ip)
	}
	return ip, nil
}

// stunIP sends a binding request and returns the XOR-mapped address.
func (r *IdentityResolver) stunIP(ctx context.Context, server string) (string, error) {
	uriStr := strings.TrimSpace(server)
	if uriStr == "" {
		return "", fmt.Errorf("empty STUN server")
	}
	if !strings.HasPrefix(uriStr, "stun:") {
		uriStr = "stun:" + uriStr
	}

	uri, err := stun.ParseURI(uriStr)
	if err != nil {
		return "", err
	}

	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", err
	}
	defer client.Close()

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	result := make(chan string, 1)
	fail := make(chan error, 1)

	go func() {
		err := client.Do(msg, func(res stun.Event) {
			if res.Error != nil {
				fail <- res.Error
				return
			}
			var addr stun.XORMappedAddress
			if err := addr.GetFrom(res.Message); err != nil {
				fail <- err
				return
			}
			result <- addr.IP.String()
		})
		if err != nil {
			fail <- err
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	select {
	case ip := <-result:
		return ip, nil
	case err := <-fail:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
