package probes

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/netmon/internal/model"
)

func TestPublicIP_FromEcho(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "203.0.113.7")
	}))
	defer srv.Close()

	r := NewIdentityResolver(srv.URL, time.Second)
	if got := r.PublicIP(context.Background()); got != "203.0.113.7" {
		t.Fatalf("PublicIP=%q", got)
	}
}

func TestPublicIP_Unavailable(t *testing.T) {
	t.Parallel()

	cases := []http.HandlerFunc{
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "<html>not an ip</html>") },
	}
	for i, h := range cases {
		srv := httptest.NewServer(h)
		got := NewIdentityResolver(srv.URL, time.Second).PublicIP(context.Background())
		srv.Close()
		if got != model.PublicIPUnavailable {
			t.Fatalf("case %d: PublicIP=%q", i, got)
		}
	}
}

func TestPublicIP_STUNFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	r := NewIdentityResolver("", 200*time.Millisecond)
	r.SetSTUNServers([]string{"", "stun:127.0.0.1:1"})
	if got := r.PublicIP(context.Background()); got != model.PublicIPUnavailable {
		t.Fatalf("PublicIP=%q", got)
	}
}

type stubConn struct {
	net.Conn
	local net.Addr
}

func (c stubConn) LocalAddr() net.Addr { return c.local }
func (c stubConn) Close() error        { return nil }

func TestLocalIP(t *testing.T) {
	t.Parallel()

	r := NewIdentityResolver("", time.Second)
	r.SetDialer(func(network, address string) (net.Conn, error) {
		return stubConn{local: &net.UDPAddr{IP: net.ParseIP("192.168.1.23"), Port: 50000}}, nil
	})
	if got := r.LocalIP(); got != "192.168.1.23" {
		t.Fatalf("LocalIP=%q", got)
	}

	r.SetDialer(func(network, address string) (net.Conn, error) {
		return nil, errors.New("network is unreachable")
	})
	if got := r.LocalIP(); got != model.LoopbackIP {
		t.Fatalf("LocalIP=%q want loopback", got)
	}
}

func TestResolve_SkipsGeoIPWithoutDatabases(t *testing.T) {
	t.Parallel()

	if NewGeoIPLookup("", "") != nil {
		t.Fatalf("lookup created without databases")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "198.51.100.4")
	}))
	defer srv.Close()

	r := NewIdentityResolver(srv.URL, time.Second)
	r.SetDialer(func(network, address string) (net.Conn, error) {
		return stubConn{local: &net.UDPAddr{IP: net.ParseIP("10.0.0.5")}}, nil
	})
	r.SetGeoIP(NewGeoIPLookup("/nonexistent/country.mmdb", ""))

	id := r.Resolve(context.Background())
	if id.PublicIP != "198.51.100.4" || id.LocalIP != "10.0.0.5" {
		t.Fatalf("identity=%+v", id)
	}
	if id.Country != "" || id.ASN != 0 {
		t.Fatalf("unexpected enrichment: %+v", id)
	}
}
