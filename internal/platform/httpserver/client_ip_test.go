package httpserver

import (
	"log/slog"
	"net/http/httptest"
	"testing"
)

func TestClientIPIgnoresForwardedHeaderFromUntrustedPeer(t *testing.T) {
	trust := newProxyTrust(nil, slog.Default())
	req := httptest.NewRequest("POST", "/votes", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := trust.clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected socket peer, got %q", got)
	}
}

func TestClientIPWalksChainBehindTrustedProxy(t *testing.T) {
	trust := newProxyTrust([]string{"10.0.0.0/8", "192.168.1.5", "not-an-ip"}, slog.Default())
	cases := []struct {
		name      string
		remote    string
		forwarded []string
		want      string
	}{
		{name: "single hop", remote: "10.1.2.3:443", forwarded: []string{"198.51.100.9"}, want: "198.51.100.9"},
		{name: "spoofed left entry", remote: "10.1.2.3:443", forwarded: []string{"1.2.3.4, 198.51.100.9"}, want: "198.51.100.9"},
		{name: "chained proxies", remote: "192.168.1.5:80", forwarded: []string{"198.51.100.9, 10.9.9.9"}, want: "198.51.100.9"},
		{name: "repeated headers", remote: "10.1.2.3:443", forwarded: []string{"1.2.3.4", "198.51.100.9"}, want: "198.51.100.9"},
		{name: "garbage hop", remote: "10.1.2.3:443", forwarded: []string{"unknown"}, want: "10.1.2.3"},
		{name: "no header", remote: "10.1.2.3:443", want: "10.1.2.3"},
		{name: "untrusted peer", remote: "203.0.113.7:1", forwarded: []string{"198.51.100.9"}, want: "203.0.113.7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/votes", nil)
			req.RemoteAddr = tc.remote
			for _, value := range tc.forwarded {
				req.Header.Add("X-Forwarded-For", value)
			}
			if got := trust.clientIP(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
