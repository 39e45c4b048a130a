package netutil

import (
	"net"
	"strings"
	"testing"
)

func mustCIDR(t *testing.T, s string) net.Addr {
	t.Helper()
	ip, ipNet, err := net.ParseCIDR(s)
	if err != nil {
		t.Fatalf("bad cidr %s: %v", s, err)
	}
	ipNet.IP = ip
	return ipNet
}

func TestFirstLANIPv4SkipsLoopbackAndLinkLocal(t *testing.T) {
	addrs := []net.Addr{
		mustCIDR(t, "127.0.0.1/8"),
		mustCIDR(t, "169.254.10.2/16"),
		mustCIDR(t, "fe80::1/64"),
		mustCIDR(t, "192.168.1.23/24"),
	}
	if got := firstLANIPv4(addrs); got != "192.168.1.23" {
		t.Fatalf("expected LAN address, got %q", got)
	}
	if got := firstLANIPv4(addrs[:3]); got != "" {
		t.Fatalf("expected no address, got %q", got)
	}
}

func TestLANIPNeverEmpty(t *testing.T) {
	if net.ParseIP(LANIP()) == nil {
		t.Fatal("expected a parseable IP")
	}
}

func TestListenURL(t *testing.T) {
	if got := ListenURL("10.0.0.5:8000"); got != "http://10.0.0.5:8000" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := ListenURL(":8000"); !strings.HasPrefix(got, "http://") || !strings.HasSuffix(got, ":8000") {
		t.Fatalf("unexpected url %q", got)
	}
	if got := ListenURL("10.0.0.5:80"); got != "http://10.0.0.5" {
		t.Fatalf("unexpected url %q", got)
	}
}
