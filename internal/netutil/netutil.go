// Package netutil finds the address other devices on the local network can
// use to reach this host.
package netutil

import (
	"net"
	"strconv"
)

// Loopback is returned when no LAN address can be found.
const Loopback = "127.0.0.1"

// LANIP returns a non-loopback IPv4 address of this host. It first asks the
// routing table which source address an outbound UDP socket would use (no
// packet is sent), then falls back to scanning interface addresses.
func LANIP() string {
	if ip := routedIP(); ip != "" {
		return ip
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return Loopback
	}
	if ip := firstLANIPv4(addrs); ip != "" {
		return ip
	}
	return Loopback
}

// ListenURL is the http URL for listenAddr ("host:port" or ":port") as seen
// from the LAN.
func ListenURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + LANIP()
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = LANIP()
	}
	if p, err := strconv.Atoi(port); err == nil && p == 80 {
		return "http://" + host
	}
	return "http://" + net.JoinHostPort(host, port)
}

func routedIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.IsLoopback() || addr.IP.To4() == nil {
		return ""
	}
	return addr.IP.String()
}

func firstLANIPv4(addrs []net.Addr) string {
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		return ip.String()
	}
	return ""
}
