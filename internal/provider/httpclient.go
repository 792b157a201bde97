package provider

import (
	"io"
	"net"
	"net/http"
	"time"
)

// maxResponseBytes bounds how much of any single provider response body we
// will ever read, regardless of Content-Length, protecting the pump from a
// misbehaving or malicious upstream.
const maxResponseBytes = 2 << 20 // 2 MiB

// newHardenedClient builds an http.Client tuned for short-lived metadata
// fetches: short dial/handshake timeouts, a hard response timeout, and no
// connection reuse across distinct hosts to avoid keeping idle sockets to
// dozens of rarely-revisited media providers open indefinitely.
func newHardenedClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxConnsPerHost:       8,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// readLimited reads at most maxResponseBytes from r.
func readLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}
