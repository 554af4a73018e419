// Package httpc holds the HTTP clients used to reach the robot bridge and
// the cloud APIs. Every client has an overall timeout; never use
// http.DefaultClient.
package httpc

import (
	"net"
	"net/http"
	"time"
)

const (
	DefaultTimeout  = 30 * time.Second
	dialTimeout     = 10 * time.Second
	idleConnTimeout = 90 * time.Second
)

// transport is pooled across every client handed out here, so the robot
// bridge and the cloud APIs reuse connections.
var transport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
	MaxIdleConns:          64,
	MaxIdleConnsPerHost:   8,
	IdleConnTimeout:       idleConnTimeout,
	TLSHandshakeTimeout:   dialTimeout,
	ExpectContinueTimeout: time.Second,
}

// Client is the client for cloud calls: intent detection and LLMs.
var Client = NewClient(DefaultTimeout)

// NewClient returns a client on the shared transport that gives up after
// timeout. The robot bridge uses a short one so a hung robot surfaces
// quickly.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: transport, Timeout: timeout}
}
