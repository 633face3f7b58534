package httpclient

import (
	"crypto/tls"
	"net/http"
	"time"
)

// New returns a client for calls to a deployed instance. Certificate
// verification is only disabled when insecureSkipVerify is set by the
// operator.
func New(insecureSkipVerify bool, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		// #nosec G402: opt-in for self-signed identity provider endpoints
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
