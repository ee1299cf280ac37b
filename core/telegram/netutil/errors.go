// Package netutil classifies transport failures seen while talking to the
// Telegram API.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
)

// Kind names a transport failure class. It doubles as the err_kind log value.
type Kind string

const (
	KindNone    Kind = ""
	KindTimeout Kind = "timeout"
	KindDNS     Kind = "dns"
	KindDial    Kind = "dial"
	KindTLS     Kind = "tls"
)

// Classify looks for a network cause anywhere in err's chain. Telegram API
// replies and other application errors yield KindNone.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return KindTimeout
		}
		if opErr.Op == "dial" {
			return KindDial
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return KindTLS
	}
	return KindNone
}

// Retryable reports whether a request that failed with err may be sent
// again: it timed out, never reached the server, or hit a temporary
// resolver failure.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindDial:
		return true
	case KindDNS:
		var dnsErr *net.DNSError
		return errors.As(err, &dnsErr) && dnsErr.IsTemporary
	}
	return false
}
