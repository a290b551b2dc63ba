// Package sntp implements a minimal SNTP client for devices without a
// battery-backed real-time clock, based on RFC 4330 (SNTPv4) and
// RFC 5905 (NTPv4): a request/response codec, calendar conversion, and
// a cached time source on top of a datagram transport.
package sntp

import "errors"

// Error values surfaced by the codec and the time source. Every read is
// fallible; callers decide whether and when to retry.
var (
	// ErrResolve means the server name or address could not be resolved.
	ErrResolve = errors.New("server address could not be resolved")

	// ErrSend means the request datagram could not be sent.
	ErrSend = errors.New("request send failed")

	// ErrReceive means the receive call failed for a reason other than
	// the timeout elapsing.
	ErrReceive = errors.New("response receive failed")

	// ErrTimeout means no datagram arrived within the receive timeout.
	ErrTimeout = errors.New("no response within timeout")

	// ErrUnexpectedSource means a datagram arrived from an address other
	// than the resolved server. It is treated as no valid response.
	ErrUnexpectedSource = errors.New("response from unexpected source")

	// ErrMalformedResponse means the response was shorter than a full
	// NTP packet.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrEpochUnderflow means the decoded timestamp predates the Unix
	// epoch, which a real NTP server never produces.
	ErrEpochUnderflow = errors.New("timestamp predates the unix epoch")

	// ErrCalendarOverflow means the decoded timestamp falls outside the
	// representable calendar range.
	ErrCalendarOverflow = errors.New("timestamp outside calendar range")
)
