// Package check compares TimeFetch results against a full NTP client
// implementation. It is diagnostic only; the reported skew never feeds
// back into the returned time.
package check

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// Result holds one reference query outcome
type Result struct {
	Server        string
	ReferenceTime time.Time
	Skew          time.Duration
	RTT           time.Duration
	Stratum       int
}

// Against queries the reference server and reports how far localUTC (the
// minimal client's opinion of UTC) deviates from it. A positive skew
// means the minimal client runs ahead of the reference.
func Against(server string, timeout time.Duration, localUTC time.Time) (*Result, error) {
	options := ntp.QueryOptions{
		Timeout: timeout,
		TTL:     128,
	}

	response, err := ntp.QueryWithOptions(server, options)
	if err != nil {
		return nil, fmt.Errorf("reference query failed: %w", err)
	}
	if err := response.Validate(); err != nil {
		return nil, fmt.Errorf("reference response invalid: %w", err)
	}

	referenceTime := time.Now().Add(response.ClockOffset)

	return &Result{
		Server:        server,
		ReferenceTime: referenceTime,
		Skew:          localUTC.Sub(referenceTime),
		RTT:           response.RTT,
		Stratum:       int(response.Stratum),
	}, nil
}
