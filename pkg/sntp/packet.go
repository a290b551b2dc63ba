package sntp

import (
	"encoding/binary"
	"fmt"
)

// NTP timestamp epoch: January 1, 1900 00:00:00 UTC
// Unix epoch: January 1, 1970 00:00:00 UTC
const (
	// EpochDelta is the number of seconds between the NTP and Unix epochs.
	EpochDelta = 2208988800

	// PacketSize is the size of an NTP packet without extension fields.
	// Responses carrying extensions may be longer; the extra bytes are
	// ignored.
	PacketSize = 48

	// Mode values
	ModeClient = 3
	ModeServer = 4

	// Version values
	VersionNTPv3 = 3
	VersionNTPv4 = 4

	// requestHeader is the first byte of every outbound request:
	// LI 0 (no warning), version 3, client mode.
	requestHeader = 0x1B
)

// Response holds the fields of a server response that this client reads.
// Only the transmit timestamp feeds the computed time; the header fields
// are surfaced for logging and display.
type Response struct {
	LeapIndicator uint8
	Version       uint8
	Mode          uint8
	Stratum       uint8
	Poll          int8
	Precision     int8

	// Transmit timestamp: seconds since the NTP epoch plus a 32-bit
	// binary fraction. The fraction is decoded but does not affect the
	// second-granularity calendar result.
	TransmitSeconds  uint32
	TransmitFraction uint32
}

// NewRequest returns a fresh 48-byte client request. The first byte
// carries the fixed leap/version/mode value; every other byte is zero.
func NewRequest() []byte {
	p := make([]byte, PacketSize)
	p[0] = requestHeader
	return p
}

// ParseResponse decodes a server response. Buffers shorter than a full
// packet are rejected outright; nothing is partially decoded.
func ParseResponse(data []byte) (*Response, error) {
	if len(data) < PacketSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrMalformedResponse, len(data), PacketSize)
	}

	r := &Response{}

	first := data[0]
	r.LeapIndicator = (first >> 6) & 0x03
	r.Version = (first >> 3) & 0x07
	r.Mode = first & 0x07

	r.Stratum = data[1]
	r.Poll = int8(data[2])
	r.Precision = int8(data[3])
	r.TransmitSeconds = binary.BigEndian.Uint32(data[40:44])
	r.TransmitFraction = binary.BigEndian.Uint32(data[44:48])

	return r, nil
}

// Unix converts the transmit timestamp to seconds since the Unix epoch.
func (r *Response) Unix() (int64, error) {
	if r.TransmitSeconds < EpochDelta {
		return 0, fmt.Errorf("%w: ntp seconds %d", ErrEpochUnderflow, r.TransmitSeconds)
	}
	return int64(r.TransmitSeconds) - EpochDelta, nil
}

// ModeString returns a human-readable mode for logging.
func (r *Response) ModeString() string {
	switch r.Mode {
	case ModeClient:
		return "Client"
	case ModeServer:
		return "Server"
	default:
		return fmt.Sprintf("Mode %d", r.Mode)
	}
}
