package sntp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	p := NewRequest()
	require.Len(t, p, PacketSize)
	require.Equal(t, byte(0x1B), p[0])
	for i := 1; i < PacketSize; i++ {
		require.Zero(t, p[i], "byte %d", i)
	}

	// every call yields the same packet
	require.Equal(t, p, NewRequest())
}

func TestParseResponse(t *testing.T) {
	data := make([]byte, PacketSize)
	data[0] = 0x24 // LI 0, version 4, server mode
	data[1] = 2    // stratum
	data[2] = 6    // poll
	data[3] = 0xEC // precision -20
	binary.BigEndian.PutUint32(data[40:44], 3913056000)
	binary.BigEndian.PutUint32(data[44:48], 0x80000000)

	r, err := ParseResponse(data)
	require.NoError(t, err)
	require.Equal(t, &Response{
		LeapIndicator:    0,
		Version:          4,
		Mode:             ModeServer,
		Stratum:          2,
		Poll:             6,
		Precision:        -20,
		TransmitSeconds:  3913056000,
		TransmitFraction: 0x80000000,
	}, r)
}

func TestParseResponseTrailingBytes(t *testing.T) {
	data := make([]byte, PacketSize+20)
	binary.BigEndian.PutUint32(data[40:44], EpochDelta+1)

	r, err := ParseResponse(data)
	require.NoError(t, err)
	require.Equal(t, uint32(EpochDelta+1), r.TransmitSeconds)
}

func TestParseResponseShortBuffer(t *testing.T) {
	for _, n := range []int{0, 1, 39, 40, 47} {
		_, err := ParseResponse(make([]byte, n))
		require.ErrorIs(t, err, ErrMalformedResponse, "length %d", n)
	}
}

func TestResponseUnix(t *testing.T) {
	for _, ca := range []struct {
		name    string
		ntpSecs uint32
		unix    int64
		err     error
	}{
		{
			name:    "unix epoch",
			ntpSecs: EpochDelta,
			unix:    0,
		},
		{
			name: "2024-01-01T00:00:00Z",
			// 1704067200 unix seconds
			ntpSecs: EpochDelta + 1704067200,
			unix:    1704067200,
		},
		{
			name:    "zero",
			ntpSecs: 0,
			err:     ErrEpochUnderflow,
		},
		{
			name:    "just before unix epoch",
			ntpSecs: EpochDelta - 1,
			err:     ErrEpochUnderflow,
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			r := &Response{TransmitSeconds: ca.ntpSecs}
			unix, err := r.Unix()
			if ca.err != nil {
				require.ErrorIs(t, err, ca.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, ca.unix, unix)
		})
	}
}
