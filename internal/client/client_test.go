package client

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neutrinoguy/timefetch/internal/config"
	"github.com/neutrinoguy/timefetch/pkg/sntp"
)

func startResponder(t *testing.T, ntpSecs uint32) *net.UDPAddr {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buffer := make([]byte, 1024)
		for {
			n, clientAddr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				return
			}
			if n < sntp.PacketSize {
				continue
			}

			response := make([]byte, sntp.PacketSize)
			response[0] = 0x24
			response[1] = 2
			binary.BigEndian.PutUint32(response[40:44], ntpSecs)
			conn.WriteToUDP(response, clientAddr)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr)
}

func testConfig(serverAddr *net.UDPAddr) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Client.Server = "127.0.0.1"
	cfg.Client.Port = serverAddr.Port
	cfg.Client.TimeoutMillis = 1000
	cfg.Logging.LogToFile = false
	return cfg
}

func TestClientRead(t *testing.T) {
	serverAddr := startResponder(t, sntp.EpochDelta+1704067200) // 2024-01-01T00:00:00Z

	cl := NewClient(testConfig(serverAddr))
	defer cl.Close()

	cal, err := cl.Read()
	require.NoError(t, err)
	require.Equal(t, 2024, cal.Year)
	require.Equal(t, time.January, cal.Month)
	require.Equal(t, 1, cal.Day)

	// second read hits the cache
	_, err = cl.Read()
	require.NoError(t, err)

	stats := cl.GetStats()
	require.Equal(t, uint64(2), stats.TotalReads)
	require.Equal(t, uint64(1), stats.Fetches)
	require.Equal(t, uint64(1), stats.CacheHits)
	require.Zero(t, stats.ErrorCount)

	status := cl.Status()
	require.True(t, status.Synchronized)
	require.Equal(t, uint8(2), status.Stratum)

	resp := cl.LastResponse()
	require.NotNil(t, resp)
	require.Equal(t, "Server", resp.ModeString)
}

func TestClientReadFailure(t *testing.T) {
	// a socket nobody answers on
	silent, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer silent.Close()

	cfg := testConfig(silent.LocalAddr().(*net.UDPAddr))
	cfg.Client.TimeoutMillis = 50

	cl := NewClient(cfg)
	defer cl.Close()

	_, err = cl.Read()
	require.ErrorIs(t, err, sntp.ErrTimeout)

	stats := cl.GetStats()
	require.Equal(t, uint64(1), stats.ErrorCount)
	require.Zero(t, stats.Fetches)
}

func TestClientUpdateConfig(t *testing.T) {
	first := startResponder(t, sntp.EpochDelta+1704067200)  // 2024-01-01T00:00:00Z
	second := startResponder(t, sntp.EpochDelta+1735689600) // 2025-01-01T00:00:00Z

	cl := NewClient(testConfig(first))
	defer cl.Close()

	cal, err := cl.Read()
	require.NoError(t, err)
	require.Equal(t, 2024, cal.Year)

	cl.UpdateConfig(testConfig(second))

	cal, err = cl.Read()
	require.NoError(t, err)
	require.Equal(t, 2025, cal.Year)
}
