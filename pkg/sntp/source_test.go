package sntp

import (
	"encoding/binary"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) advance(d time.Duration) {
	c.now += d
}

func (c *fakeClock) read() time.Duration {
	return c.now
}

type fakeTransport struct {
	t          *testing.T
	addr       *net.UDPAddr
	response   []byte
	respFrom   *net.UDPAddr
	resolveErr error
	sendErr    error
	recvErr    error

	resolveCalls int
	sendCalls    int
}

func newFakeTransport(t *testing.T) *fakeTransport {
	return &fakeTransport{
		t:        t,
		addr:     &net.UDPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 123},
		response: serverResponse(EpochDelta + 1704067200), // 2024-01-01T00:00:00Z
	}
}

func (f *fakeTransport) Resolve(host string, port int) (*net.UDPAddr, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.addr, nil
}

func (f *fakeTransport) SendTo(p []byte, dst *net.UDPAddr) error {
	f.sendCalls++
	require.Equal(f.t, NewRequest(), p)
	require.Equal(f.t, f.addr, dst)
	return f.sendErr
}

func (f *fakeTransport) ReceiveFrom(p []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	if f.recvErr != nil {
		return 0, nil, f.recvErr
	}
	from := f.respFrom
	if from == nil {
		from = f.addr
	}
	return copy(p, f.response), from, nil
}

func serverResponse(ntpSecs uint32) []byte {
	data := make([]byte, PacketSize)
	data[0] = 0x24 // LI 0, version 4, server mode
	data[1] = 2    // stratum
	binary.BigEndian.PutUint32(data[40:44], ntpSecs)
	return data
}

func TestTimeSourceCacheHit(t *testing.T) {
	tr := newFakeTransport(t)
	clk := &fakeClock{}
	s := NewTimeSource(tr,
		WithCacheDuration(3600),
		withMonotonic(clk.read),
	)

	cal, err := s.Now()
	require.NoError(t, err)
	require.Equal(t, CalendarTime{
		Year: 2024, Month: time.January, Day: 1,
		Weekday: time.Monday, YearDay: 1,
	}, cal)
	require.Equal(t, 1, tr.sendCalls)

	// second read inside the window comes from cache
	clk.advance(3599 * time.Second)
	cal2, err := s.Now()
	require.NoError(t, err)
	require.Equal(t, cal, cal2)
	require.Equal(t, 1, tr.sendCalls)

	// a read past the window fetches again
	clk.advance(2 * time.Second)
	_, err = s.Now()
	require.NoError(t, err)
	require.Equal(t, 2, tr.sendCalls)

	// resolution happens once, not per fetch
	require.Equal(t, 1, tr.resolveCalls)
}

func TestTimeSourceCacheDisabled(t *testing.T) {
	tr := newFakeTransport(t)
	clk := &fakeClock{}
	s := NewTimeSource(tr,
		WithCacheDuration(0),
		withMonotonic(clk.read),
	)

	for i := 1; i <= 3; i++ {
		_, err := s.Now()
		require.NoError(t, err)
		require.Equal(t, i, tr.sendCalls)
	}
}

func TestTimeSourceTimezoneOffset(t *testing.T) {
	tr := newFakeTransport(t)
	tr.response = serverResponse(EpochDelta + 1709163000) // 2024-02-28T23:30:00Z
	s := NewTimeSource(tr, WithTimezoneOffset(1))

	cal, err := s.Now()
	require.NoError(t, err)
	require.Equal(t, CalendarTime{
		Year: 2024, Month: time.February, Day: 29,
		Minute: 30,
		Weekday: time.Thursday, YearDay: 60,
	}, cal)
}

func TestTimeSourceNegativeOffset(t *testing.T) {
	tr := newFakeTransport(t)
	s := NewTimeSource(tr, WithTimezoneOffset(-7))

	cal, err := s.Now()
	require.NoError(t, err)
	require.Equal(t, CalendarTime{
		Year: 2023, Month: time.December, Day: 31,
		Hour: 17,
		Weekday: time.Sunday, YearDay: 365,
	}, cal)
}

func TestTimeSourceUnixSharesCache(t *testing.T) {
	tr := newFakeTransport(t)
	s := NewTimeSource(tr, WithTimezoneOffset(2))

	unix, err := s.Unix()
	require.NoError(t, err)
	require.Equal(t, int64(1704067200+7200), unix)

	_, err = s.Now()
	require.NoError(t, err)
	require.Equal(t, 1, tr.sendCalls)
}

func TestTimeSourceTimeout(t *testing.T) {
	tr := newFakeTransport(t)
	tr.recvErr = fmt.Errorf("%w (1s)", ErrTimeout)
	clk := &fakeClock{}
	s := NewTimeSource(tr,
		WithCacheDuration(3600),
		withMonotonic(clk.read),
	)

	_, err := s.Now()
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 1, tr.sendCalls)

	// the failed fetch must not have populated the cache
	tr.recvErr = nil
	_, err = s.Now()
	require.NoError(t, err)
	require.Equal(t, 2, tr.sendCalls)
}

func TestTimeSourceUnexpectedSource(t *testing.T) {
	tr := newFakeTransport(t)
	tr.respFrom = &net.UDPAddr{IP: net.IPv4(203, 0, 113, 9), Port: 123}
	s := NewTimeSource(tr, WithCacheDuration(3600))

	_, err := s.Now()
	require.ErrorIs(t, err, ErrUnexpectedSource)

	// a stray datagram must not update the cache
	tr.respFrom = nil
	_, err = s.Now()
	require.NoError(t, err)
	require.Equal(t, 2, tr.sendCalls)
}

func TestTimeSourceRejectsMismatchedPort(t *testing.T) {
	tr := newFakeTransport(t)
	tr.respFrom = &net.UDPAddr{IP: tr.addr.IP, Port: 1123}
	s := NewTimeSource(tr)

	_, err := s.Now()
	require.ErrorIs(t, err, ErrUnexpectedSource)
}

func TestTimeSourceMalformedResponse(t *testing.T) {
	tr := newFakeTransport(t)
	tr.response = tr.response[:20]
	s := NewTimeSource(tr)

	_, err := s.Now()
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTimeSourceEpochUnderflow(t *testing.T) {
	tr := newFakeTransport(t)
	tr.response = serverResponse(0)
	s := NewTimeSource(tr)

	_, err := s.Now()
	require.ErrorIs(t, err, ErrEpochUnderflow)
}

func TestTimeSourceResolveFailure(t *testing.T) {
	tr := newFakeTransport(t)
	tr.resolveErr = fmt.Errorf("%w: no such host", ErrResolve)
	s := NewTimeSource(tr)

	_, err := s.Now()
	require.ErrorIs(t, err, ErrResolve)
	require.Zero(t, tr.sendCalls)
}

func TestTimeSourceSendFailure(t *testing.T) {
	tr := newFakeTransport(t)
	tr.sendErr = fmt.Errorf("%w: network unreachable", ErrSend)
	s := NewTimeSource(tr)

	_, err := s.Now()
	require.ErrorIs(t, err, ErrSend)
}

func TestTimeSourceStatus(t *testing.T) {
	tr := newFakeTransport(t)
	clk := &fakeClock{}
	s := NewTimeSource(tr,
		WithServer("ntp.example.org"),
		WithCacheDuration(0),
		withMonotonic(clk.read),
	)

	require.False(t, s.Status().Synchronized)

	_, err := s.Now()
	require.NoError(t, err)

	status := s.Status()
	require.True(t, status.Synchronized)
	require.Equal(t, "ntp.example.org", status.Server)
	require.Equal(t, uint8(2), status.Stratum)
	require.Empty(t, status.LastError)

	tr.recvErr = fmt.Errorf("%w: connection refused", ErrReceive)
	_, err = s.Now()
	require.ErrorIs(t, err, ErrReceive)

	status = s.Status()
	require.False(t, status.Synchronized)
	require.NotEmpty(t, status.LastError)
}

func TestTimeSourceRefresh(t *testing.T) {
	tr := newFakeTransport(t)
	clk := &fakeClock{}
	s := NewTimeSource(tr,
		WithCacheDuration(3600),
		withMonotonic(clk.read),
	)

	_, err := s.Now()
	require.NoError(t, err)
	require.Equal(t, 1, tr.sendCalls)

	s.Refresh()

	_, err = s.Now()
	require.NoError(t, err)
	require.Equal(t, 2, tr.sendCalls)
}
