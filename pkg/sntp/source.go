package sntp

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// Transport is the datagram abstraction the time source runs on. The
// production implementation is UDPTransport; tests substitute scripted
// ones. The transport is owned by the time source for the duration of
// each send/receive pair and must not be used concurrently elsewhere
// during a pending fetch.
type Transport interface {
	// Resolve turns a hostname or address plus port into a UDP address.
	Resolve(host string, port int) (*net.UDPAddr, error)

	// SendTo sends one datagram to the destination.
	SendTo(p []byte, dst *net.UDPAddr) error

	// ReceiveFrom blocks for at most timeout waiting for one datagram,
	// returning the byte count and source address.
	ReceiveFrom(p []byte, timeout time.Duration) (int, *net.UDPAddr, error)
}

// Defaults used when no option overrides them.
const (
	DefaultServer         = "0.pool.ntp.org"
	DefaultPort           = 123
	DefaultCacheSeconds   = 3600
	DefaultReceiveTimeout = time.Second
)

// SyncStatus describes the last fetch outcome, for status displays.
type SyncStatus struct {
	Synchronized bool
	Server       string
	Stratum      uint8
	LastRTT      time.Duration
	LastSync     CalendarTime
	LastError    string
}

// TimeSource answers time queries from a remote NTP server, memoizing
// the result so repeated reads inside the cache window cost no I/O.
// A single mutex guards the whole check-then-fetch path, so one instance
// may be shared across goroutines; concurrent reads past an expired
// cache serialize into exactly one fetch.
type TimeSource struct {
	mu        sync.Mutex
	transport Transport
	server    string
	port      int
	offset    int64 // timezone shift in seconds
	cacheFor  time.Duration
	timeout   time.Duration

	// mono measures cache age. It must never move backward or react to
	// wall-clock adjustments, including the ones a host makes from this
	// source's own results.
	mono func() time.Duration

	addr     *net.UDPAddr // resolved once, reused across fetches
	cached   *cacheEntry
	status   SyncStatus
	lastResp *Response
	fetches  uint64
}

type cacheEntry struct {
	calendar  CalendarTime
	unix      int64
	fetchedAt time.Duration
}

// Option configures a TimeSource.
type Option func(*TimeSource)

// WithServer sets the NTP server hostname or address.
func WithServer(server string) Option {
	return func(s *TimeSource) { s.server = server }
}

// WithPort sets the NTP server UDP port.
func WithPort(port int) Option {
	return func(s *TimeSource) { s.port = port }
}

// WithTimezoneOffset sets a fixed timezone shift in hours from UTC.
func WithTimezoneOffset(hours int) Option {
	return func(s *TimeSource) { s.offset = int64(hours) * 3600 }
}

// WithCacheDuration sets for how many seconds a fetched value is served
// without re-querying the network. Zero disables caching entirely.
func WithCacheDuration(seconds int) Option {
	return func(s *TimeSource) { s.cacheFor = time.Duration(seconds) * time.Second }
}

// WithReceiveTimeout bounds the blocking receive call.
func WithReceiveTimeout(d time.Duration) Option {
	return func(s *TimeSource) { s.timeout = d }
}

// withMonotonic substitutes the cache-age clock, for tests.
func withMonotonic(mono func() time.Duration) Option {
	return func(s *TimeSource) { s.mono = mono }
}

var processStart = time.Now()

// monotonicNow reads the runtime's monotonic clock. time.Since on a
// time.Now() anchor subtracts monotonic readings, so wall-clock steps
// do not show up here.
func monotonicNow() time.Duration {
	return time.Since(processStart)
}

// NewTimeSource creates a time source over the given transport. One
// instance per transport, living for the process duration.
func NewTimeSource(transport Transport, opts ...Option) *TimeSource {
	s := &TimeSource{
		transport: transport,
		server:    DefaultServer,
		port:      DefaultPort,
		cacheFor:  DefaultCacheSeconds * time.Second,
		timeout:   DefaultReceiveTimeout,
		mono:      monotonicNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current calendar time, from cache when the last fetch
// is still fresh, otherwise after exactly one network exchange. Failures
// are returned as-is; there is no internal retry and no fallback to a
// value older than the cache window.
func (s *TimeSource) Now() (CalendarTime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.current()
	if err != nil {
		return CalendarTime{}, err
	}
	return e.calendar, nil
}

// Unix returns the same value as Now as seconds since the Unix epoch,
// shifted by the configured timezone. It shares the cache with Now.
func (s *TimeSource) Unix() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.current()
	if err != nil {
		return 0, err
	}
	return e.unix, nil
}

// Status reports the last fetch outcome.
func (s *TimeSource) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Fetches reports how many network exchanges completed successfully.
// Reads minus fetches is the cache hit count.
func (s *TimeSource) Fetches() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// LastResponse returns the most recent decoded server response, or nil
// before the first successful fetch.
func (s *TimeSource) LastResponse() *Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResp
}

// Refresh discards the cache and forces a fetch on the next read.
func (s *TimeSource) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

// current must be called with the mutex held.
func (s *TimeSource) current() (*cacheEntry, error) {
	if s.cached != nil && s.mono()-s.cached.fetchedAt < s.cacheFor {
		return s.cached, nil
	}

	e, err := s.fetch()
	if err != nil {
		s.status.Synchronized = false
		s.status.LastError = err.Error()
		return nil, err
	}
	s.cached = e
	return e, nil
}

// fetch performs one request/response exchange: exactly one outbound
// datagram and one bounded receive. The cache is only touched by the
// caller on full success.
func (s *TimeSource) fetch() (*cacheEntry, error) {
	if s.addr == nil {
		addr, err := s.transport.Resolve(s.server, s.port)
		if err != nil {
			return nil, err
		}
		s.addr = addr
	}

	start := s.mono()
	if err := s.transport.SendTo(NewRequest(), s.addr); err != nil {
		return nil, err
	}

	buf := make([]byte, PacketSize)
	n, from, err := s.transport.ReceiveFrom(buf, s.timeout)
	if err != nil {
		return nil, err
	}
	rtt := s.mono() - start

	// Stray or spoofed datagrams are not a valid response.
	if from == nil || !from.IP.Equal(s.addr.IP) || from.Port != s.addr.Port {
		return nil, fmt.Errorf("%w: got %v, want %v", ErrUnexpectedSource, from, s.addr)
	}

	resp, err := ParseResponse(buf[:n])
	if err != nil {
		return nil, err
	}
	unix, err := resp.Unix()
	if err != nil {
		return nil, err
	}
	unix += s.offset

	cal, err := CalendarFromUnix(unix)
	if err != nil {
		return nil, err
	}

	s.status = SyncStatus{
		Synchronized: true,
		Server:       s.server,
		Stratum:      resp.Stratum,
		LastRTT:      rtt,
		LastSync:     cal,
	}
	s.lastResp = resp
	s.fetches++
	return &cacheEntry{calendar: cal, unix: unix, fetchedAt: s.mono()}, nil
}
