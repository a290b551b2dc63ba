// Package client wires the SNTP time source to configuration, logging,
// history recording and the reference cross-check
package client

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/neutrinoguy/timefetch/internal/check"
	"github.com/neutrinoguy/timefetch/internal/config"
	"github.com/neutrinoguy/timefetch/internal/history"
	"github.com/neutrinoguy/timefetch/internal/logger"
	"github.com/neutrinoguy/timefetch/pkg/sntp"
)

// Client is the application-level time client
type Client struct {
	mu        sync.RWMutex
	cfg       *config.Config
	log       *logger.Logger
	recorder  *history.Recorder
	transport *sntp.UDPTransport
	source    *sntp.TimeSource

	// Stats
	startTime  time.Time
	totalReads uint64
	cacheHits  uint64
	errorCount uint64
	checksRun  uint64
}

// Stats holds client statistics for display
type Stats struct {
	Uptime     time.Duration
	TotalReads uint64
	CacheHits  uint64
	Fetches    uint64
	ErrorCount uint64
	ChecksRun  uint64
}

// NewClient creates a new client from configuration
func NewClient(cfg *config.Config) *Client {
	c := &Client{
		cfg:       cfg,
		log:       logger.GetLogger(),
		recorder:  history.GetRecorder(),
		transport: sntp.NewUDPTransport(),
		startTime: time.Now(),
	}
	c.source = newSource(c.transport, cfg)
	return c
}

func newSource(transport *sntp.UDPTransport, cfg *config.Config) *sntp.TimeSource {
	return sntp.NewTimeSource(transport,
		sntp.WithServer(cfg.Client.Server),
		sntp.WithPort(cfg.Client.Port),
		sntp.WithTimezoneOffset(cfg.Client.TimezoneOffsetHours),
		sntp.WithCacheDuration(cfg.Client.CacheSeconds),
		sntp.WithReceiveTimeout(time.Duration(cfg.Client.TimeoutMillis)*time.Millisecond),
	)
}

// Read returns the current calendar time, fetching over the network only
// when the cache window has elapsed. Failures are surfaced to the caller
// and never papered over with a stale value.
func (c *Client) Read() (sntp.CalendarTime, error) {
	c.mu.RLock()
	source := c.source
	server := c.cfg.Client.Server
	c.mu.RUnlock()

	atomic.AddUint64(&c.totalReads, 1)

	before := source.Fetches()
	cal, err := source.Now()
	fetched := source.Fetches() > before

	if err != nil {
		atomic.AddUint64(&c.errorCount, 1)
		c.log.LogFetch(server, false, 0, nil, err)
		c.recorder.Record(history.FetchEvent{
			Timestamp: time.Now(),
			Server:    server,
			Success:   false,
			Error:     err.Error(),
		})
		return sntp.CalendarTime{}, err
	}

	if !fetched {
		atomic.AddUint64(&c.cacheHits, 1)
		return cal, nil
	}

	status := source.Status()
	c.log.LogFetch(server, true, status.LastRTT, responseInfo(source.LastResponse()), nil)
	c.recorder.Record(history.FetchEvent{
		Timestamp: time.Now(),
		Server:    server,
		Success:   true,
		RTT:       status.LastRTT,
		Stratum:   int(status.Stratum),
		Result:    cal.String(),
	})
	return cal, nil
}

// Unix returns the current time as Unix epoch seconds shifted by the
// configured timezone, sharing the cache with Read.
func (c *Client) Unix() (int64, error) {
	c.mu.RLock()
	source := c.source
	c.mu.RUnlock()

	return source.Unix()
}

// RunCheck queries the reference NTP implementation and logs the skew
// against this client's current opinion of UTC.
func (c *Client) RunCheck() (*check.Result, error) {
	c.mu.RLock()
	server := c.cfg.CheckServer()
	timeout := time.Duration(c.cfg.Check.Timeout) * time.Second
	offset := time.Duration(c.cfg.Client.TimezoneOffsetHours) * time.Hour
	c.mu.RUnlock()

	unix, err := c.Unix()
	if err != nil {
		return nil, err
	}
	localUTC := time.Unix(unix, 0).Add(-offset)

	atomic.AddUint64(&c.checksRun, 1)

	result, err := check.Against(server, timeout, localUTC)
	if err != nil {
		c.log.LogCheck(server, 0, err)
		return nil, err
	}

	c.log.LogCheck(server, result.Skew, nil)
	return result, nil
}

// ForceRefresh discards the cache so the next read fetches
func (c *Client) ForceRefresh() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.source.Refresh()
	c.log.Info("CLIENT", "Cache discarded, next read will fetch")
}

// Status returns the time source sync status
func (c *Client) Status() sntp.SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source.Status()
}

// LastResponse returns header fields of the last server response
func (c *Client) LastResponse() *logger.ResponseInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return responseInfo(c.source.LastResponse())
}

// GetStats returns client statistics
func (c *Client) GetStats() Stats {
	c.mu.RLock()
	fetches := c.source.Fetches()
	c.mu.RUnlock()

	return Stats{
		Uptime:     time.Since(c.startTime),
		TotalReads: atomic.LoadUint64(&c.totalReads),
		CacheHits:  atomic.LoadUint64(&c.cacheHits),
		Fetches:    fetches,
		ErrorCount: atomic.LoadUint64(&c.errorCount),
		ChecksRun:  atomic.LoadUint64(&c.checksRun),
	}
}

// UpdateConfig rebuilds the time source from new configuration. The
// transport is kept; the fresh source starts with an empty cache.
func (c *Client) UpdateConfig(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.source = newSource(c.transport, cfg)
}

// Close releases the transport socket
func (c *Client) Close() error {
	return c.transport.Close()
}

func responseInfo(r *sntp.Response) *logger.ResponseInfo {
	if r == nil {
		return nil
	}
	return &logger.ResponseInfo{
		LeapIndicator: int(r.LeapIndicator),
		Version:       int(r.Version),
		Mode:          int(r.Mode),
		ModeString:    r.ModeString(),
		Stratum:       int(r.Stratum),
		Poll:          int(r.Poll),
		Precision:     int(r.Precision),
	}
}
