package sntp

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// UDPTransport is the net-backed Transport. The underlying socket is
// opened on first use and reused across fetches.
type UDPTransport struct {
	mu   sync.Mutex
	conn *net.UDPConn
}

// NewUDPTransport creates an unconnected UDP transport.
func NewUDPTransport() *UDPTransport {
	return &UDPTransport{}
}

// Resolve resolves a hostname or address and port to a UDP address.
func (t *UDPTransport) Resolve(host string, port int) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolve, err)
	}
	return addr, nil
}

// SendTo sends one datagram to the destination.
func (t *UDPTransport) SendTo(p []byte, dst *net.UDPAddr) error {
	conn, err := t.connection()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	if _, err := conn.WriteToUDP(p, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	return nil
}

// ReceiveFrom waits for one datagram, at most timeout.
func (t *UDPTransport) ReceiveFrom(p []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	conn, err := t.connection()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrReceive, err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrReceive, err)
	}
	n, from, err := conn.ReadFromUDP(p)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, nil, fmt.Errorf("%w (%v)", ErrTimeout, timeout)
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrReceive, err)
	}
	return n, from, nil
}

// Close releases the socket. The transport can be reused afterwards; the
// next send opens a fresh one.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *UDPTransport) connection() (*net.UDPConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return t.conn, nil
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return conn, nil
}
