// Package link is the UDP endpoint to the ground-control station: one
// socket for inbound command traffic and outbound telemetry.
package link

import (
	"fmt"
	"net"
)

// Endpoint is a bidirectional UDP channel. Reads block; writes go to the
// configured ground-control address.
type Endpoint struct {
	conn *net.UDPConn
	dest *net.UDPAddr
}

func New(listen, dest string) (*Endpoint, error) {
	laddr, err := net.ResolveUDPAddr("udp", listen)
	if err != nil {
		return nil, fmt.Errorf("resolve listen: %w", err)
	}
	daddr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	return &Endpoint{
		conn: conn,
		dest: daddr,
	}, nil
}

func (e *Endpoint) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := e.conn.WriteToUDP(payload, e.dest)
	return err
}

// Receive blocks until a datagram arrives and returns it. The returned
// slice aliases buf.
func (e *Endpoint) Receive(buf []byte) ([]byte, error) {
	n, _, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Close unblocks any pending Receive.
func (e *Endpoint) Close() error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}
