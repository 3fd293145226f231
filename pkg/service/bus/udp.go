// Copyright 2025 Sunchaser Solar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
)

// maxDatagram bounds one bridged bus frame. The gateway never sends
// more than a CAN FD payload plus its header.
const maxDatagram = 128

// UDPSource reads raw frames from the CAN gateway's UDP bridge, one
// frame per datagram.
type UDPSource struct {
	conn *net.UDPConn
}

func NewUDPSource(listenAddr string) (*UDPSource, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve bus listen address %q: %w", listenAddr, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on bus bridge: %w", err)
	}

	return &UDPSource{conn: conn}, nil
}

// Receive reads the next datagram, waiting at most timeout.
func (s *UDPSource) Receive(ctx context.Context, timeout time.Duration) (frame.RawFrame, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return frame.RawFrame{}, fmt.Errorf("set bus read deadline: %w", err)
	}

	buf := make([]byte, maxDatagram)

	n, _, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return frame.RawFrame{}, ErrNoFrame
		}

		return frame.RawFrame{}, fmt.Errorf("bus receive: %w", err)
	}

	return frame.RawFrame{Data: buf[:n], Arrived: time.Now()}, nil
}

func (s *UDPSource) Close() error {
	return s.conn.Close()
}

// UDPPublisher writes frames to the gateway's publish port. The frame
// id travels as a four byte little-endian prefix, matching the
// gateway's bridge format.
type UDPPublisher struct {
	conn *net.UDPConn
}

func NewUDPPublisher(addr string) (*UDPPublisher, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve bus publish address %q: %w", addr, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial bus bridge: %w", err)
	}

	return &UDPPublisher{conn: conn}, nil
}

func (p *UDPPublisher) Publish(ctx context.Context, frameID uint32, data []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(deadline)
	}

	msg := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(msg, frameID)
	copy(msg[4:], data)

	if _, err := p.conn.Write(msg); err != nil {
		return fmt.Errorf("bus publish: %w", err)
	}

	return nil
}

func (p *UDPPublisher) Close() error {
	return p.conn.Close()
}
