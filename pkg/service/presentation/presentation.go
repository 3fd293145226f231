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

// Package presentation carries the driver display feed: the most
// recent telemetry snapshot, rendered once per second.
package presentation

import (
	"context"
	"fmt"
	"net"
)

// Publisher delivers one rendered snapshot to the display.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// UDPPublisher sends snapshots as datagrams to the display node on the
// cabin network.
type UDPPublisher struct {
	conn *net.UDPConn
}

func NewUDPPublisher(addr string) (*UDPPublisher, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve display address %q: %w", addr, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial display: %w", err)
	}

	return &UDPPublisher{conn: conn}, nil
}

func (p *UDPPublisher) Publish(ctx context.Context, payload []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(deadline)
	}

	if _, err := p.conn.Write(payload); err != nil {
		return fmt.Errorf("display publish: %w", err)
	}

	return nil
}

func (p *UDPPublisher) Close() error {
	return p.conn.Close()
}
