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

// Package transmitter abstracts the network links the telemetry fans
// out over: the LTE uplink to the chase vehicle cloud relay and the
// short-range radio link.
package transmitter

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Transmitter sends one frame payload over a network link. Send is
// synchronous; the caller owns retry policy.
type Transmitter interface {
	Name() string
	Send(ctx context.Context, payload []byte) error
}

// HTTPTransmitter posts frame payloads to a relay endpoint. Used for
// the LTE uplink.
type HTTPTransmitter struct {
	name     string
	endpoint string
	client   *http.Client
}

// NewHTTPTransmitter builds a transmitter posting to endpoint with the
// given per-request timeout.
func NewHTTPTransmitter(name, endpoint string, timeout time.Duration) *HTTPTransmitter {
	return &HTTPTransmitter{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransmitter) Name() string {
	return t.name
}

func (t *HTTPTransmitter) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", t.name, err)
	}

	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s send: %w", t.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s send: relay returned %s", t.name, resp.Status)
	}

	return nil
}

// UDPTransmitter writes frame payloads as single datagrams. Used for
// the short-range radio link, whose modem exposes a UDP ingress.
type UDPTransmitter struct {
	name string
	addr string
	conn *net.UDPConn
}

func NewUDPTransmitter(name, addr string) (*UDPTransmitter, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s address %q: %w", name, addr, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}

	return &UDPTransmitter{name: name, addr: addr, conn: conn}, nil
}

func (t *UDPTransmitter) Name() string {
	return t.name
}

func (t *UDPTransmitter) Send(ctx context.Context, payload []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}

	if _, err := t.conn.Write(payload); err != nil {
		return fmt.Errorf("%s send: %w", t.name, err)
	}

	return nil
}

func (t *UDPTransmitter) Close() error {
	return t.conn.Close()
}
