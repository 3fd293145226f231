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

package position

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/sunchaser-solar/telemetry-core/pkg/frame"
	"github.com/sunchaser-solar/telemetry-core/pkg/logger"
)

// ErrNoFix is returned while the receiver has not produced a fix yet.
var ErrNoFix = errors.New("no position fix available")

// watchCommand subscribes to gpsd's JSON report stream.
const watchCommand = `?WATCH={"enable":true,"json":true}` + "\n"

// tpvReport is the subset of gpsd's TPV report the coordinator reads.
// Mode 2 is a 2D fix, mode 3 a 3D fix.
type tpvReport struct {
	Class string  `json:"class"`
	Mode  int     `json:"mode"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// GPSDProvider reads fixes from a gpsd socket. A background goroutine
// follows the report stream and keeps the newest fix; CurrentFix never
// touches the network.
type GPSDProvider struct {
	addr   string
	cancel context.CancelFunc

	mu    sync.Mutex
	fix   frame.PositionFix
	fixAt time.Time
	has   bool
}

// NewGPSDProvider connects to gpsd and starts following the stream.
// Connection loss is retried forever with a flat delay; the provider
// reports whatever fix it last saw in the meantime.
func NewGPSDProvider(addr string) *GPSDProvider {
	ctx, cancel := context.WithCancel(context.Background())
	p := &GPSDProvider{addr: addr, cancel: cancel}

	go p.follow(ctx)

	return p
}

func (p *GPSDProvider) follow(ctx context.Context) {
	log := logger.For(logger.ComponentIngest)

	for ctx.Err() == nil {
		if err := p.stream(ctx); err != nil && ctx.Err() == nil {
			log.Debugf("gpsd stream ended: %v", err)
		}

		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
	}
}

func (p *GPSDProvider) stream(ctx context.Context) error {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("dial gpsd: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return fmt.Errorf("subscribe to gpsd: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}

		if report.Class != "TPV" || report.Mode < 2 {
			continue
		}

		p.mu.Lock()
		p.fix = frame.PositionFix{Latitude: report.Lat, Longitude: report.Lon, Valid: true}
		p.fixAt = time.Now()
		p.has = true
		p.mu.Unlock()
	}

	return scanner.Err()
}

// CurrentFix returns the newest streamed fix.
func (p *GPSDProvider) CurrentFix(_ context.Context) (frame.PositionFix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.has {
		return frame.PositionFix{}, ErrNoFix
	}

	fix := p.fix
	fix.Age = time.Since(p.fixAt)

	return fix, nil
}

// Close stops the stream follower.
func (p *GPSDProvider) Close() error {
	p.cancel()

	return nil
}
