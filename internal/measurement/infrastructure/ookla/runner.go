// Package ookla runs speed tests through the speedtest.net network
// using the speedtest-go library.
package ookla

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	st "github.com/showwin/speedtest-go/speedtest"

	measurement "speedwatch/internal/measurement/domain"
)

// Runner implements measurement.Runner on speedtest.net.
type Runner struct {
	client   *st.Speedtest
	logger   *log.Logger
	serverID string
}

// Option configures the runner.
type Option func(*Runner)

// WithServerID pins measurements to one speedtest server instead of
// the closest one.
func WithServerID(id string) Option {
	return func(r *Runner) { r.serverID = id }
}

// NewRunner constructs a Runner.
func NewRunner(logger *log.Logger, opts ...Option) *Runner {
	r := &Runner{client: st.New(), logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a full ping/download/upload cycle against the closest
// server. The ISP label only annotates the payload; server selection
// follows network proximity unless a server is pinned.
func (r *Runner) Run(ctx context.Context, ispLabel string) (measurement.Result, error) {
	user, err := r.client.FetchUserInfoContext(ctx)
	if err != nil {
		return measurement.Result{}, fmt.Errorf("fetch user info: %w", err)
	}

	servers, err := r.client.FetchServerListContext(ctx)
	if err != nil {
		return measurement.Result{}, fmt.Errorf("fetch server list: %w", err)
	}
	if len(servers) == 0 {
		return measurement.Result{}, fmt.Errorf("no speedtest servers available")
	}
	target := servers[0]
	if r.serverID != "" {
		found := false
		for _, server := range servers {
			if server.ID == r.serverID {
				target = server
				found = true
				break
			}
		}
		if !found && r.logger != nil {
			r.logger.Printf("speedtest server %s not in list, using closest", r.serverID)
		}
	}

	if err := target.PingTestContext(ctx, nil); err != nil {
		return measurement.Result{}, fmt.Errorf("ping test: %w", err)
	}
	if err := target.DownloadTestContext(ctx); err != nil {
		return measurement.Result{}, fmt.Errorf("download test: %w", err)
	}
	if err := target.UploadTestContext(ctx); err != nil {
		return measurement.Result{}, fmt.Errorf("upload test: %w", err)
	}

	result := measurement.Result{
		DownloadMbps:  target.DLSpeed.Mbps(),
		UploadMbps:    target.ULSpeed.Mbps(),
		PingMs:        target.Latency.Seconds() * 1000.0,
		JitterMs:      target.Jitter.Seconds() * 1000.0,
		PacketLossPct: target.PacketLoss.LossPercent(),
		ServerID:      target.ID,
		ServerName:    target.Name,
		ISPName:       user.Isp,
	}

	raw := map[string]any{
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"isp":        user.Isp,
		"externalIp": user.IP,
		"requested":  ispLabel,
		"server": map[string]any{
			"id":      target.ID,
			"name":    target.Name,
			"country": target.Country,
		},
		"ping": map[string]any{
			"latency": result.PingMs,
			"jitter":  result.JitterMs,
		},
		"download":   map[string]any{"bandwidth": float64(target.DLSpeed)},
		"upload":     map[string]any{"bandwidth": float64(target.ULSpeed)},
		"packetLoss": result.PacketLossPct,
	}
	if data, err := json.Marshal(raw); err == nil {
		result.RawData = data
	}

	if r.logger != nil {
		r.logger.Printf("speedtest done: isp=%s down=%.2fMbps up=%.2fMbps ping=%.1fms server=%s",
			ispLabel, result.DownloadMbps, result.UploadMbps, result.PingMs, target.Name)
	}
	return result, nil
}
