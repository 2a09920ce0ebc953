package measurement

import (
	"context"
	"encoding/json"
)

// Result is the outcome of one network measurement.
type Result struct {
	DownloadMbps  float64
	UploadMbps    float64
	PingMs        float64
	JitterMs      float64
	PacketLossPct float64
	ServerID      string
	ServerName    string
	ISPName       string
	RawData       json.RawMessage
}

// Runner executes a network measurement against whichever link the
// given ISP label selects. Implementations may block for tens of
// seconds and fail with transport errors.
type Runner interface {
	Run(ctx context.Context, ispLabel string) (Result, error)
}
