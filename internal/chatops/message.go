// Package chatops bridges a chat channel to the scan pipeline over AMQP.
// Requests arrive on a queue, each one is dispatched without blocking the
// consumer loop, and the verdict summary is sent back through the
// channel's own reply queue. Failures here are contained: nothing in this
// package can propagate an error to the HTTP-facing request path.
package chatops

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/repscan/app-scanner/internal/scan"
)

// ScanRequest is a scan request received from the chat bridge.
type ScanRequest struct {
	RequestID string    `json:"request_id"`
	ChannelID string    `json:"channel_id"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks if the request has all required fields.
func (r *ScanRequest) Validate() error {
	if r.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// ScanReply is the outcome message published back to the chat channel.
type ScanReply struct {
	RequestID string       `json:"request_id"`
	ChannelID string       `json:"channel_id"`
	URL       string       `json:"url"`
	Verdict   scan.Verdict `json:"verdict,omitempty"`
	Narrative string       `json:"narrative,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewScanReply builds the reply for a completed scan.
func NewScanReply(req *ScanRequest, result *scan.Result) *ScanReply {
	return &ScanReply{
		RequestID: req.RequestID,
		ChannelID: req.ChannelID,
		URL:       req.URL,
		Verdict:   result.FinalVerdict,
		Narrative: result.Narrative,
		Timestamp: time.Now(),
	}
}

// NewScanErrorReply builds the reply for a scan that could not run.
func NewScanErrorReply(req *ScanRequest, err error) *ScanReply {
	return &ScanReply{
		RequestID: req.RequestID,
		ChannelID: req.ChannelID,
		URL:       req.URL,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the reply to its wire form.
func (r *ScanReply) ToJSON() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scan reply: %w", err)
	}
	return data, nil
}
