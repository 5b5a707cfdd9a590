// internal/halo/client.go

// Package halo implements the HTTP client for the Halo 3C smart sensor.
// The device exposes its state under /api/config/gstate with HTTP basic
// auth and, typically, a self-signed TLS certificate.
package halo

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/retea-se/halo-3c-dashboard/internal/snapshot"
)

// Heartbeat thresholds, seconds since last successful device contact.
const (
	heartbeatDegradedAfter = 30 * time.Second
	heartbeatOfflineAfter  = 120 * time.Second
)

// HeartbeatStatus reports device reachability based on the time since the
// last successful request.
type HeartbeatStatus struct {
	Status              string  `json:"status"`
	LastContact         *string `json:"last_contact"`
	SecondsSinceContact *int    `json:"seconds_since_contact"`
	Error               string  `json:"error,omitempty"`
}

// Client talks to one Halo 3C device. Safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	mu          sync.Mutex
	lastContact time.Time
	lastError   string
}

// NewClient builds a device client. The device serves self-signed
// certificates, so HTTPS verification is disabled.
func NewClient(host, username, password string, useHTTPS bool, timeout time.Duration) *Client {
	scheme := "http"
	transport := http.DefaultTransport
	if useHTTPS {
		scheme = "https"
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  fmt.Sprintf("%s://%s", scheme, host),
		username: username,
		password: password,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
		c.recordFailure(err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.recordFailure(err)
		return fmt.Errorf("GET %s: decode response: %w", path, err)
	}

	c.recordSuccess()
	return nil
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	c.lastContact = time.Now().UTC()
	c.lastError = ""
	c.mu.Unlock()
}

func (c *Client) recordFailure(err error) {
	c.mu.Lock()
	c.lastError = err.Error()
	c.mu.Unlock()
}

// LatestState fetches the current sensor state document.
func (c *Client) LatestState(ctx context.Context) (snapshot.Snapshot, error) {
	var state snapshot.Snapshot
	if err := c.getJSON(ctx, "/api/config/gstate/latest", &state); err != nil {
		return nil, fmt.Errorf("fetch latest state: %w", err)
	}
	return state, nil
}

// EventState fetches the device's per-condition trigger flags.
func (c *Client) EventState(ctx context.Context) (map[string]any, error) {
	var state map[string]any
	if err := c.getJSON(ctx, "/api/config/gstate/event_state", &state); err != nil {
		return nil, fmt.Errorf("fetch event state: %w", err)
	}
	return state, nil
}

// FullConfig fetches the complete device configuration.
func (c *Client) FullConfig(ctx context.Context) (map[string]any, error) {
	var cfg map[string]any
	if err := c.getJSON(ctx, "/api/config", &cfg); err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	return cfg, nil
}

// DeviceInfo gathers diagnostic details from several device endpoints.
// Individual endpoint failures are logged and skipped so a partially
// reachable device still yields useful output.
func (c *Client) DeviceInfo(ctx context.Context) map[string]any {
	info := map[string]any{
		"fetched_at": time.Now().UTC().Format(time.RFC3339),
	}

	var workers map[string]any
	if err := c.getJSON(ctx, "/api/config/gstate/workers", &workers); err != nil {
		log.Printf("Failed to fetch workers info: %v", err)
	} else {
		info["workers"] = workers
		info["lifetime_hours"] = workers["lifetimehrs"]
		info["start_time"] = workers["starttime"]
	}

	var network map[string]any
	if err := c.getJSON(ctx, "/api/device/netinfo", &network); err != nil {
		log.Printf("Failed to fetch network info: %v", err)
	} else {
		info["network"] = network
	}

	var timeInfo map[string]any
	if err := c.getJSON(ctx, "/api/device/gettimeinfo", &timeInfo); err != nil {
		log.Printf("Failed to fetch time info: %v", err)
	} else {
		info["time_info"] = timeInfo
	}

	var cloud map[string]any
	if err := c.getJSON(ctx, "/api/config/gstate/cloud", &cloud); err != nil {
		log.Printf("Failed to fetch cloud status: %v", err)
	} else {
		info["cloud"] = cloud
	}

	var about map[string]any
	if err := c.getJSON(ctx, "/api/config/gstate/hidden/about", &about); err != nil {
		log.Printf("Failed to fetch about info: %v", err)
	} else {
		info["about"] = about
	}

	return info
}

// HealthCheck reports whether the device answers at all.
func (c *Client) HealthCheck(ctx context.Context) bool {
	_, err := c.LatestState(ctx)
	return err == nil
}

// Heartbeat classifies device reachability from the time since the last
// successful contact: healthy under 30s, degraded under 120s, offline after.
func (c *Client) Heartbeat() HeartbeatStatus {
	c.mu.Lock()
	lastContact := c.lastContact
	lastError := c.lastError
	c.mu.Unlock()

	if lastContact.IsZero() {
		return HeartbeatStatus{Status: "unknown", Error: lastError}
	}

	since := time.Since(lastContact)
	status := "healthy"
	switch {
	case since >= heartbeatOfflineAfter:
		status = "offline"
	case since >= heartbeatDegradedAfter:
		status = "degraded"
	}

	contact := lastContact.Format(time.RFC3339)
	seconds := int(since.Seconds())
	hb := HeartbeatStatus{
		Status:              status,
		LastContact:         &contact,
		SecondsSinceContact: &seconds,
	}
	if status != "healthy" {
		hb.Error = lastError
	}
	return hb
}
