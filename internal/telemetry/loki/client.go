// Package loki pushes telemetry event lines to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // each entry is [timestamp_ns, log_line]
}

// Loki label names must match [a-zA-Z_:][a-zA-Z0-9_:]*; values are sanitized
// to avoid problematic characters too.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// eventFields extracts only the Event fields used for labels and the timestamp.
type eventFields struct {
	EventType string    `json:"eventType"`
	Source    string    `json:"source"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PushEventJSON parses a telemetry event (a Kafka message value), derives the
// stream labels and timestamp, and pushes the raw line to Loki. When parsing
// fails the raw line is still pushed with the current time and no labels.
func PushEventJSON(ctx context.Context, baseURL string, rawJSON []byte) error {
	labels := map[string]string{}
	ts := time.Now().UTC()
	var fields eventFields
	if err := json.Unmarshal(rawJSON, &fields); err == nil {
		if fields.EventType != "" {
			labels["event_type"] = fields.EventType
		}
		if fields.Source != "" {
			labels["source"] = fields.Source
		}
		if fields.UserID != "" {
			labels["user_id"] = fields.UserID
		}
		if !fields.CreatedAt.IsZero() {
			ts = fields.CreatedAt
		}
	}
	return PushEvent(ctx, baseURL, ts, string(rawJSON), labels)
}

// PushEvent sends a single log line to Loki at baseURL (e.g.
// http://localhost:3100). Returns an error if the request fails or Loki
// answers non-2xx.
func PushEvent(ctx context.Context, baseURL string, timestamp time.Time, line string, labels map[string]string) error {
	if baseURL == "" {
		return fmt.Errorf("loki: base URL is empty")
	}
	streamLabels := map[string]string{"job": "console-auth"}
	for k, v := range labels {
		if sanitized := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); sanitized != "" {
			streamLabels[k] = sanitized
		}
	}
	body, err := json.Marshal(PushRequest{
		Streams: []Stream{{
			Stream: streamLabels,
			Values: [][]string{{strconv.FormatInt(timestamp.UnixNano(), 10), line}},
		}},
	})
	if err != nil {
		return err
	}
	url := strings.TrimRight(baseURL, "/") + "/loki/api/v1/push"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
