package loki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPushEventJSONDerivesLabels(t *testing.T) {
	var got PushRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	line := `{"userId":"7","eventType":"authz_denied","source":"gate","createdAt":"2026-09-01T10:00:00Z"}`
	if err := PushEventJSON(context.Background(), srv.URL, []byte(line)); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}

	if gotPath != "/loki/api/v1/push" {
		t.Errorf("path = %q", gotPath)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d", len(got.Streams))
	}
	s := got.Streams[0]
	if s.Stream["job"] != "console-auth" || s.Stream["event_type"] != "authz_denied" || s.Stream["user_id"] != "7" {
		t.Errorf("labels = %v", s.Stream)
	}
	if len(s.Values) != 1 || s.Values[0][0] != "1788256800000000000" {
		t.Errorf("values = %v", s.Values)
	}
	if s.Values[0][1] != line {
		t.Error("raw line must be pushed unchanged")
	}
}

func TestPushEventJSONUnparseableLineStillPushed(t *testing.T) {
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := PushEventJSON(context.Background(), srv.URL, []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if got.Streams[0].Stream["job"] != "console-auth" {
		t.Errorf("labels = %v", got.Streams[0].Stream)
	}
	if got.Streams[0].Values[0][1] != "not json" {
		t.Error("raw line must survive parse failure")
	}
}

func TestPushEventSanitizesLabelValues(t *testing.T) {
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := PushEvent(context.Background(), srv.URL, time.Now(), "line",
		map[string]string{"source": "gate middleware!"})
	if err != nil {
		t.Fatalf("PushEvent: %v", err)
	}
	if got.Streams[0].Stream["source"] != "gate_middleware_" {
		t.Errorf("source label = %q", got.Streams[0].Stream["source"])
	}
}

func TestPushEventRejectsEmptyURLAndServerError(t *testing.T) {
	if err := PushEvent(context.Background(), "", time.Now(), "line", nil); err == nil {
		t.Error("empty base URL must error")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ingester down", http.StatusInternalServerError)
	}))
	defer srv.Close()
	if err := PushEvent(context.Background(), srv.URL, time.Now(), "line", nil); err == nil {
		t.Error("non-2xx must error")
	}
}
