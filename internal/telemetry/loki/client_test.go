package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"social-auth/backend/internal/telemetry"
)

func capture(t *testing.T, status int) (*Client, *[]PushRequest) {
	t.Helper()
	var got []PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body PushRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		got = append(got, body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, &got
}

func TestNewClient_EmptyURL(t *testing.T) {
	if _, err := NewClient("  ", nil); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestPushEventJSON_LabelsAndTimestamp(t *testing.T) {
	c, got := capture(t, http.StatusNoContent)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := telemetry.MarshalEvent(&telemetry.Event{
		UserID:    "u1",
		EventType: telemetry.EventTokenReplayDetected,
		Source:    "auth",
		Severity:  telemetry.SeverityWarn,
		CreatedAt: created,
	}, time.Now())
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}

	if err := c.PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if len(*got) != 1 || len((*got)[0].Streams) != 1 {
		t.Fatalf("pushes = %+v", *got)
	}
	s := (*got)[0].Streams[0]
	if s.Stream["job"] != Job || s.Stream["event_type"] != telemetry.EventTokenReplayDetected ||
		s.Stream["source"] != "auth" || s.Stream["severity"] != "warn" {
		t.Errorf("labels = %v", s.Stream)
	}
	if _, ok := s.Stream["user_id"]; ok {
		t.Error("user id must not become a label")
	}
	if s.Values[0][0] != "1772366400000000000" {
		t.Errorf("timestamp = %s, want event time in ns", s.Values[0][0])
	}
	if s.Values[0][1] != string(raw) {
		t.Errorf("line = %s, want raw event", s.Values[0][1])
	}
}

func TestPushEventJSON_UndecodableLine(t *testing.T) {
	c, got := capture(t, http.StatusNoContent)
	if err := c.PushEventJSON(context.Background(), []byte("plain text")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	s := (*got)[0].Streams[0]
	if len(s.Stream) != 1 || s.Stream["job"] != Job {
		t.Errorf("labels = %v, want only job", s.Stream)
	}
	if s.Values[0][1] != "plain text" {
		t.Errorf("line = %q", s.Values[0][1])
	}
}

func TestPush_SanitizesLabels(t *testing.T) {
	c, got := capture(t, http.StatusOK)
	err := c.Push(context.Background(), time.Unix(0, 5), "x", map[string]string{"source": " auth/v1 ", "empty": " "})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	s := (*got)[0].Streams[0]
	if s.Stream["source"] != "auth_v1" {
		t.Errorf("source = %q, want auth_v1", s.Stream["source"])
	}
	if _, ok := s.Stream["empty"]; ok {
		t.Error("blank label should be dropped")
	}
	if s.Values[0][0] != "5" {
		t.Errorf("timestamp = %s, want 5", s.Values[0][0])
	}
}

func TestPush_Non2xx(t *testing.T) {
	c, _ := capture(t, http.StatusBadRequest)
	if err := c.Push(context.Background(), time.Now(), "x", nil); err == nil {
		t.Error("expected error for 400 response")
	}
}
