package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Analyze_DecodesVerdict(t *testing.T) {
	var got Position
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("path = %s, want /v1/analyze", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Result{
			Seats: [2]SeatResult{
				{Territory: 12, Captures: 3},
				{Territory: 9, Captures: 3, DeadStoneAdjustment: 2},
			},
			DeadStones: 2,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	res, err := c.Analyze(context.Background(), Position{
		Mode:      "baduk",
		BoardSize: 9,
		Rows:      []string{".........", ".b.......", "....w...."},
		Komi:      6.5,
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Seats[0].Territory != 12 || res.Seats[1].DeadStoneAdjustment != 2 {
		t.Fatalf("result = %+v, want decoded seat values", res)
	}
	if got.BoardSize != 9 || got.Mode != "baduk" {
		t.Fatalf("request = %+v, want submitted position", got)
	}
}

func TestClient_Analyze_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.Analyze(context.Background(), Position{BoardSize: 9}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestClient_Analyze_ContextDeadlineHonored(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Analyze(ctx, Position{BoardSize: 9}); err == nil {
		t.Fatal("expected error once the context deadline passes")
	}
}
