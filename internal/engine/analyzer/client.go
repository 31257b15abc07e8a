// Package analyzer talks to the external board analyzer over HTTP JSON.
//
// The analyzer receives the frozen terminal position plus the move list and
// returns a per-seat breakdown with dead-stone adjudication. Callers treat
// every failure as transient; the scoring pipeline owns the fallback chain.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// Position is the frozen board submitted for analysis. Rows encode one
// character per cell: '.' empty, 'b' black, 'w' white.
type Position struct {
	Mode      string   `json:"mode"`
	BoardSize int      `json:"board_size"`
	Rows      []string `json:"rows"`
	Moves     []Move   `json:"moves"`
	Komi      float64  `json:"komi"`
}

// Move is one history entry in analyzer wire form.
type Move struct {
	Seat int    `json:"seat"`
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// SeatResult is one seat's share of the analyzer verdict.
type SeatResult struct {
	Territory           int `json:"territory"`
	Captures            int `json:"captures"`
	DeadStoneAdjustment int `json:"dead_stone_adjustment"`
	ModeBonuses         int `json:"mode_bonuses"`
}

// Result is the analyzer verdict for a submitted position.
type Result struct {
	Seats      [2]SeatResult `json:"seats"`
	DeadStones int           `json:"dead_stones"`
}

// Client is the HTTP analyzer client.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client against baseURL. The timeout bounds one full
// request/response cycle; the scoring pipeline layers its own context
// deadline on top.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Analyze submits the position and decodes the verdict.
func (c *Client) Analyze(ctx context.Context, pos Position) (Result, error) {
	body, err := json.Marshal(pos)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeScoringAnalyzerFailed, "encode analyzer request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeScoringAnalyzerFailed, "build analyzer request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeScoringAnalyzerFailed, "analyzer unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return Result{}, apperrors.WithMetadata(apperrors.CodeScoringAnalyzerFailed,
			"analyzer rejected position",
			map[string]string{"status": fmt.Sprintf("%d", resp.StatusCode)})
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeScoringAnalyzerFailed, "decode analyzer response", err)
	}
	return out, nil
}
