// Package httpapi implements authority.Authority against the guild web API.
//
// Routes and payloads follow the guild web server: both endpoints take the
// reward quality as the type query parameter, and the spin result carries
// Go field names as keys while its nested records use snake_case.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/wheel"
)

const (
	eligiblePath = "/api/distribution/eligible"
	spinPath     = "/api/distribution/spin"

	// maxBodyBytes caps how much of a response is read
	maxBodyBytes = 1 << 20
)

// Client implements authority.Authority over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// envelope is the response wrapper every endpoint uses
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type member struct {
	DiscordID   string `json:"discord_id"`
	Username    string `json:"username"`
	Rank        string `json:"rank"`
	DaysInGuild int    `json:"days_in_guild"`
	IsOfficer   bool   `json:"is_officer"`
}

type linkHistory struct {
	LinkID         string    `json:"link_id"`
	DateReceived   time.Time `json:"date_received"`
	IsCompensation bool      `json:"is_compensation"`
}

type listStatus struct {
	ListType          string    `json:"list_type"`
	EligibleCount     int       `json:"eligible_count"`
	CompletedCount    int       `json:"completed_count"`
	InactiveCount     int       `json:"inactive_count"`
	CompensationCount int       `json:"compensation_count"`
	CurrentCycleStart time.Time `json:"current_cycle_start"`
	IsComplete        bool      `json:"is_complete"`
}

// spinData mirrors the server's untagged winner result
type spinData struct {
	Winner         *member      `json:"Winner"`
	LinkHistory    *linkHistory `json:"LinkHistory"`
	IsCompensation bool         `json:"IsCompensation"`
	ListStatus     *listStatus  `json:"ListStatus"`
}

func (m member) candidate() wheel.Candidate {
	meta := map[string]string{
		"rank":          m.Rank,
		"days_in_guild": strconv.Itoa(m.DaysInGuild),
	}
	if m.IsOfficer {
		meta["officer"] = "true"
	}
	return wheel.Candidate{ID: m.DiscordID, Label: m.Username, Meta: meta}
}

// ListEligible fetches the members eligible for the criteria's quality, in
// server order. Members retired by absences are left off.
func (c *Client) ListEligible(ctx context.Context, crit authority.Criteria) (wheel.CandidateSet, error) {
	q := url.Values{"type": {string(crit.Quality)}, "active_only": {"true"}}
	data, err := c.call(ctx, http.MethodGet, eligiblePath, q)
	if err != nil {
		return wheel.CandidateSet{}, err
	}

	var members []member
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &members); err != nil {
			return wheel.CandidateSet{}, fmt.Errorf("%w: decode members: %w", authority.ErrRejected, err)
		}
	}

	items := make([]wheel.Candidate, 0, len(members))
	for _, m := range members {
		items = append(items, m.candidate())
	}
	set, err := wheel.NewCandidateSet(items)
	if err != nil {
		return wheel.CandidateSet{}, fmt.Errorf("%w: %w", authority.ErrRejected, err)
	}
	return set, nil
}

// PickWinner asks the server to draw and record a winner
func (c *Client) PickWinner(ctx context.Context, crit authority.Criteria) (authority.Result, error) {
	q := url.Values{"type": {string(crit.Quality)}}
	data, err := c.call(ctx, http.MethodPost, spinPath, q)
	if err != nil {
		return authority.Result{}, err
	}

	var pd spinData
	if err := json.Unmarshal(data, &pd); err != nil {
		return authority.Result{}, fmt.Errorf("%w: decode winner: %w", authority.ErrRejected, err)
	}
	if pd.Winner == nil || pd.Winner.DiscordID == "" {
		return authority.Result{}, fmt.Errorf("%w: response has no winner", authority.ErrRejected)
	}

	reward := authority.Reward{
		Quality:      crit.Quality,
		Compensation: pd.IsCompensation,
	}
	if pd.LinkHistory != nil {
		reward.HistoryID = pd.LinkHistory.LinkID
		reward.AwardedAt = pd.LinkHistory.DateReceived
	}
	if s := pd.ListStatus; s != nil {
		reward.Status = authority.PoolStatus{
			Quality:           authority.Quality(s.ListType),
			EligibleCount:     s.EligibleCount,
			CompletedCount:    s.CompletedCount,
			InactiveCount:     s.InactiveCount,
			CompensationCount: s.CompensationCount,
			CycleStart:        s.CurrentCycleStart,
			Reset:             s.IsComplete,
		}
	}

	c.logger.InfoContext(ctx, "winner picked",
		"quality", crit.Quality,
		"winner", pd.Winner.DiscordID,
		"compensation", pd.IsCompensation,
	)

	return authority.Result{
		WinnerID: pd.Winner.DiscordID,
		Winner:   pd.Winner.candidate(),
		Reward:   reward,
	}, nil
}

// call performs one request and unwraps the envelope, mapping every failure
// onto an authority sentinel
func (c *Client) call(ctx context.Context, method, path string, q url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", authority.ErrUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http call: %w", authority.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", authority.ErrUnreachable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: upstream status %d", authority.ErrUnreachable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%w: upstream status %d", authority.ErrRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: decode envelope: %w", authority.ErrRejected, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		c.logger.WarnContext(ctx, "authority refused request",
			"path", path,
			"status", resp.StatusCode,
			"error", env.Error,
		)
		return nil, classifyRefusal(resp.StatusCode, env.Error)
	}
	return env.Data, nil
}

// classifyRefusal maps a server-side error message onto a sentinel
func classifyRefusal(status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	if strings.Contains(strings.ToLower(msg), "no eligible") {
		return fmt.Errorf("%w: %s", authority.ErrNoEligibleCandidates, msg)
	}
	return fmt.Errorf("%w: %s", authority.ErrRejected, msg)
}

// Compile-time check
var _ authority.Authority = (*Client)(nil)

