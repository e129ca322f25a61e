package ownership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StaffAssignment is one roster entry for an outlet.
type StaffAssignment struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username,omitempty"`
}

// OutletAssignment is one outlet a user is rostered to.
type OutletAssignment struct {
	OutletID int64  `json:"outletId"`
	Name     string `json:"name,omitempty"`
}

// RosterClient fetches outlet staffing assignments from the external
// outlet/roster service. The service is best-effort: callers must treat
// every error as deny, never as allow and never as a crash.
type RosterClient interface {
	// OutletStaff returns the staff roster of an outlet.
	OutletStaff(ctx context.Context, outletID int64) ([]StaffAssignment, error)

	// UserOutlets returns the outlets a user is assigned to.
	UserOutlets(ctx context.Context, userID int64) ([]OutletAssignment, error)
}

// HTTPRosterClient talks plain HTTP+JSON to the roster service. Requests
// carry the caller's context and a bounded client timeout: this sits on the
// request hot path and must not hang or retry.
type HTTPRosterClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRosterClient creates a roster client for the given base URL.
func NewHTTPRosterClient(baseURL string, timeout time.Duration) *HTTPRosterClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPRosterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// OutletStaff fetches GET /outlets/{id}/staff.
func (c *HTTPRosterClient) OutletStaff(ctx context.Context, outletID int64) ([]StaffAssignment, error) {
	var staff []StaffAssignment
	url := fmt.Sprintf("%s/outlets/%d/staff", c.baseURL, outletID)
	if err := c.getJSON(ctx, url, &staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// UserOutlets fetches GET /outlets/user/{userId}.
func (c *HTTPRosterClient) UserOutlets(ctx context.Context, userID int64) ([]OutletAssignment, error) {
	var outlets []OutletAssignment
	url := fmt.Sprintf("%s/outlets/user/%d", c.baseURL, userID)
	if err := c.getJSON(ctx, url, &outlets); err != nil {
		return nil, err
	}
	return outlets, nil
}

func (c *HTTPRosterClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build roster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("roster request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("roster request %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode roster response %s: %w", url, err)
	}
	return nil
}
