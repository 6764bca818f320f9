package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"corechat/internal/config"

	"github.com/google/uuid"
)

// Member is a roster entry the team/org service vouches for.
type Member struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Resolver validates candidate user ids against the external team roster.
// Ids the roster does not know are silently excluded, never an error.
type Resolver interface {
	ResolveMembers(ctx context.Context, teamID uuid.UUID, candidateIDs []uuid.UUID) ([]Member, error)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.RosterConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

var _ Resolver = (*Client)(nil)

func (c *Client) ResolveMembers(ctx context.Context, teamID uuid.UUID, candidateIDs []uuid.UUID) ([]Member, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidateIDs))
	for i, id := range candidateIDs {
		ids[i] = id.String()
	}
	endpoint := fmt.Sprintf("%s/teams/%s/members/resolve?ids=%s",
		c.baseURL, teamID, url.QueryEscape(strings.Join(ids, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build roster request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster service returned %d", resp.StatusCode)
	}

	var body struct {
		Members []Member `json:"members"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode roster response: %w", err)
	}
	return body.Members, nil
}
