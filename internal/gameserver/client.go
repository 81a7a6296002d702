package gameserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Dynamic mirrors the fields we read from the server's dynamic endpoint.
// sv_maxclients arrives as a JSON string.
type Dynamic struct {
	Hostname   string `json:"hostname"`
	Gametype   string `json:"gametype"`
	Mapname    string `json:"mapname"`
	Clients    int    `json:"clients"`
	MaxClients string `json:"sv_maxclients"`
}

// OnlinePlayer is one entry from the server's player list endpoint.
type OnlinePlayer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Ping int    `json:"ping"`
}

// Client queries the game server's HTTP status endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a status client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid game server url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: parsed.Scheme + "://" + parsed.Host,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Dynamic fetches the live server metadata document.
func (c *Client) Dynamic(ctx context.Context) (*Dynamic, error) {
	var dyn Dynamic
	if err := c.getJSON(ctx, "/dynamic.json", &dyn); err != nil {
		return nil, err
	}
	return &dyn, nil
}

// Players fetches the currently connected player list.
func (c *Client) Players(ctx context.Context) ([]OnlinePlayer, error) {
	var players []OnlinePlayer
	if err := c.getJSON(ctx, "/players.json", &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("game server unreachable: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("game server responded %d for %s", res.StatusCode, path)
	}
	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
