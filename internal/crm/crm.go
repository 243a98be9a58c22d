// Package crm looks up account-owner metadata from the CRM's REST query API.
// The lookup enriches the churn report only; the windowing core never
// depends on it.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// OwnerLookup is the collaborator interface the prediction stage consumes.
type OwnerLookup interface {
	AccountOwners(ctx context.Context) (map[string]string, error)
}

// Config locates the CRM query API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client queries the CRM over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

type queryResponse struct {
	Records []record `json:"records"`
}

type record struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	ClientCode  string `json:"Code_client"`
	OwnerUserID string `json:"Interlocuteur_referent"`
}

// AccountOwners bulk-fetches (client code -> owner name) pairs: one query
// for users, one for accounts, joined in memory on the owner's user ID.
func (c *Client) AccountOwners(ctx context.Context) (map[string]string, error) {
	users, err := c.query(ctx, "SELECT Id, Name FROM User")
	if err != nil {
		return nil, fmt.Errorf("crm users: %w", err)
	}
	accounts, err := c.query(ctx, "SELECT Code_client, Interlocuteur_referent FROM Account")
	if err != nil {
		return nil, fmt.Errorf("crm accounts: %w", err)
	}

	names := make(map[string]string, len(users))
	for _, user := range users {
		if user.ID != "" {
			names[user.ID] = user.Name
		}
	}

	owners := make(map[string]string, len(accounts))
	for _, account := range accounts {
		if account.ClientCode == "" {
			continue
		}
		if name, ok := names[account.OwnerUserID]; ok {
			owners[account.ClientCode] = name
		}
	}
	return owners, nil
}

func (c *Client) query(ctx context.Context, soql string) ([]record, error) {
	endpoint := fmt.Sprintf("%s/query?q=%s", c.cfg.BaseURL, url.QueryEscape(soql))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("crm query status %d: %s", resp.StatusCode, string(body))
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode crm response: %w", err)
	}
	return parsed.Records, nil
}
