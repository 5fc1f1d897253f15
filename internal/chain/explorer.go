package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TokenTransfer is one historical token transfer as reported by the explorer.
type TokenTransfer struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TimeStamp       string `json:"timeStamp"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  []TokenTransfer `json:"result"`
}

// Explorer queries a block-explorer REST API for historical token transfers.
type Explorer struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewExplorer creates an explorer client.
func NewExplorer(baseURL, apiKey string) *Explorer {
	return &Explorer{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// TokenTransferHistory returns token transfers to or from an address,
// filtered by contract, newest first as provided by the upstream API.
func (e *Explorer) TokenTransferHistory(ctx context.Context, address, contract string) ([]TokenTransfer, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "tokentx")
	q.Set("address", address)
	q.Set("contractaddress", contract)
	q.Set("sort", "desc")
	if e.apiKey != "" {
		q.Set("apikey", e.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build explorer request: %w", err)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned %d", resp.StatusCode)
	}

	var body explorerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}
	// Status "0" with message "No transactions found" is an empty result,
	// not an error.
	if body.Status != "1" && len(body.Result) > 0 {
		return nil, fmt.Errorf("explorer error: %s", body.Message)
	}
	return body.Result, nil
}

// TokenTransferHistory proxies to the embedded explorer client.
func (c *Client) TokenTransferHistory(ctx context.Context, address, contract string) ([]TokenTransfer, error) {
	return c.explorer.TokenTransferHistory(ctx, address, contract)
}
