package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smartCart/business/recommend"
	"smartCart/pkg/metrics"
)

const maxResponseBytes = 1 << 20

// Client asks an external ranking service for a preferred candidate order.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

var _ recommend.Reranker = (*Client)(nil)

// NewClient returns nil when baseURL is empty so re-ranking stays disabled.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout + time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type rerankRequest struct {
	UserID     uint                   `json:"user_id"`
	Candidates []recommend.RerankItem `json:"candidates"`
}

type rerankResponse struct {
	ProductIDs []uint64 `json:"product_ids"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

// Rerank posts the candidates to /rerank and returns the ids in the order the
// service prefers. Filtering of unknown ids is left to the caller.
func (c *Client) Rerank(ctx context.Context, userID uint, items []recommend.RerankItem) ([]uint64, error) {
	body, err := json.Marshal(rerankRequest{UserID: userID, Candidates: items})
	if err != nil {
		return nil, fmt.Errorf("reranker: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("reranker: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	ids, err := c.do(httpReq)
	metrics.ObserveNetworkRequest("reranker", "rerank", start, err)
	return ids, err
}

func (c *Client) do(req *http.Request) ([]uint64, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reranker: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reranker: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("reranker: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("reranker: unexpected status %d", resp.StatusCode)
	}

	var out rerankResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("reranker: decode response: %w", err)
	}
	return out.ProductIDs, nil
}
