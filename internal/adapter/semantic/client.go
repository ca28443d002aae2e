// Package semantic talks to the external semantic search service, which ranks
// listing ids by free-text similarity.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const defaultLimit = 200

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	IDs []string `json:"ids"`
}

// Client calls POST <baseURL>/search.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limit      int
	logger     *logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limit:      defaultLimit,
		logger:     log.Named("SemanticClient"),
	}
}

// Search returns candidate listing ids, best match first. Any transport or
// protocol failure is reported as domain.ErrUpstream.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	ctx, span := otel.Tracer("annonce-service/semantic").Start(ctx, "SemanticClient.Search")
	defer span.End()

	body, err := json.Marshal(searchRequest{Query: query, Limit: c.limit})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrUpstream, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Semantic search returned non-200",
			zap.Int("status", resp.StatusCode), zap.String("body", string(snippet)))
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	c.logger.Debug("Semantic search answered",
		zap.Int("candidates", len(out.IDs)), zap.Duration("took", time.Since(start)))
	if out.IDs == nil {
		return []string{}, nil
	}
	return out.IDs, nil
}
