package jobtech

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spigell/marketsync/internal/jobs"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	SearchPath = "/search"

	DefaultQuery = "frontend"
	DefaultLimit = "10"
)

type SearchParams struct {
	Query string `mapstructure:"query"`
	// Limit is forwarded as-is; the upstream validates it.
	Limit string `mapstructure:"limit"`
}

func (c *Client) search(ctx context.Context, params *SearchParams) ([]jobs.Job, error) {
	q := buildParams(params)

	body, err := c.getBody(ctx, fmt.Sprintf("%s%s", c.baseURL(), SearchPath), q)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.New("decode search response: invalid json")
	}

	found := make([]jobs.Job, 0)
	if hits := gjson.GetBytes(body, "hits"); hits.IsArray() {
		for _, hit := range hits.Array() {
			found = append(found, Normalize(hit))
		}
	}

	c.logger.Debug("got response from JobTech",
		zap.String("query", q.Get("q")),
		zap.Int("jobs", len(found)),
		zap.Int64("total", gjson.GetBytes(body, "total.value").Int()),
	)

	return found, nil
}

func buildParams(params *SearchParams) url.Values {
	query, limit := DefaultQuery, DefaultLimit
	if params != nil {
		if v := strings.TrimSpace(params.Query); v != "" {
			query = v
		}
		if v := strings.TrimSpace(params.Limit); v != "" {
			limit = v
		}
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", limit)

	return q
}
