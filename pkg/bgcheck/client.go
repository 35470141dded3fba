package bgcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrCheckFailed = errors.New("background alert check failed")

// CheckResult is the answer of the pending alert endpoint.
type CheckResult struct {
	HasAlert bool   `json:"hasAlert"`
	Message  string `json:"message,omitempty"`
}

type Querier interface {
	Check(ctx context.Context) (CheckResult, error)
}

// HTTPQuerier asks the alert endpoint whether an alert is pending.
type HTTPQuerier struct {
	httpClient *resty.Client
	url        string
}

func NewHTTPQuerier(url string) *HTTPQuerier {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json")
	return &HTTPQuerier{httpClient: client, url: url}
}

func (q *HTTPQuerier) Check(ctx context.Context) (CheckResult, error) {
	var result CheckResult
	resp, err := q.httpClient.R().
		SetContext(ctx).
		SetHeader("Cache-Control", "no-cache").
		SetResult(&result).
		Get(q.url)
	if err != nil {
		return CheckResult{}, fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}
	if !resp.IsSuccess() {
		return CheckResult{}, fmt.Errorf("%w: http %d", ErrCheckFailed, resp.StatusCode())
	}
	return result, nil
}
