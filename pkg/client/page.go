package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sternrassler/lazylist/pkg/pagination"
)

// RawPage is one page as served, with items left undecoded.
type RawPage struct {
	Items json.RawMessage
	Total int
}

// envelope is the wire format of a page: {"items": [...], "total": N}.
type envelope struct {
	Items json.RawMessage `json:"items"`
	Total *int            `json:"total"`
}

// decodePage parses a page body. The total falls back to HeaderTotalCount
// when the body does not carry one.
func decodePage(body []byte, headers http.Header) (*RawPage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	if len(env.Items) == 0 || string(env.Items) == "null" {
		env.Items = json.RawMessage("[]")
	}

	page := &RawPage{Items: env.Items}
	switch {
	case env.Total != nil:
		page.Total = *env.Total
	case headers.Get(HeaderTotalCount) != "":
		total, err := strconv.Atoi(headers.Get(HeaderTotalCount))
		if err != nil {
			return nil, fmt.Errorf("%w: %s header: %v", ErrMalformedPage, HeaderTotalCount, err)
		}
		page.Total = total
	default:
		return nil, fmt.Errorf("%w: no total in body or %s header", ErrMalformedPage, HeaderTotalCount)
	}

	if page.Total < 0 {
		return nil, fmt.Errorf("%w: negative total %d", ErrMalformedPage, page.Total)
	}
	return page, nil
}

// PageSource adapts c to a pagination.FetchPageFunc that requests limit
// items of endpoint per page and decodes them into T.
func PageSource[T any](c *Client, endpoint string, limit int) pagination.FetchPageFunc[T] {
	return func(ctx context.Context, offset int) (pagination.Page[T], error) {
		raw, err := c.FetchPage(ctx, endpoint, offset, limit)
		if err != nil {
			return pagination.Page[T]{}, err
		}

		var items []T
		if err := json.Unmarshal(raw.Items, &items); err != nil {
			return pagination.Page[T]{}, fmt.Errorf("%w: decode items: %v", ErrMalformedPage, err)
		}
		return pagination.Page[T]{Items: items, Total: raw.Total}, nil
	}
}
