package client

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strconv"

	"github.com/yarasp/yarasp-go/internal/http"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// page is one fetched response body.
type page struct {
	body       []byte
	fromCache  bool
	pagination yarasp.Pagination
	items      []json.RawMessage
}

// Get implements yarasp.EndpointClient.Get.
func (c *Client) Get(ctx context.Context, endpoint yarasp.Endpoint, params url.Values, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	if c.closed.Load() {
		return nil, yarasp.ErrClientClosed
	}

	spec, ok := yarasp.LookupEndpoint(endpoint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", yarasp.ErrUnknownEndpoint, endpoint)
	}

	options := yarasp.ApplyCallOptions(opts...)
	if c.config.CacheOnly {
		options.CacheOnly = true
	}

	// Caller supplied keys are dropped; the configured key is added only to
	// the outgoing request.
	query := yarasp.StripAPIKey(params)

	var (
		result *yarasp.Result
		err    error
	)

	if spec.Paginated && !options.NoPaginate {
		result, err = c.paginate(ctx, spec, query, options)
	} else {
		result, err = c.single(ctx, spec, query, options)
	}

	if err != nil {
		return nil, err
	}

	c.lastFromCache.Store(result.FromCache)

	return result, nil
}

func (c *Client) single(ctx context.Context, spec yarasp.EndpointSpec, query url.Values, options yarasp.CallOptions) (*yarasp.Result, error) {
	p, err := c.fetch(ctx, spec, query, options)
	if err != nil {
		return nil, err
	}

	result := &yarasp.Result{
		Endpoint:  spec.Name,
		Data:      p.body,
		Items:     p.items,
		Pages:     1,
		FromCache: p.fromCache,
	}
	if !p.fromCache {
		result.LiveRequests = 1
	}

	return result, nil
}

// paginate walks offset pages until offset+limit reaches the reported total
// and concatenates the endpoint's result items. Each live page passes the
// gate and is counted on its own.
func (c *Client) paginate(ctx context.Context, spec yarasp.EndpointSpec, query url.Values, options yarasp.CallOptions) (*yarasp.Result, error) {
	limit := options.PageLimit
	if limit <= 0 {
		limit = c.config.PageLimit
	}

	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", "0")

	first, err := c.fetch(ctx, spec, query, options)
	if err != nil {
		return nil, err
	}

	result := &yarasp.Result{
		Endpoint:  spec.Name,
		Data:      first.body,
		Items:     first.items,
		Pages:     1,
		FromCache: first.fromCache,
	}
	if !first.fromCache {
		result.LiveRequests++
	}

	offset := first.pagination.Offset
	total := first.pagination.Total

	for offset+limit < total {
		offset += limit
		query.Set("offset", strconv.Itoa(offset))

		next, err := c.fetch(ctx, spec, query, options)
		if err != nil {
			return nil, fmt.Errorf("fetching %s page at offset %d: %w", spec.Name, offset, err)
		}

		result.Items = append(result.Items, next.items...)
		result.Pages++

		if !next.fromCache {
			result.FromCache = false
			result.LiveRequests++
		}
	}

	if result.Items == nil {
		result.Items = []json.RawMessage{}
	}

	return result, nil
}

// fetch serves one page from cache or, when allowed, from the API. Only a
// successful live response is counted and cached.
func (c *Client) fetch(ctx context.Context, spec yarasp.EndpointSpec, query url.Values, options yarasp.CallOptions) (*page, error) {
	path := "/" + string(spec.Name) + "/"
	key := c.cache.GetCacheKey(nethttp.MethodGet, path, query)

	req := &yarasp.Request{
		Method:   nethttp.MethodGet,
		Endpoint: spec.Name,
		Path:     path,
		Query:    cloneValues(query),
		Headers:  make(nethttp.Header),
		Metadata: make(map[string]interface{}),
	}

	if !options.ForceLive {
		entry, err := c.cache.GetEntry(ctx, key)
		if err == nil {
			err = c.chain.ExecuteResponseInterceptors(ctx, req, &yarasp.Response{
				StatusCode: entry.StatusCode,
				Body:       entry.Data,
				URL:        entry.URL,
				FromCache:  true,
			})
			if err != nil {
				return nil, err
			}

			return parsePage(spec, entry.Data, true), nil
		}
	}

	if options.CacheOnly {
		return nil, &yarasp.CacheMissError{Endpoint: string(spec.Name)}
	}

	reservation, err := c.gate.Reserve(ctx, c.gate.Today())
	if err != nil {
		return nil, err
	}

	defer reservation.Release()

	err = c.chain.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(ctx, &http.Request{
		Path:    req.Path,
		Query:   req.Query,
		Headers: flattenHeaders(req.Headers),
	})

	intercepted := &yarasp.Response{Error: err}
	if resp != nil {
		intercepted.StatusCode = resp.StatusCode
		intercepted.Headers = resp.Headers
		intercepted.Body = resp.Body
		intercepted.URL = resp.URL
	}

	interceptErr := c.chain.ExecuteResponseInterceptors(ctx, req, intercepted)

	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", spec.Name, err)
	}

	_, err = reservation.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("recording live request: %w", err)
	}

	if interceptErr != nil {
		return nil, interceptErr
	}

	if !json.Valid(resp.Body) {
		c.logger.Error("Failed to decode JSON", map[string]interface{}{
			"endpoint": string(spec.Name),
			"url":      resp.URL,
		})

		return nil, &yarasp.DecodeError{Raw: string(resp.Body), Err: fmt.Errorf("invalid JSON from %s", resp.URL)}
	}

	if c.policy.ShouldCache(nethttp.MethodGet, path, resp.StatusCode) {
		err = c.cache.SetEntry(ctx, key, &yarasp.CacheEntry{
			Data:       resp.Body,
			StatusCode: resp.StatusCode,
			URL:        resp.URL,
			ETag:       resp.Headers.Get("ETag"),
		}, 0)
		if err != nil {
			c.logger.Warn("Failed to store response in cache", map[string]interface{}{
				"endpoint": string(spec.Name),
				"error":    err.Error(),
			})
		}
	}

	return parsePage(spec, resp.Body, false), nil
}

// parsePage extracts the paging block and result items. Bodies that are not
// JSON objects yield no items.
func parsePage(spec yarasp.EndpointSpec, body []byte, fromCache bool) *page {
	p := &page{body: body, fromCache: fromCache}

	if spec.ResultKey == "" {
		return p
	}

	var envelope map[string]json.RawMessage

	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return p
	}

	if raw, ok := envelope["pagination"]; ok {
		_ = json.Unmarshal(raw, &p.pagination)
	}

	if raw, ok := envelope[spec.ResultKey]; ok {
		_ = json.Unmarshal(raw, &p.items)
	}

	return p
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		out[key] = append([]string(nil), vals...)
	}

	return out
}

func flattenHeaders(headers nethttp.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	out := make(map[string]string, len(headers))
	for key := range headers {
		out[key] = headers.Get(key)
	}

	return out
}
