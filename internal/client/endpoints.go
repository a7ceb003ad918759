package client

import (
	"context"
	"net/url"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// valuer is implemented by every typed request.
type valuer interface {
	Values() url.Values
}

func valuesOf(req valuer, isNil bool) url.Values {
	if isNil {
		return url.Values{}
	}

	return req.Values()
}

// Search implements yarasp.EndpointClient.Search.
func (c *Client) Search(ctx context.Context, req *yarasp.SearchRequest, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	return c.Get(ctx, yarasp.EndpointSearch, valuesOf(req, req == nil), opts...)
}

// Schedule implements yarasp.EndpointClient.Schedule.
func (c *Client) Schedule(ctx context.Context, req *yarasp.ScheduleRequest, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	return c.Get(ctx, yarasp.EndpointSchedule, valuesOf(req, req == nil), opts...)
}

// Thread implements yarasp.EndpointClient.Thread.
func (c *Client) Thread(ctx context.Context, req *yarasp.ThreadRequest, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	return c.Get(ctx, yarasp.EndpointThread, valuesOf(req, req == nil), opts...)
}

// NearestStations implements yarasp.EndpointClient.NearestStations.
func (c *Client) NearestStations(ctx context.Context, req *yarasp.NearestStationsRequest, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	return c.Get(ctx, yarasp.EndpointNearestStations, valuesOf(req, req == nil), opts...)
}

// NearestSettlement implements yarasp.EndpointClient.NearestSettlement.
func (c *Client) NearestSettlement(ctx context.Context, req *yarasp.NearestSettlementRequest, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	return c.Get(ctx, yarasp.EndpointNearestSettlement, valuesOf(req, req == nil), opts...)
}

// Carrier implements yarasp.EndpointClient.Carrier.
func (c *Client) Carrier(ctx context.Context, req *yarasp.CarrierRequest, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	return c.Get(ctx, yarasp.EndpointCarrier, valuesOf(req, req == nil), opts...)
}

// StationsList implements yarasp.EndpointClient.StationsList.
func (c *Client) StationsList(ctx context.Context, req *yarasp.StationsListRequest, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	return c.Get(ctx, yarasp.EndpointStationsList, valuesOf(req, req == nil), opts...)
}

// Copyright implements yarasp.EndpointClient.Copyright.
func (c *Client) Copyright(ctx context.Context, opts ...yarasp.CallOption) (*yarasp.Result, error) {
	return c.Get(ctx, yarasp.EndpointCopyright, url.Values{}, opts...)
}
