package yarasp_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

func TestLookupEndpoint(t *testing.T) {
	t.Parallel()

	spec, ok := yarasp.LookupEndpoint(yarasp.EndpointSearch)
	require.True(t, ok)
	assert.True(t, spec.Paginated)
	assert.Equal(t, "segments", spec.ResultKey)

	spec, ok = yarasp.LookupEndpoint(yarasp.EndpointNearestStations)
	require.True(t, ok)
	assert.Equal(t, "stations", spec.ResultKey)

	spec, ok = yarasp.LookupEndpoint(yarasp.EndpointThread)
	require.True(t, ok)
	assert.False(t, spec.Paginated)

	_, ok = yarasp.LookupEndpoint("timetable")
	assert.False(t, ok)

	assert.Len(t, yarasp.Endpoints(), 8)
}

func TestRequestValues(t *testing.T) {
	t.Parallel()

	search := (&yarasp.SearchRequest{From: "c213", To: "c2", Date: "2024-01-15", Transfers: true}).Values()
	assert.Equal(t, "c213", search.Get("from"))
	assert.Equal(t, "c2", search.Get("to"))
	assert.Equal(t, "2024-01-15", search.Get("date"))
	assert.Equal(t, "true", search.Get("transfers"))
	assert.False(t, search.Has("lang"))
	assert.False(t, search.Has("add_days_mask"))

	stations := (&yarasp.NearestStationsRequest{Lat: 50.440046, Lng: 40.4882367, Distance: 50}).Values()
	assert.Equal(t, "50.440046", stations.Get("lat"))
	assert.Equal(t, "40.4882367", stations.Get("lng"))
	assert.Equal(t, "50", stations.Get("distance"))

	settlement := (&yarasp.NearestSettlementRequest{Lat: 0, Lng: 0}).Values()
	assert.Equal(t, "0", settlement.Get("lat"))
	assert.False(t, settlement.Has("distance"))

	carrier := (&yarasp.CarrierRequest{Code: "SU", System: "iata"}).Values()
	assert.Equal(t, "SU", carrier.Get("code"))
	assert.Equal(t, "iata", carrier.Get("system"))

	thread := (&yarasp.ThreadRequest{UID: "038AA_tis"}).Values()
	assert.Equal(t, "038AA_tis", thread.Get("uid"))

	schedule := (&yarasp.ScheduleRequest{Station: "s9600213", Event: "departure"}).Values()
	assert.Equal(t, "departure", schedule.Get("event"))

	assert.Empty(t, (&yarasp.StationsListRequest{}).Values())
}

func TestResult_Decode(t *testing.T) {
	t.Parallel()

	result := &yarasp.Result{
		Endpoint: yarasp.EndpointSchedule,
		Data:     json.RawMessage(`{"station":{"code":"s9600213","title":"Sheremetyevo"}}`),
		Items: []json.RawMessage{
			json.RawMessage(`{"departure":"2024-01-15T10:00:00+03:00","thread":{"number":"SU 1"}}`),
			json.RawMessage(`{"departure":"2024-01-15T11:00:00+03:00","thread":{"number":"SU 2"}}`),
		},
	}

	var body struct {
		Station yarasp.Station `json:"station"`
	}

	require.NoError(t, result.Decode(&body))
	assert.Equal(t, "Sheremetyevo", body.Station.Title)

	var items []yarasp.ScheduleItem

	require.NoError(t, result.DecodeItems(&items))
	require.Len(t, items, 2)
	assert.Equal(t, "SU 2", items[1].Thread.Number)

	var none []yarasp.ScheduleItem

	require.NoError(t, (&yarasp.Result{}).DecodeItems(&none))
	assert.Empty(t, none)

	err := (&yarasp.Result{Endpoint: yarasp.EndpointThread, Data: json.RawMessage(`[`)}).Decode(&body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding thread response")
}

func TestCarrierResponse_All(t *testing.T) {
	t.Parallel()

	var single yarasp.CarrierResponse

	require.NoError(t, json.Unmarshal([]byte(`{"carrier":{"code":680,"title":"Aeroflot"}}`), &single))
	require.Len(t, single.All(), 1)
	assert.Equal(t, 680, single.All()[0].Code)

	var many yarasp.CarrierResponse

	require.NoError(t, json.Unmarshal([]byte(`{"carriers":[{"code":1},{"code":2}]}`), &many))
	assert.Len(t, many.All(), 2)
}

func TestStationsList_StationCount(t *testing.T) {
	t.Parallel()

	list := yarasp.StationsList{Countries: []yarasp.Country{{
		Regions: []yarasp.Region{{
			Settlements: []yarasp.SettlementEntry{
				{Stations: []yarasp.Station{{Code: "s1"}, {Code: "s2"}}},
				{Stations: []yarasp.Station{{Code: "s3"}}},
			},
		}},
	}}}

	assert.Equal(t, 3, list.StationCount())
	assert.Equal(t, 0, (&yarasp.StationsList{}).StationCount())
}

func TestApplyCallOptions(t *testing.T) {
	t.Parallel()

	options := yarasp.ApplyCallOptions(yarasp.WithForceLive(), yarasp.WithPageLimit(25), nil)
	assert.True(t, options.ForceLive)
	assert.Equal(t, 25, options.PageLimit)
	assert.False(t, options.CacheOnly)
	assert.False(t, options.NoPaginate)

	options = yarasp.ApplyCallOptions(yarasp.WithCacheOnly(), yarasp.WithoutPagination())
	assert.True(t, options.CacheOnly)
	assert.True(t, options.NoPaginate)
}
