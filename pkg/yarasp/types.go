package yarasp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Endpoint names an API method, e.g. "search" or "schedule".
type Endpoint string

const (
	EndpointSearch            Endpoint = "search"
	EndpointSchedule          Endpoint = "schedule"
	EndpointThread            Endpoint = "thread"
	EndpointNearestStations   Endpoint = "nearest_stations"
	EndpointNearestSettlement Endpoint = "nearest_settlement"
	EndpointCarrier           Endpoint = "carrier"
	EndpointStationsList      Endpoint = "stations_list"
	EndpointCopyright         Endpoint = "copyright"
)

// EndpointSpec describes how responses of an endpoint are collected.
type EndpointSpec struct {
	Name      Endpoint
	Paginated bool
	// ResultKey is the array aggregated across pages.
	ResultKey string
}

var endpointSpecs = []EndpointSpec{
	{Name: EndpointSearch, Paginated: true, ResultKey: "segments"},
	{Name: EndpointSchedule, Paginated: true, ResultKey: "schedule"},
	{Name: EndpointNearestStations, Paginated: true, ResultKey: "stations"},
	{Name: EndpointThread},
	{Name: EndpointNearestSettlement},
	{Name: EndpointCarrier},
	{Name: EndpointStationsList},
	{Name: EndpointCopyright},
}

// Endpoints returns every known endpoint in a stable order.
func Endpoints() []EndpointSpec {
	out := make([]EndpointSpec, len(endpointSpecs))
	copy(out, endpointSpecs)

	return out
}

// LookupEndpoint returns the spec for name.
func LookupEndpoint(name Endpoint) (EndpointSpec, bool) {
	for _, spec := range endpointSpecs {
		if spec.Name == name {
			return spec, true
		}
	}

	return EndpointSpec{}, false
}

// Pagination is the paging block returned by paginated endpoints.
type Pagination struct {
	Total  int `json:"total"  yaml:"total"`
	Limit  int `json:"limit"  yaml:"limit"`
	Offset int `json:"offset" yaml:"offset"`
}

// Result is the outcome of one logical API call.
type Result struct {
	Endpoint Endpoint `json:"endpoint"   yaml:"endpoint"`
	// Data is the raw body of the response, or of the first page when the
	// endpoint is paginated.
	Data json.RawMessage `json:"data"       yaml:"-"`
	// Items holds the aggregated ResultKey entries across all pages.
	Items []json.RawMessage `json:"items,omitempty" yaml:"-"`
	Pages int               `json:"pages"      yaml:"pages"`
	// FromCache is true when no page required a live request.
	FromCache    bool `json:"from_cache"    yaml:"from_cache"`
	LiveRequests int  `json:"live_requests" yaml:"live_requests"`
}

// Decode unmarshals Data into v.
func (r *Result) Decode(v interface{}) error {
	err := json.Unmarshal(r.Data, v)
	if err != nil {
		return fmt.Errorf("decoding %s response: %w", r.Endpoint, err)
	}

	return nil
}

// DecodeItems unmarshals the aggregated items into v, which must point to a slice.
func (r *Result) DecodeItems(v interface{}) error {
	items := r.Items
	if items == nil {
		items = []json.RawMessage{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %s items: %w", r.Endpoint, err)
	}

	err = json.Unmarshal(raw, v)
	if err != nil {
		return fmt.Errorf("decoding %s items: %w", r.Endpoint, err)
	}

	return nil
}

// Codes holds the external identifiers of a station or settlement.
type Codes struct {
	Yandex  string `json:"yandex_code,omitempty"  yaml:"yandex_code,omitempty"`
	ESR     string `json:"esr_code,omitempty"     yaml:"esr_code,omitempty"`
	Express string `json:"express_code,omitempty" yaml:"express_code,omitempty"`
	Sirena  string `json:"sirena,omitempty"       yaml:"sirena,omitempty"`
	IATA    string `json:"iata,omitempty"         yaml:"iata,omitempty"`
	ICAO    string `json:"icao,omitempty"         yaml:"icao,omitempty"`
}

// Station is a stop, airport, bus station and so on.
type Station struct {
	Code            string  `json:"code"                        yaml:"code"`
	Title           string  `json:"title"                       yaml:"title"`
	PopularTitle    string  `json:"popular_title,omitempty"     yaml:"popular_title,omitempty"`
	ShortTitle      string  `json:"short_title,omitempty"       yaml:"short_title,omitempty"`
	Type            string  `json:"type,omitempty"              yaml:"type,omitempty"`
	StationType     string  `json:"station_type,omitempty"      yaml:"station_type,omitempty"`
	StationTypeName string  `json:"station_type_name,omitempty" yaml:"station_type_name,omitempty"`
	TransportType   string  `json:"transport_type,omitempty"    yaml:"transport_type,omitempty"`
	Lat             float64 `json:"lat,omitempty"               yaml:"lat,omitempty"`
	Lng             float64 `json:"lng,omitempty"               yaml:"lng,omitempty"`
	Distance        float64 `json:"distance,omitempty"          yaml:"distance,omitempty"`
	Codes           *Codes  `json:"codes,omitempty"             yaml:"codes,omitempty"`
}

// Carrier is a transport company.
type Carrier struct {
	Code     int    `json:"code"               yaml:"code"`
	Title    string `json:"title"              yaml:"title"`
	Codes    *Codes `json:"codes,omitempty"    yaml:"codes,omitempty"`
	Address  string `json:"address,omitempty"  yaml:"address,omitempty"`
	URL      string `json:"url,omitempty"      yaml:"url,omitempty"`
	Email    string `json:"email,omitempty"    yaml:"email,omitempty"`
	Contacts string `json:"contacts,omitempty" yaml:"contacts,omitempty"`
	Phone    string `json:"phone,omitempty"    yaml:"phone,omitempty"`
	Logo     string `json:"logo,omitempty"     yaml:"logo,omitempty"`
}

// CarrierResponse is returned by the carrier endpoint. Depending on the code
// system the API returns either a single carrier or a list.
type CarrierResponse struct {
	Carrier  *Carrier  `json:"carrier,omitempty"  yaml:"carrier,omitempty"`
	Carriers []Carrier `json:"carriers,omitempty" yaml:"carriers,omitempty"`
}

// All returns the carriers regardless of the response shape.
func (r *CarrierResponse) All() []Carrier {
	if r.Carrier != nil {
		return append([]Carrier{*r.Carrier}, r.Carriers...)
	}

	return r.Carriers
}

// Thread is a single route run.
type Thread struct {
	UID              string   `json:"uid"                         yaml:"uid"`
	Title            string   `json:"title"                       yaml:"title"`
	Number           string   `json:"number"                      yaml:"number"`
	ShortTitle       string   `json:"short_title,omitempty"       yaml:"short_title,omitempty"`
	Carrier          *Carrier `json:"carrier,omitempty"           yaml:"carrier,omitempty"`
	TransportType    string   `json:"transport_type,omitempty"    yaml:"transport_type,omitempty"`
	Vehicle          string   `json:"vehicle,omitempty"           yaml:"vehicle,omitempty"`
	ExpressType      string   `json:"express_type,omitempty"      yaml:"express_type,omitempty"`
	TransportSubtype *Subtype `json:"transport_subtype,omitempty" yaml:"transport_subtype,omitempty"`
}

// Subtype describes a transport subtype such as a suburban express.
type Subtype struct {
	Title string `json:"title" yaml:"title"`
	Code  string `json:"code"  yaml:"code"`
	Color string `json:"color" yaml:"color"`
}

// Segment is one result of a search between two points.
type Segment struct {
	From              *Station `json:"from,omitempty"               yaml:"from,omitempty"`
	To                *Station `json:"to,omitempty"                 yaml:"to,omitempty"`
	Thread            *Thread  `json:"thread,omitempty"             yaml:"thread,omitempty"`
	Departure         string   `json:"departure"                    yaml:"departure"`
	Arrival           string   `json:"arrival"                      yaml:"arrival"`
	Duration          float64  `json:"duration"                     yaml:"duration"`
	DeparturePlatform string   `json:"departure_platform,omitempty" yaml:"departure_platform,omitempty"`
	ArrivalPlatform   string   `json:"arrival_platform,omitempty"   yaml:"arrival_platform,omitempty"`
	Stops             string   `json:"stops,omitempty"              yaml:"stops,omitempty"`
	StartDate         string   `json:"start_date,omitempty"         yaml:"start_date,omitempty"`
	HasTransfers      bool     `json:"has_transfers"                yaml:"has_transfers"`
}

// ScheduleItem is one departure or arrival at a station.
type ScheduleItem struct {
	Thread     *Thread `json:"thread,omitempty"      yaml:"thread,omitempty"`
	Departure  string  `json:"departure,omitempty"   yaml:"departure,omitempty"`
	Arrival    string  `json:"arrival,omitempty"     yaml:"arrival,omitempty"`
	Days       string  `json:"days,omitempty"        yaml:"days,omitempty"`
	ExceptDays string  `json:"except_days,omitempty" yaml:"except_days,omitempty"`
	Platform   string  `json:"platform,omitempty"    yaml:"platform,omitempty"`
	Stops      string  `json:"stops,omitempty"       yaml:"stops,omitempty"`
	Terminal   string  `json:"terminal,omitempty"    yaml:"terminal,omitempty"`
	IsFuzzy    bool    `json:"is_fuzzy"              yaml:"is_fuzzy"`
}

// ThreadStop is a stop on a thread route.
type ThreadStop struct {
	Station   *Station `json:"station,omitempty"   yaml:"station,omitempty"`
	Arrival   *string  `json:"arrival"             yaml:"arrival"`
	Departure *string  `json:"departure"           yaml:"departure"`
	Duration  float64  `json:"duration"            yaml:"duration"`
	StopTime  *float64 `json:"stop_time"           yaml:"stop_time"`
	Platform  string   `json:"platform,omitempty"  yaml:"platform,omitempty"`
	Terminal  string   `json:"terminal,omitempty"  yaml:"terminal,omitempty"`
}

// ThreadDetails is returned by the thread endpoint.
type ThreadDetails struct {
	Thread

	Days       string       `json:"days,omitempty"        yaml:"days,omitempty"`
	ExceptDays string       `json:"except_days,omitempty" yaml:"except_days,omitempty"`
	StartDate  string       `json:"start_date,omitempty"  yaml:"start_date,omitempty"`
	StartTime  string       `json:"start_time,omitempty"  yaml:"start_time,omitempty"`
	Stops      []ThreadStop `json:"stops"                 yaml:"stops"`
}

// Settlement is a city or village.
type Settlement struct {
	Code         string  `json:"code"                    yaml:"code"`
	Title        string  `json:"title"                   yaml:"title"`
	PopularTitle string  `json:"popular_title,omitempty" yaml:"popular_title,omitempty"`
	ShortTitle   string  `json:"short_title,omitempty"   yaml:"short_title,omitempty"`
	Type         string  `json:"type,omitempty"          yaml:"type,omitempty"`
	Lat          float64 `json:"lat"                     yaml:"lat"`
	Lng          float64 `json:"lng"                     yaml:"lng"`
	Distance     float64 `json:"distance"                yaml:"distance"`
}

// Copyright is the attribution block the API requires clients to show.
type Copyright struct {
	LogoVM string `json:"logo_vm" yaml:"logo_vm"`
	LogoVD string `json:"logo_vd" yaml:"logo_vd"`
	LogoVY string `json:"logo_vy" yaml:"logo_vy"`
	LogoHM string `json:"logo_hm" yaml:"logo_hm"`
	LogoHD string `json:"logo_hd" yaml:"logo_hd"`
	LogoHY string `json:"logo_hy" yaml:"logo_hy"`
	URL    string `json:"url"     yaml:"url"`
	Text   string `json:"text"    yaml:"text"`
}

// CopyrightResponse wraps Copyright.
type CopyrightResponse struct {
	Copyright Copyright `json:"copyright" yaml:"copyright"`
}

// StationsList is the full directory returned by stations_list.
type StationsList struct {
	Countries []Country `json:"countries" yaml:"countries"`
}

// Country groups regions.
type Country struct {
	Title   string   `json:"title"   yaml:"title"`
	Codes   *Codes   `json:"codes"   yaml:"codes"`
	Regions []Region `json:"regions" yaml:"regions"`
}

// Region groups settlements.
type Region struct {
	Title       string            `json:"title"       yaml:"title"`
	Codes       *Codes            `json:"codes"       yaml:"codes"`
	Settlements []SettlementEntry `json:"settlements" yaml:"settlements"`
}

// SettlementEntry lists the stations of a settlement.
type SettlementEntry struct {
	Title    string    `json:"title"    yaml:"title"`
	Codes    *Codes    `json:"codes"    yaml:"codes"`
	Stations []Station `json:"stations" yaml:"stations"`
}

// StationCount returns the number of stations in the directory.
func (l *StationsList) StationCount() int {
	count := 0

	for _, country := range l.Countries {
		for _, region := range country.Regions {
			for _, settlement := range region.Settlements {
				count += len(settlement.Stations)
			}
		}
	}

	return count
}

// SearchRequest queries routes between two points.
type SearchRequest struct {
	From           string
	To             string
	Date           string
	TransportTypes string
	System         string
	ShowSystems    string
	Lang           string
	ResultTimezone string
	Transfers      bool
	AddDaysMask    bool
}

// Values renders the request as query parameters.
func (r *SearchRequest) Values() url.Values {
	values := url.Values{}
	setIf(values, "from", r.From)
	setIf(values, "to", r.To)
	setIf(values, "date", r.Date)
	setIf(values, "transport_types", r.TransportTypes)
	setIf(values, "system", r.System)
	setIf(values, "show_systems", r.ShowSystems)
	setIf(values, "lang", r.Lang)
	setIf(values, "result_timezone", r.ResultTimezone)
	setBool(values, "transfers", r.Transfers)
	setBool(values, "add_days_mask", r.AddDaysMask)

	return values
}

// ScheduleRequest queries the timetable of a station.
type ScheduleRequest struct {
	Station        string
	Date           string
	TransportTypes string
	Event          string
	Direction      string
	System         string
	ShowSystems    string
	Lang           string
	ResultTimezone string
}

// Values renders the request as query parameters.
func (r *ScheduleRequest) Values() url.Values {
	values := url.Values{}
	setIf(values, "station", r.Station)
	setIf(values, "date", r.Date)
	setIf(values, "transport_types", r.TransportTypes)
	setIf(values, "event", r.Event)
	setIf(values, "direction", r.Direction)
	setIf(values, "system", r.System)
	setIf(values, "show_systems", r.ShowSystems)
	setIf(values, "lang", r.Lang)
	setIf(values, "result_timezone", r.ResultTimezone)

	return values
}

// ThreadRequest queries the stops of a thread.
type ThreadRequest struct {
	UID         string
	From        string
	To          string
	Date        string
	ShowSystems string
	Lang        string
}

// Values renders the request as query parameters.
func (r *ThreadRequest) Values() url.Values {
	values := url.Values{}
	setIf(values, "uid", r.UID)
	setIf(values, "from", r.From)
	setIf(values, "to", r.To)
	setIf(values, "date", r.Date)
	setIf(values, "show_systems", r.ShowSystems)
	setIf(values, "lang", r.Lang)

	return values
}

// NearestStationsRequest queries stations around a point.
type NearestStationsRequest struct {
	Lat            float64
	Lng            float64
	Distance       int
	StationTypes   string
	TransportTypes string
	Lang           string
}

// Values renders the request as query parameters.
func (r *NearestStationsRequest) Values() url.Values {
	values := url.Values{}
	values.Set("lat", formatCoord(r.Lat))
	values.Set("lng", formatCoord(r.Lng))
	setInt(values, "distance", r.Distance)
	setIf(values, "station_types", r.StationTypes)
	setIf(values, "transport_types", r.TransportTypes)
	setIf(values, "lang", r.Lang)

	return values
}

// NearestSettlementRequest queries the closest settlement to a point.
type NearestSettlementRequest struct {
	Lat      float64
	Lng      float64
	Distance int
	Lang     string
}

// Values renders the request as query parameters.
func (r *NearestSettlementRequest) Values() url.Values {
	values := url.Values{}
	values.Set("lat", formatCoord(r.Lat))
	values.Set("lng", formatCoord(r.Lng))
	setInt(values, "distance", r.Distance)
	setIf(values, "lang", r.Lang)

	return values
}

// CarrierRequest queries a carrier by code.
type CarrierRequest struct {
	Code   string
	System string
	Lang   string
}

// Values renders the request as query parameters.
func (r *CarrierRequest) Values() url.Values {
	values := url.Values{}
	setIf(values, "code", r.Code)
	setIf(values, "system", r.System)
	setIf(values, "lang", r.Lang)

	return values
}

// StationsListRequest queries the full station directory.
type StationsListRequest struct {
	Lang string
}

// Values renders the request as query parameters.
func (r *StationsListRequest) Values() url.Values {
	values := url.Values{}
	setIf(values, "lang", r.Lang)

	return values
}

func setIf(values url.Values, key, value string) {
	if value != "" {
		values.Set(key, value)
	}
}

func setBool(values url.Values, key string, value bool) {
	if value {
		values.Set(key, "true")
	}
}

func setInt(values url.Values, key string, value int) {
	if value > 0 {
		values.Set(key, strconv.Itoa(value))
	}
}

func formatCoord(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
