package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	req := &yarasp.SearchRequest{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search routes between two points",
		Long:  "List the threads running between two stations or settlements on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.From == "" {
				return constants.ErrFromRequired
			}

			if req.To == "" {
				return constants.ErrToRequired
			}

			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.Search(cmd.Context(), req, callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to search: %w", err)
				}

				var segments []yarasp.Segment

				err = result.DecodeItems(&segments)
				if err != nil {
					return err
				}

				return renderResult(cmd, result, segments, func(table *tablewriter.Table) {
					table.Header("Departure", "Arrival", "Number", "Title", "From", "To")

					for _, segment := range segments {
						number, title := threadFields(segment.Thread)
						_ = table.Append(segment.Departure, segment.Arrival, number, title,
							stationTitle(segment.From), stationTitle(segment.To))
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&req.From, "from", "", "departure station or settlement code (e.g. c213)")
	cmd.Flags().StringVar(&req.To, "to", "", "arrival station or settlement code (e.g. c2)")
	cmd.Flags().StringVar(&req.Date, "date", "", "date in YYYY-MM-DD format")
	cmd.Flags().StringVar(&req.TransportTypes, "transport", "", "transport type filter (plane, train, suburban, bus, water, helicopter)")
	cmd.Flags().StringVar(&req.System, "system", "", "code system of --from and --to")
	cmd.Flags().StringVar(&req.Lang, "lang", "", "response language, e.g. ru_RU")
	cmd.Flags().BoolVar(&req.Transfers, "transfers", false, "include routes with transfers")
	addCallFlags(cmd, true)

	return cmd
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand() *cobra.Command {
	req := &yarasp.ScheduleRequest{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show a station timetable",
		Long:  "List the departures and arrivals of a station",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Station == "" {
				return constants.ErrStationRequired
			}

			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.Schedule(cmd.Context(), req, callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to get schedule: %w", err)
				}

				var items []yarasp.ScheduleItem

				err = result.DecodeItems(&items)
				if err != nil {
					return err
				}

				return renderResult(cmd, result, items, func(table *tablewriter.Table) {
					table.Header("Departure", "Arrival", "Number", "Title", "Platform", "Days")

					for _, item := range items {
						number, title := threadFields(item.Thread)
						_ = table.Append(orNA(item.Departure), orNA(item.Arrival), number, title,
							orNA(item.Platform), truncate(item.Days, constants.TitleDisplayLength))
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&req.Station, "station", "", "station code (e.g. s9600213)")
	cmd.Flags().StringVar(&req.Date, "date", "", "date in YYYY-MM-DD format")
	cmd.Flags().StringVar(&req.TransportTypes, "transport", "", "transport type filter")
	cmd.Flags().StringVar(&req.Event, "event", "", "departure or arrival")
	cmd.Flags().StringVar(&req.Direction, "direction", "", "suburban direction")
	cmd.Flags().StringVar(&req.System, "system", "", "code system of --station")
	cmd.Flags().StringVar(&req.Lang, "lang", "", "response language, e.g. ru_RU")
	addCallFlags(cmd, true)

	return cmd
}

// NewThreadCommand creates the thread command.
func NewThreadCommand() *cobra.Command {
	req := &yarasp.ThreadRequest{}

	cmd := &cobra.Command{
		Use:   "thread UID",
		Short: "Show the stops of a thread",
		Long:  "List every stop of a thread with arrival and departure times",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.UID = args[0]
			}

			if req.UID == "" {
				return constants.ErrUIDRequired
			}

			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.Thread(cmd.Context(), req, callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to get thread: %w", err)
				}

				var details yarasp.ThreadDetails

				err = result.Decode(&details)
				if err != nil {
					return err
				}

				return renderResult(cmd, result, details, func(table *tablewriter.Table) {
					table.Header("Station", "Arrival", "Departure", "Platform")

					for _, stop := range details.Stops {
						_ = table.Append(stationTitle(stop.Station), deref(stop.Arrival), deref(stop.Departure), orNA(stop.Platform))
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&req.From, "from", "", "station where the route should start")
	cmd.Flags().StringVar(&req.To, "to", "", "station where the route should end")
	cmd.Flags().StringVar(&req.Date, "date", "", "date in YYYY-MM-DD format")
	cmd.Flags().StringVar(&req.Lang, "lang", "", "response language, e.g. ru_RU")
	addCallFlags(cmd, false)

	return cmd
}

// NewNearestStationsCommand creates the nearest-stations command.
func NewNearestStationsCommand() *cobra.Command {
	req := &yarasp.NearestStationsRequest{}

	cmd := &cobra.Command{
		Use:     "nearest-stations",
		Aliases: []string{"stations"},
		Short:   "List stations around a point",
		Long:    "List stations within a radius of the given coordinates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
				return constants.ErrCoordinatesMissing
			}

			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.NearestStations(cmd.Context(), req, callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to get nearest stations: %w", err)
				}

				var stations []yarasp.Station

				err = result.DecodeItems(&stations)
				if err != nil {
					return err
				}

				return renderResult(cmd, result, stations, func(table *tablewriter.Table) {
					table.Header("Code", "Title", "Type", "Transport", "Distance")

					for _, station := range stations {
						_ = table.Append(station.Code, station.Title, orNA(station.StationTypeName),
							orNA(station.TransportType), strconv.FormatFloat(station.Distance, 'f', 2, 64))
					}
				})
			})
		},
	}

	cmd.Flags().Float64Var(&req.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&req.Lng, "lng", 0, "longitude")
	cmd.Flags().IntVar(&req.Distance, "distance", 0, "search radius in km (API default 10, max 50)")
	cmd.Flags().StringVar(&req.StationTypes, "station-types", "", "station type filter")
	cmd.Flags().StringVar(&req.TransportTypes, "transport", "", "transport type filter")
	cmd.Flags().StringVar(&req.Lang, "lang", "", "response language, e.g. ru_RU")
	addCallFlags(cmd, true)

	return cmd
}

// NewNearestSettlementCommand creates the nearest-settlement command.
func NewNearestSettlementCommand() *cobra.Command {
	req := &yarasp.NearestSettlementRequest{}

	cmd := &cobra.Command{
		Use:     "nearest-settlement",
		Aliases: []string{"settlement"},
		Short:   "Find the closest settlement",
		Long:    "Show the settlement closest to the given coordinates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
				return constants.ErrCoordinatesMissing
			}

			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.NearestSettlement(cmd.Context(), req, callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to get nearest settlement: %w", err)
				}

				var settlement yarasp.Settlement

				err = result.Decode(&settlement)
				if err != nil {
					return err
				}

				return renderResult(cmd, result, settlement, func(table *tablewriter.Table) {
					table.Header("Property", "Value")
					_ = table.Append("Code", settlement.Code)
					_ = table.Append("Title", settlement.Title)
					_ = table.Append("Type", orNA(settlement.Type))
					_ = table.Append("Distance", strconv.FormatFloat(settlement.Distance, 'f', 2, 64))
				})
			})
		},
	}

	cmd.Flags().Float64Var(&req.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&req.Lng, "lng", 0, "longitude")
	cmd.Flags().IntVar(&req.Distance, "distance", 0, "search radius in km")
	cmd.Flags().StringVar(&req.Lang, "lang", "", "response language, e.g. ru_RU")
	addCallFlags(cmd, false)

	return cmd
}

// NewCarrierCommand creates the carrier command.
func NewCarrierCommand() *cobra.Command {
	req := &yarasp.CarrierRequest{}

	cmd := &cobra.Command{
		Use:   "carrier CODE",
		Short: "Show carrier details",
		Long:  "Show a transport company by its code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Code = args[0]
			}

			if req.Code == "" {
				return constants.ErrCarrierCodeMissing
			}

			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.Carrier(cmd.Context(), req, callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to get carrier: %w", err)
				}

				var response yarasp.CarrierResponse

				err = result.Decode(&response)
				if err != nil {
					return err
				}

				carriers := response.All()

				return renderResult(cmd, result, carriers, func(table *tablewriter.Table) {
					table.Header("Code", "Title", "URL", "Phone")

					for _, carrier := range carriers {
						_ = table.Append(strconv.Itoa(carrier.Code), carrier.Title, orNA(carrier.URL), orNA(carrier.Phone))
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&req.System, "system", "", "code system, e.g. iata")
	cmd.Flags().StringVar(&req.Lang, "lang", "", "response language, e.g. ru_RU")
	addCallFlags(cmd, false)

	return cmd
}

// NewStationsListCommand creates the stations-list command.
func NewStationsListCommand() *cobra.Command {
	req := &yarasp.StationsListRequest{}

	cmd := &cobra.Command{
		Use:   "stations-list",
		Short: "Download the station directory",
		Long:  "Download every country, region, settlement and station known to the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.StationsList(cmd.Context(), req, callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to get stations list: %w", err)
				}

				var list yarasp.StationsList

				err = result.Decode(&list)
				if err != nil {
					return err
				}

				return renderResult(cmd, result, list, func(table *tablewriter.Table) {
					table.Header("Country", "Regions", "Stations")

					for _, country := range list.Countries {
						single := yarasp.StationsList{Countries: []yarasp.Country{country}}
						_ = table.Append(orNA(country.Title), strconv.Itoa(len(country.Regions)), strconv.Itoa(single.StationCount()))
					}

					_ = table.Append("Total", "", strconv.Itoa(list.StationCount()))
				})
			})
		},
	}

	cmd.Flags().StringVar(&req.Lang, "lang", "", "response language, e.g. ru_RU")
	addCallFlags(cmd, false)

	return cmd
}

// NewCopyrightCommand creates the copyright command.
func NewCopyrightCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copyright",
		Short: "Show the data attribution",
		Long:  "Show the attribution text and logos that must accompany schedule data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.Copyright(cmd.Context(), callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to get copyright: %w", err)
				}

				var response yarasp.CopyrightResponse

				err = result.Decode(&response)
				if err != nil {
					return err
				}

				return renderResult(cmd, result, response.Copyright, func(table *tablewriter.Table) {
					table.Header("Property", "Value")
					_ = table.Append("Text", response.Copyright.Text)
					_ = table.Append("URL", orNA(response.Copyright.URL))
				})
			})
		},
	}

	addCallFlags(cmd, false)

	return cmd
}

// NewGetCommand creates the generic get command.
func NewGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get ENDPOINT [KEY=VALUE...]",
		Short: "Call any endpoint with raw parameters",
		Long: `Call an API endpoint by name with raw query parameters and print the
response body. Any apikey parameter is ignored in favour of the configured key.`,
		Example: "  yarasp get search from=c213 to=c2 date=2024-01-15",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := yarasp.Endpoint(args[0])

			spec, ok := yarasp.LookupEndpoint(endpoint)
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownEndpoint, args[0])
			}

			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			return withClient(cmd, true, func(client yarasp.Client) error {
				result, err := client.Get(cmd.Context(), spec.Name, params, callOptions(cmd)...)
				if err != nil {
					return fmt.Errorf("failed to get %s: %w", spec.Name, err)
				}

				var value interface{}
				if spec.Paginated {
					err = result.DecodeItems(&value)
				} else {
					err = result.Decode(&value)
				}

				if err != nil {
					return err
				}

				return renderResult(cmd, result, value, func(table *tablewriter.Table) {
					table.Header("Property", "Value")
					_ = table.Append("Endpoint", string(result.Endpoint))
					_ = table.Append("Pages", strconv.Itoa(result.Pages))
					_ = table.Append("Items", strconv.Itoa(len(result.Items)))
					_ = table.Append("Size", yarasp.FormatSize(len(result.Data)))
					_ = table.Append("Keys", strings.Join(topLevelKeys(result.Data), ", "))
				})
			})
		},
	}

	addCallFlags(cmd, true)

	return cmd
}

func parseParams(args []string) (url.Values, error) {
	params := url.Values{}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParam, arg)
		}

		params.Add(key, value)
	}

	return params, nil
}

func topLevelKeys(data json.RawMessage) []string {
	var object map[string]json.RawMessage

	if json.Unmarshal(data, &object) != nil {
		return []string{constants.NotAvailable}
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func deref(s *string) string {
	if s == nil {
		return constants.NotAvailable
	}

	return *s
}
