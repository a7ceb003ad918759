// Package yarasp provides types, interfaces, and helpers for working with the
// Yandex Raspisaniya (transport schedule) API v3.0.
//
// # Overview
//
// The yarasp package defines the request and response types (SearchRequest,
// Segment, ScheduleItem, Station, Carrier and so on), the Client interface,
// and the response cache backends. A concrete implementation of Client is
// provided by the raspclient package, which wires configuration, transport,
// caching and usage accounting. Most consumers should import raspclient to
// construct a client.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/yarasp/yarasp-go/pkg/raspclient"
//	  "github.com/yarasp/yarasp-go/pkg/yarasp"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := raspclient.NewWithAPIKey(ctx, "your-key")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  res, err := cli.Search(ctx, &yarasp.SearchRequest{
//	    From: "s9600366", To: "s9600213", TransportTypes: "plane",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  var segments []yarasp.Segment
//	  _ = res.DecodeItems(&segments)
//	}
//
// # Pagination
//
// search, schedule and nearest_stations are paginated by the API. The client
// walks every page with limit/offset and aggregates the result array into
// Result.Items. Result.Data keeps the raw first page for metadata such as the
// search block. Use WithoutPagination to fetch the first page only.
//
// # Daily limit
//
// Every successful live request increments a per-day counter. When the
// counter reaches Config.DailyLimit and safe mode is on, further live
// requests fail with a *LimitExceededError (errors.Is(err, ErrLimitExceeded)).
// Cached responses are always served. Each page of a paginated call counts
// as one request.
//
// # Caching
//
// Responses are cached by method, endpoint and query with the apikey
// parameter removed. Backends: memory, file, redis, sqlite, nats and none.
// Unknown backend names are rejected by NewCacheFromConfig.
//
// # Async
//
// Async and AsyncClient run calls in goroutines and return a Future. They
// share the underlying client's cache and counter.
package yarasp
