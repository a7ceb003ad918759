// Package raspclient is the entry point for building a client of the Yandex
// Raspisaniya (transport schedule) API v3.0.
//
// The returned yarasp.Client forwards typed calls to the API, caches
// successful responses, walks offset pagination and counts every live
// request against a persistent daily limit.
//
// Quick start
//
//	ctx := context.Background()
//
//	cli, err := raspclient.NewWithAPIKey(ctx, os.Getenv("YARASP_API_KEY"))
//	if err != nil { log.Fatal(err) }
//	defer cli.Close()
//
//	result, err := cli.Search(ctx, &yarasp.SearchRequest{From: "c213", To: "c2"})
//	if err != nil { log.Fatal(err) }
//
//	var segments []yarasp.Segment
//	_ = result.DecodeItems(&segments)
//
// # Configuration from the environment
//
// NewFromEnv reads YARASP_API_KEY, YARASP_API_DAILY_LIMIT, YARASP_SAFE_MODE,
// YARASP_VERBOSE and the YARASP_CACHE_* / YARASP_COUNTER_* keys, layered over
// ~/.yarasp/config.yml when it exists.
//
// # Usage accounting
//
// Each live 2xx response increments the counter for the current local date.
// With safe mode on, a call that would exceed the daily limit fails with a
// *yarasp.LimitExceededError before any network I/O. Cached responses are
// never counted:
//
//	status, _ := cli.Usage(ctx)
//	fmt.Printf("%d/%d used today\n", status.Count, status.Limit)
//
// Concurrent calls
//
//	async := raspclient.NewAsync(cli)
//	a := async.Schedule(ctx, &yarasp.ScheduleRequest{Station: "s9600213"})
//	b := async.Copyright(ctx)
//	schedule, err := a.Wait(ctx)
//	copyright, err := b.Wait(ctx)
package raspclient
