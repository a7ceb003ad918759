package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

var errCASExhausted = errors.New("usage counter update kept conflicting")

// NATSStore keeps counts in a JetStream key-value bucket, one key per API key
// and day. Increments use compare-and-set on the entry revision.
type NATSStore struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	scope  string
	logger yarasp.Logger
	owned  bool
}

// NewNATSStore creates or opens bucket on nc.
func NewNATSStore(ctx context.Context, nc *nats.Conn, bucket, scope string, logger yarasp.Logger) (*NATSStore, error) {
	if logger == nil {
		logger = yarasp.NopLogger{}
	}

	if bucket == "" {
		bucket = constants.DefaultNATSUsageBucket
	}

	kv, err := yarasp.OpenKeyValue(ctx, nc, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "yarasp daily usage counters",
		History:     1,
	})
	if err != nil {
		return nil, err
	}

	return &NATSStore{nc: nc, kv: kv, scope: scope, logger: logger}, nil
}

// Key returns the bucket key for day.
func (s *NATSStore) Key(day string) string {
	return s.scope + "." + day
}

// GetCount returns the count for day.
func (s *NATSStore) GetCount(ctx context.Context, day string) (int, error) {
	count, _, err := s.read(ctx, day)

	return count, err
}

// Increment adds one to day's count, retrying when another writer wins.
func (s *NATSStore) Increment(ctx context.Context, day string) (int, error) {
	key := s.Key(day)

	for iter := 0; iter < constants.CASRetryMax; iter++ {
		current, revision, err := s.read(ctx, day)
		if err != nil {
			return 0, err
		}

		next := current + 1
		value := []byte(strconv.Itoa(next))

		if revision == 0 {
			_, err = s.kv.Create(ctx, key, value)
		} else {
			_, err = s.kv.Update(ctx, key, value, revision)
		}

		if err == nil {
			return next, nil
		}

		if !isConflict(err) {
			return 0, fmt.Errorf("%w: %w", ErrStorageWrite, err)
		}
	}

	return 0, fmt.Errorf("%w: %w", ErrStorageWrite, errCASExhausted)
}

// read returns the count and the revision to update against. Revision 0 means
// the key does not exist.
func (s *NATSStore) read(ctx context.Context, day string) (int, uint64, error) {
	entry, err := s.kv.Get(ctx, s.Key(day))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return 0, 0, nil
	}

	if err != nil {
		return 0, 0, fmt.Errorf("reading usage counter: %w", err)
	}

	count, err := strconv.Atoi(string(entry.Value()))
	if err != nil || count < 0 {
		s.logger.Warn("Usage counter entry corrupt, treating as zero", map[string]interface{}{
			"key": s.Key(day),
		})

		return 0, entry.Revision(), nil
	}

	return count, entry.Revision(), nil
}

// Close drains the connection if the store opened it.
func (s *NATSStore) Close() error {
	if s.owned {
		return s.nc.Drain()
	}

	return nil
}

func isConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}

	return false
}
