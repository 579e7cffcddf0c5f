package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
)

// DefaultKeyTTL expires a resource's presence hashes when no heartbeat
// has touched them for this long, in case a process died with cleanups
// pending.
const DefaultKeyTTL = time.Hour

// maxWatchRetries bounds optimistic retries of one cleanup.
const maxWatchRetries = 5

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic("presence: CBOR encoder initialization failed: " + err.Error())
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic("presence: CBOR decoder initialization failed: " + err.Error())
	}
}

// RedisStore keeps presence in two Redis hashes per resource: records
// (CBOR-encoded) and cleanup handles (tokens), both keyed by slot and
// user. Heartbeats and leaves are MULTI/EXEC batches; cleanups WATCH the
// hashes so a concurrent heartbeat aborts and retries them.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. Keys are namespaced by prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "booking"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: DefaultKeyTTL}
}

func (s *RedisStore) recordsKey(resourceID string) string {
	return s.prefix + ":presence:" + resourceID
}

func (s *RedisStore) handlesKey(resourceID string) string {
	return s.prefix + ":presence-cleanup:" + resourceID
}

func field(slot, user string) string { return slot + "\x00" + user }

func (s *RedisStore) Upsert(ctx context.Context, resourceID string, slots []string, user string, updated time.Time, data json.RawMessage) (map[string]string, error) {
	if err := validate(resourceID, slots, user); err != nil {
		return nil, err
	}
	records, handles := s.recordsKey(resourceID), s.handlesKey(resourceID)

	encoded := make([][]byte, len(slots))
	for i, sl := range slots {
		b, err := encMode.Marshal(model.PresenceRecord{
			ResourceID: resourceID, Slot: sl, User: user, Updated: updated, Data: data,
		})
		if err != nil {
			return nil, fmt.Errorf("encode presence record: %w", err)
		}
		encoded[i] = b
	}

	tokens := make([]string, len(slots))
	claims := make([]*redis.BoolCmd, len(slots))
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, sl := range slots {
			f := field(sl, user)
			tokens[i] = uuid.NewString()
			pipe.HSet(ctx, records, f, encoded[i])
			claims[i] = pipe.HSetNX(ctx, handles, f, tokens[i])
		}
		pipe.Expire(ctx, records, s.ttl)
		pipe.Expire(ctx, handles, s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis heartbeat: %w", err)
	}

	claimed := make(map[string]string)
	for i, sl := range slots {
		if claims[i].Val() {
			claimed[sl] = tokens[i]
		}
	}
	return claimed, nil
}

func (s *RedisStore) Expire(ctx context.Context, resourceID, slot, user, token string, timeout time.Duration, now time.Time) (bool, time.Duration, error) {
	records, handles := s.recordsKey(resourceID), s.handlesKey(resourceID)
	f := field(slot, user)

	var (
		removed bool
		left    time.Duration
	)
	txf := func(tx *redis.Tx) error {
		removed, left = false, 0
		current, err := tx.HGet(ctx, handles, f).Result()
		if errors.Is(err, redis.Nil) || (err == nil && current != token) {
			return nil
		}
		if err != nil {
			return err
		}

		raw, err := tx.HGet(ctx, records, f).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var rec model.PresenceRecord
			if err := decMode.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("decode presence record: %w", err)
			}
			if l := rec.Updated.Add(timeout).Sub(now); l > 0 {
				left = l
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, records, f)
			pipe.HDel(ctx, handles, f)
			return nil
		})
		if err == nil {
			removed = true
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, records, handles)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, 0, fmt.Errorf("redis cleanup: %w", err)
		}
		return removed, left, nil
	}
	return false, 0, fmt.Errorf("redis cleanup: %w", redis.TxFailedErr)
}

func (s *RedisStore) Remove(ctx context.Context, resourceID string, slots []string, user string) error {
	records, handles := s.recordsKey(resourceID), s.handlesKey(resourceID)
	fields := make([]string, len(slots))
	for i, sl := range slots {
		fields[i] = field(sl, user)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, records, fields...)
		pipe.HDel(ctx, handles, fields...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis leave: %w", err)
	}
	return nil
}

func (s *RedisStore) ListDate(ctx context.Context, resourceID, date string) ([]model.PresenceRecord, error) {
	all, err := s.client.HGetAll(ctx, s.recordsKey(resourceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list presence: %w", err)
	}
	out := []model.PresenceRecord{}
	for f, raw := range all {
		if !strings.HasPrefix(f, date) {
			continue
		}
		var rec model.PresenceRecord
		if err := decMode.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode presence record: %w", err)
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

var _ Store = (*RedisStore)(nil)
var _ Store = (*MemoryStore)(nil)
