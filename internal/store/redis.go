package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hushbox/internal/domain"
)

// Compile-time interface check
var _ Store = (*RedisStore)(nil)

// RedisStore keeps each record in a hash so the viewed flag can be
// flipped atomically server-side. Records carry no Redis TTL: a secret
// past its expiry must still answer as expired until the reaper
// physically removes it.
//
// Keys:
//
//	secret:<id>        hash with the record fields
//	secret:ids         set of all record ids, scanned by DeleteDead
//	secret:owner:<o>   zset of an owner's ids scored by creation time
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// markViewedScript performs the check-and-set of the viewed flag as a
// single server-side operation, so two concurrent views of a one-time
// secret can never both win.
var markViewedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HGET', KEYS[1], 'viewed') == '1' then
	return 0
end
redis.call('HSET', KEYS[1], 'viewed', '1', 'updated_at', ARGV[1])
return 1
`)

func (r *RedisStore) Insert(ctx context.Context, s *domain.Secret) error {
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, secretKey(s.ID), recordFields(s))
	pipe.SAdd(ctx, idsKey, s.ID)
	if s.Owner != "" {
		pipe.ZAdd(ctx, ownerKey(s.Owner), redis.Z{
			Score:  float64(s.CreatedAt.UnixNano()),
			Member: s.ID,
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FetchByID(ctx context.Context, id string) (*domain.Secret, error) {
	fields, err := r.rdb.HGetAll(ctx, secretKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return recordFromFields(id, fields)
}

func (r *RedisStore) MarkViewed(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := markViewedScript.Run(ctx, r.rdb,
		[]string{secretKey(id)}, now.UTC().Format(time.RFC3339Nano)).Int()
	if err != nil {
		return false, err
	}
	switch res {
	case -1:
		return false, domain.ErrNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

func (r *RedisStore) Update(ctx context.Context, s *domain.Secret) error {
	exists, err := r.rdb.Exists(ctx, secretKey(s.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	// Expiry may have been cleared, so rewrite the full hash rather
	// than patching fields.
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, secretKey(s.ID))
	pipe.HSet(ctx, secretKey(s.ID), recordFields(s))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) DeleteByID(ctx context.Context, id string) error {
	owner, err := r.rdb.HGet(ctx, secretKey(id), "owner").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, secretKey(id))
	pipe.SRem(ctx, idsKey, id)
	if owner != "" {
		pipe.ZRem(ctx, ownerKey(owner), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) DeleteDead(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := r.rdb.SScan(ctx, idsKey, 0, "", 100).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()
		s, err := r.FetchByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			// Stale index entry, drop it.
			_ = r.rdb.SRem(ctx, idsKey, id).Err()
			continue
		}
		if err != nil {
			return removed, err
		}
		if !s.Dead(now) {
			continue
		}
		if err := r.DeleteByID(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

func (r *RedisStore) ListByOwner(ctx context.Context, owner string) ([]*domain.Secret, error) {
	if owner == "" {
		return nil, nil
	}
	ids, err := r.rdb.ZRevRange(ctx, ownerKey(owner), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Secret, 0, len(ids))
	for _, id := range ids {
		s, err := r.FetchByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue // deleted concurrently
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

const idsKey = "secret:ids"

func secretKey(id string) string { return "secret:" + id }
func ownerKey(owner string) string { return "secret:owner:" + owner }

func recordFields(s *domain.Secret) map[string]any {
	fields := map[string]any{
		"owner":         s.Owner,
		"ciphertext":    s.Ciphertext,
		"password_hash": s.PasswordHash,
		"one_time":      boolField(s.OneTimeAccess),
		"viewed":        boolField(s.Viewed),
		"created_at":    s.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":    s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if s.ExpiresAt != nil {
		fields["expires_at"] = s.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func recordFromFields(id string, fields map[string]string) (*domain.Secret, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("record %s: bad created_at: %w", id, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("record %s: bad updated_at: %w", id, err)
	}
	s := &domain.Secret{
		ID:            id,
		Owner:         fields["owner"],
		Ciphertext:    fields["ciphertext"],
		PasswordHash:  fields["password_hash"],
		OneTimeAccess: fields["one_time"] == "1",
		Viewed:        fields["viewed"] == "1",
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
	if raw, ok := fields["expires_at"]; ok && raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("record %s: bad expires_at: %w", id, err)
		}
		s.ExpiresAt = &t
	}
	return s, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
