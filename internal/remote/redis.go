package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each user collection in one hash: field = document ID,
// value = JSON envelope with body and timestamp
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisOption func(*RedisStore)

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

type redisEnvelope struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "spellsync",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(userID, collection string) string {
	return fmt.Sprintf("%s:users:%s:%s", s.prefix, userID, collection)
}

func (s *RedisStore) Get(ctx context.Context, ref DocRef) (Document, error) {
	raw, err := s.rdb.HGet(ctx, s.key(ref.UserID, ref.Collection), ref.ID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, redisErr("get", err)
	}
	return decodeEnvelope(ref, raw)
}

func (s *RedisStore) Set(ctx context.Context, doc Document) error {
	raw, err := json.Marshal(redisEnvelope{Data: doc.Data, UpdatedAt: doc.UpdatedAt})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", doc.Ref, err)
	}
	if err := s.rdb.HSet(ctx, s.key(doc.Ref.UserID, doc.Ref.Collection), doc.Ref.ID, raw).Err(); err != nil {
		return redisErr("set", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, userID, collection string) ([]Document, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(userID, collection)).Result()
	if err != nil {
		return nil, redisErr("list", err)
	}
	docs := make([]Document, 0, len(fields))
	for id, raw := range fields {
		doc, err := decodeEnvelope(DocRef{UserID: userID, Collection: collection, ID: id}, []byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *RedisStore) Delete(ctx context.Context, ref DocRef) error {
	if err := s.rdb.HDel(ctx, s.key(ref.UserID, ref.Collection), ref.ID).Err(); err != nil {
		return redisErr("delete", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return redisErr("ping", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func decodeEnvelope(ref DocRef, raw []byte) (Document, error) {
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Document{}, fmt.Errorf("failed to decode %s: %w", ref, err)
	}
	return Document{Ref: ref, Data: env.Data, UpdatedAt: env.UpdatedAt}, nil
}

// Every redis failure other than a cancelled context is a transport problem
func redisErr(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return unavailable(op, err)
}
