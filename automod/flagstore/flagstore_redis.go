package flagstore

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"
)

var redisFlagsPrefix string = "warden/flags/"

type RedisFlagStore struct {
	Client *redis.Client
}

func NewRedisFlagStore(redisURL string) (*RedisFlagStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisFlagStore{Client: rdb}, nil
}

// returns flags in sorted order
func (s *RedisFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	l, err := s.Client.SMembers(ctx, redisFlagsPrefix+key).Result()
	if err == redis.Nil {
		return []string{}, nil
	} else if err != nil {
		return nil, err
	}
	sort.Strings(l)
	return l, nil
}

func (s *RedisFlagStore) Add(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	l := make([]interface{}, len(flags))
	for i, v := range flags {
		l[i] = v
	}
	return s.Client.SAdd(ctx, redisFlagsPrefix+key, l...).Err()
}

func (s *RedisFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	l := make([]interface{}, len(flags))
	for i, v := range flags {
		l[i] = v
	}
	return s.Client.SRem(ctx, redisFlagsPrefix+key, l...).Err()
}
