package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisMembershipCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisMembershipCacheStore(client redis.UniversalClient, prefix string) *RedisMembershipCacheStore {
	if prefix == "" {
		prefix = "clubset"
	}
	return &RedisMembershipCacheStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisMembershipCacheStore) Get(ctx context.Context, studentID uint) ([]uint, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	key, err := s.dataKey(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var clubIDs []uint
	if err := json.Unmarshal(raw, &clubIDs); err != nil {
		return nil, false, err
	}
	return clubIDs, true, nil
}

func (s *RedisMembershipCacheStore) Set(ctx context.Context, studentID uint, clubIDs []uint, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	key, err := s.dataKey(ctx, studentID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(clubIDs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisMembershipCacheStore) InvalidateStudent(ctx context.Context, studentID uint) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.studentEpochKey(studentID)).Err()
}

func (s *RedisMembershipCacheStore) InvalidateAll(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.globalEpochKey()).Err()
}

func (s *RedisMembershipCacheStore) dataKey(ctx context.Context, studentID uint) (string, error) {
	pipe := s.client.Pipeline()
	globalEpochCmd := pipe.Get(ctx, s.globalEpochKey())
	studentEpochCmd := pipe.Get(ctx, s.studentEpochKey(studentID))
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return "", err
	}
	globalEpoch, err := parseEpoch(globalEpochCmd)
	if err != nil {
		return "", err
	}
	studentEpoch, err := parseEpoch(studentEpochCmd)
	if err != nil {
		return "", err
	}
	return s.prefix + ":" + buildMembershipCacheKey(globalEpoch, studentEpoch, studentID), nil
}

func parseEpoch(cmd *redis.StringCmd) (uint64, error) {
	v, err := cmd.Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *RedisMembershipCacheStore) globalEpochKey() string {
	return s.prefix + ":epoch:global"
}

func (s *RedisMembershipCacheStore) studentEpochKey(studentID uint) string {
	return fmt.Sprintf("%s:epoch:student:%d", s.prefix, studentID)
}
