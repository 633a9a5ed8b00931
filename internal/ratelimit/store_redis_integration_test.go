//go:build integration

package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"pageguard/pkg/testutil/containers"
)

type RedisBucketSuite struct {
	suite.Suite

	store *RedisBucketStore
}

func TestRedisBucketSuite(t *testing.T) {
	redis := containers.NewRedisContainer(t)
	s := &RedisBucketSuite{store: NewRedisBucketStore(redis.Client)}
	suite.Run(t, s)
}

func (s *RedisBucketSuite) SetupTest() {
	s.Require().NoError(s.store.Reset(context.Background(), "tenant-a"))
	s.Require().NoError(s.store.Reset(context.Background(), "tenant-b"))
}

func (s *RedisBucketSuite) TestCeilingEnforced() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := s.store.Allow(ctx, "tenant-a", 5, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
	}

	result, err := s.store.Allow(ctx, "tenant-a", 5, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.True(result.ResetAt.After(time.Now()))

	count, err := s.store.CurrentCount(ctx, "tenant-a")
	s.Require().NoError(err)
	s.Equal(5, count)
}

func (s *RedisBucketSuite) TestConcurrentRequestsNeverExceedLimit() {
	ctx := context.Background()
	const limit = 5
	const requests = 40

	var allowed atomic.Int64
	var g errgroup.Group
	for i := 0; i < requests; i++ {
		g.Go(func() error {
			result, err := s.store.Allow(ctx, "tenant-a", limit, time.Minute)
			if err != nil {
				return err
			}
			if result.Allowed {
				allowed.Add(1)
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Equal(int64(limit), allowed.Load())

	count, err := s.store.CurrentCount(ctx, "tenant-a")
	s.Require().NoError(err)
	s.Equal(limit, count)
}

func (s *RedisBucketSuite) TestKeysAreIndependent() {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := s.store.Allow(ctx, "tenant-a", 2, time.Minute)
		s.Require().NoError(err)
	}
	blocked, err := s.store.Allow(ctx, "tenant-a", 2, time.Minute)
	s.Require().NoError(err)
	s.False(blocked.Allowed)

	other, err := s.store.Allow(ctx, "tenant-b", 2, time.Minute)
	s.Require().NoError(err)
	s.True(other.Allowed)
}

func (s *RedisBucketSuite) TestWindowSlides() {
	ctx := context.Background()
	window := 500 * time.Millisecond

	for i := 0; i < 2; i++ {
		_, err := s.store.Allow(ctx, "tenant-a", 2, window)
		s.Require().NoError(err)
	}
	blocked, err := s.store.Allow(ctx, "tenant-a", 2, window)
	s.Require().NoError(err)
	s.False(blocked.Allowed)

	time.Sleep(window + 100*time.Millisecond)

	allowed, err := s.store.Allow(ctx, "tenant-a", 2, window)
	s.Require().NoError(err)
	s.True(allowed.Allowed)
}
