package countstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, "mute", "guild1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.Increment(ctx, "mute", "guild1"))
	assert.NoError(cs.Increment(ctx, "mute", "guild1"))

	for _, period := range AllPeriods {
		c, err = cs.GetCount(ctx, "mute", "guild1", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	c, err = cs.GetCountDistinct(ctx, "join", "guild1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.IncrementDistinct(ctx, "join", "guild1", "user1"))
	assert.NoError(cs.IncrementDistinct(ctx, "join", "guild1", "user1"))
	assert.NoError(cs.IncrementDistinct(ctx, "join", "guild1", "user2"))
	for _, period := range AllPeriods {
		c, err = cs.GetCountDistinct(ctx, "join", "guild1", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	counts, err := GetCounts(ctx, cs, []string{"mute", "lockdown"}, "guild1", PeriodDay)
	assert.NoError(err)
	assert.Equal(map[string]int{"mute": 2, "lockdown": 0}, counts)
}

func TestMemCountStorePeriodRollover(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	cs := NewMemCountStore()
	cs.Clock = func() time.Time { return now }

	assert.NoError(cs.Increment(ctx, "lockdown", "guild1"))
	now = now.Add(time.Hour)

	c, err := cs.GetCount(ctx, "lockdown", "guild1", PeriodDay)
	assert.NoError(err)
	assert.Equal(0, c)
	c, err = cs.GetCount(ctx, "lockdown", "guild1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	var wg sync.WaitGroup
	fnInc := func(name, val string, times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			assert.NoError(cs.Increment(ctx, name, val))
			assert.NoError(cs.IncrementDistinct(ctx, name, name, val))
			time.Sleep(time.Nanosecond)
		}
	}
	fnRead := func(name, val string, times int) {
		defer wg.Done()
		for i := 0; i < times; i++ {
			_, err := cs.GetCount(ctx, name, val, PeriodTotal)
			assert.NoError(err)
			time.Sleep(time.Nanosecond)
		}
	}
	wg.Add(6)
	go fnInc("mute", "guild1", 10)
	go fnInc("mute", "guild1", 10)
	go fnRead("mute", "guild1", 10)
	go fnInc("shadowban", "guild2", 6)
	go fnInc("shadowban", "guild2", 6)
	go fnRead("shadowban", "guild2", 6)
	wg.Wait()

	c, err := cs.GetCount(ctx, "mute", "guild1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(20, c)
	c, err = cs.GetCount(ctx, "shadowban", "guild2", PeriodTotal)
	assert.NoError(err)
	assert.Equal(12, c)
	c, err = cs.GetCountDistinct(ctx, "mute", "mute", PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)
}

func TestRedisCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	cs, err := NewRedisCountStore("redis://" + mr.Addr() + "/0")
	if !assert.NoError(err) {
		return
	}
	defer cs.Client.Close()

	c, err := cs.GetCount(ctx, "mute", "guild1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.Increment(ctx, "mute", "guild1"))
	assert.NoError(cs.Increment(ctx, "mute", "guild1"))
	for _, period := range AllPeriods {
		c, err = cs.GetCount(ctx, "mute", "guild1", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	assert.NoError(cs.IncrementDistinct(ctx, "join", "guild1", "user1"))
	assert.NoError(cs.IncrementDistinct(ctx, "join", "guild1", "user1"))
	assert.NoError(cs.IncrementDistinct(ctx, "join", "guild1", "user2"))
	c, err = cs.GetCountDistinct(ctx, "join", "guild1", PeriodDay)
	assert.NoError(err)
	assert.Equal(2, c)
}
