package service

import (
	"errors"
	"fmt"
	"github.com/dgraph-io/ristretto"
)

// MatchCache memoises Match results. Keys embed the keyword-set version, so an
// edit to the set never serves stale tags.
type MatchCache interface {
	Get(key string) ([]string, bool)
	Put(key string, keywords []string) error
}

type MatchCacheImpl struct {
	cache *ristretto.Cache
}

func NewMatchCache(maxEntries int64) (*MatchCacheImpl, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}
	return &MatchCacheImpl{cache: cache}, nil
}

func (mc *MatchCacheImpl) Get(key string) ([]string, bool) {
	value, found := mc.cache.Get(key)
	if !found {
		return nil, false
	}
	typedValue, ok := value.([]string)
	if !ok {
		return nil, false
	}
	return cloneKeywords(typedValue), true
}

func (mc *MatchCacheImpl) Put(key string, keywords []string) error {
	if !mc.cache.Set(key, cloneKeywords(keywords), 1) {
		return ErrSetFailed
	}
	return nil
}

// Wait blocks until buffered writes are applied.
func (mc *MatchCacheImpl) Wait() {
	mc.cache.Wait()
}

func (mc *MatchCacheImpl) Close() {
	mc.cache.Close()
}

func cloneKeywords(keywords []string) []string {
	if keywords == nil {
		return nil
	}
	dup := make([]string, len(keywords))
	copy(dup, keywords)
	return dup
}

var ErrSetFailed = errors.New("failed to set value in match cache")
