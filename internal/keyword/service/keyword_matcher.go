package service

import (
	"errors"
	"fmt"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"strings"
	"sync"
)

// BuiltinKeywords are always active and can never be removed.
var BuiltinKeywords = []string{"ERROR", "FAIL", "WARNING"}

var (
	ErrEmptyKeyword     = errors.New("keyword must not be empty")
	ErrDuplicateKeyword = errors.New("keyword already present")
	ErrBuiltinKeyword   = errors.New("built-in keywords cannot be removed")
	ErrKeywordNotFound  = errors.New("keyword not found")
)

// KeywordMatcher owns an ordered keyword set and tags text against it.
// Matching is case-insensitive substring containment; keyword identity is case-sensitive.
type KeywordMatcher interface {
	Add(keyword string) error
	Remove(keyword string) error
	// Keywords returns built-in keywords followed by user keywords in insertion order.
	Keywords() []string
	UserKeywords() []string
	IsBuiltin(keyword string) bool
	Match(text string) []string
	CountOccurrences(records []model.LogRecord, keyword string) int
	Version() uint64
}

type KeywordMatcherImpl struct {
	mu      sync.RWMutex
	id      string
	builtin []entry
	user    []entry
	version uint64
	cache   MatchCache
	logger  *zap.Logger
}

type entry struct {
	keyword string
	folded  string
}

// NewKeywordMatcher builds a keyword set from the built-in subset and an initial user subset.
// Invalid or duplicate initial keywords are skipped with a warning. cache may be nil.
func NewKeywordMatcher(
	builtin []string,
	initial []string,
	cache MatchCache,
	logger *zap.Logger,
) *KeywordMatcherImpl {
	km := &KeywordMatcherImpl{
		id:     uuid.NewString(),
		cache:  cache,
		logger: logger,
	}
	for _, keyword := range builtin {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" || km.containsLocked(keyword) {
			continue
		}
		km.builtin = append(km.builtin, newEntry(keyword))
	}
	for _, keyword := range initial {
		if err := km.Add(keyword); err != nil {
			logger.Warn("Skipping initial keyword", zap.String("keyword", keyword), zap.Error(err))
		}
	}
	return km
}

func newEntry(keyword string) entry {
	return entry{keyword: keyword, folded: strings.ToLower(keyword)}
}

func (km *KeywordMatcherImpl) Add(keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return ErrEmptyKeyword
	}
	km.mu.Lock()
	defer km.mu.Unlock()
	if km.containsLocked(keyword) {
		return fmt.Errorf("%w: %q", ErrDuplicateKeyword, keyword)
	}
	km.user = append(km.user, newEntry(keyword))
	km.version++
	return nil
}

func (km *KeywordMatcherImpl) Remove(keyword string) error {
	km.mu.Lock()
	defer km.mu.Unlock()
	for _, e := range km.builtin {
		if e.keyword == keyword {
			return fmt.Errorf("%w: %q", ErrBuiltinKeyword, keyword)
		}
	}
	for i, e := range km.user {
		if e.keyword == keyword {
			km.user = append(km.user[:i:i], km.user[i+1:]...)
			km.version++
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrKeywordNotFound, keyword)
}

func (km *KeywordMatcherImpl) Keywords() []string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	keywords := make([]string, 0, len(km.builtin)+len(km.user))
	for _, e := range km.builtin {
		keywords = append(keywords, e.keyword)
	}
	for _, e := range km.user {
		keywords = append(keywords, e.keyword)
	}
	return keywords
}

func (km *KeywordMatcherImpl) UserKeywords() []string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	keywords := make([]string, len(km.user))
	for i, e := range km.user {
		keywords[i] = e.keyword
	}
	return keywords
}

func (km *KeywordMatcherImpl) IsBuiltin(keyword string) bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	for _, e := range km.builtin {
		if e.keyword == keyword {
			return true
		}
	}
	return false
}

func (km *KeywordMatcherImpl) Version() uint64 {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.version
}

// Match returns every active keyword contained in text, in keyword-set order.
func (km *KeywordMatcherImpl) Match(text string) []string {
	km.mu.RLock()
	defer km.mu.RUnlock()

	var key string
	if km.cache != nil {
		key = fmt.Sprintf("%s:%d:%s", km.id, km.version, text)
		if cached, found := km.cache.Get(key); found {
			return cached
		}
	}

	folded := strings.ToLower(text)
	var matched []string
	for _, e := range km.builtin {
		if strings.Contains(folded, e.folded) {
			matched = append(matched, e.keyword)
		}
	}
	for _, e := range km.user {
		if strings.Contains(folded, e.folded) {
			matched = append(matched, e.keyword)
		}
	}

	if km.cache != nil {
		if err := km.cache.Put(key, matched); err != nil {
			km.logger.Debug("Match result not cached", zap.Error(err))
		}
	}
	return matched
}

// CountOccurrences counts records whose message contains keyword case-insensitively.
func (km *KeywordMatcherImpl) CountOccurrences(records []model.LogRecord, keyword string) int {
	return CountOccurrences(records, keyword)
}

// ContainsFold reports whether keyword occurs in text ignoring case. Match and
// CountOccurrences both reduce to this test.
func ContainsFold(text, keyword string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

func CountOccurrences(records []model.LogRecord, keyword string) int {
	count := 0
	for _, record := range records {
		if ContainsFold(record.Message, keyword) {
			count++
		}
	}
	return count
}

func (km *KeywordMatcherImpl) containsLocked(keyword string) bool {
	for _, e := range km.builtin {
		if e.keyword == keyword {
			return true
		}
	}
	for _, e := range km.user {
		if e.keyword == keyword {
			return true
		}
	}
	return false
}
