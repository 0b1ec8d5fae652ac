// Package userdict keeps the words a user taught the keyboard, per locale,
// with how often each was used.
package userdict

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
)

var ErrEmptyWord = errors.New("userdict: empty word")

// MaxDistance is the edit distance Suggest searches within.
const MaxDistance = 2

// Entry is a stored word and its usage count.
type Entry struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Store is implemented by the Redis and in-memory dictionaries.
type Store interface {
	// Add records one more use of word.
	Add(ctx context.Context, word string) error
	Remove(ctx context.Context, word string) error
	Contains(ctx context.Context, word string) (bool, error)
	// All lists entries by descending count.
	All(ctx context.Context) ([]Entry, error)
}

func validate(word string) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" || !utf8.ValidString(word) {
		return "", ErrEmptyWord
	}
	return word, nil
}

// =====================
// Redis
// =====================

// RedisDict stores one sorted set per locale: member is the word, score its
// usage count.
type RedisDict struct {
	client *redis.Client
	key    string
}

// NewRedis creates a dictionary for locale on client.
func NewRedis(client *redis.Client, locale string) *RedisDict {
	return &RedisDict{client: client, key: "userdict:" + locale}
}

func (d *RedisDict) Add(ctx context.Context, word string) error {
	word, err := validate(word)
	if err != nil {
		return err
	}
	return d.client.ZIncrBy(ctx, d.key, 1, word).Err()
}

func (d *RedisDict) Remove(ctx context.Context, word string) error {
	return d.client.ZRem(ctx, d.key, strings.TrimSpace(word)).Err()
}

func (d *RedisDict) Contains(ctx context.Context, word string) (bool, error) {
	err := d.client.ZScore(ctx, d.key, strings.TrimSpace(word)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

func (d *RedisDict) All(ctx context.Context) ([]Entry, error) {
	zs, err := d.client.ZRevRangeWithScores(ctx, d.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		word, _ := z.Member.(string)
		out = append(out, Entry{Word: word, Count: int64(z.Score)})
	}
	return out, nil
}

// =====================
// Memory
// =====================

// MemoryDict is a Store for tests and for running without Redis.
type MemoryDict struct {
	mu    sync.RWMutex
	words map[string]int64
}

func NewMemory() *MemoryDict {
	return &MemoryDict{words: make(map[string]int64)}
}

func (d *MemoryDict) Add(_ context.Context, word string) error {
	word, err := validate(word)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.words[word]++
	d.mu.Unlock()
	return nil
}

func (d *MemoryDict) Remove(_ context.Context, word string) error {
	d.mu.Lock()
	delete(d.words, strings.TrimSpace(word))
	d.mu.Unlock()
	return nil
}

func (d *MemoryDict) Contains(_ context.Context, word string) (bool, error) {
	d.mu.RLock()
	_, ok := d.words[strings.TrimSpace(word)]
	d.mu.RUnlock()
	return ok, nil
}

func (d *MemoryDict) All(_ context.Context) ([]Entry, error) {
	d.mu.RLock()
	out := make([]Entry, 0, len(d.words))
	for w, c := range d.words {
		out = append(out, Entry{Word: w, Count: c})
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out, nil
}

// =====================
// Suggestions
// =====================

// Suggest returns up to limit stored words within MaxDistance of word, closest
// first, then most used. The word itself is not suggested. limit <= 0 means
// no limit.
func Suggest(ctx context.Context, s Store, word string, limit int) ([]Entry, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	type scored struct {
		Entry
		dist int
	}
	lw := strings.ToLower(word)
	var hits []scored
	for _, e := range all {
		if e.Word == word {
			continue
		}
		if d := unitDL(lw, strings.ToLower(e.Word)); d <= MaxDistance {
			hits = append(hits, scored{e, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		if hits[i].Count != hits[j].Count {
			return hits[i].Count > hits[j].Count
		}
		return hits[i].Word < hits[j].Word
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Entry, len(hits))
	for i, h := range hits {
		out[i] = h.Entry
	}
	return out, nil
}
