package userdict

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisDict(t *testing.T, locale string) (*RedisDict, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, locale), mr
}

func stores(t *testing.T) map[string]Store {
	rd, _ := newRedisDict(t, "en")
	return map[string]Store{
		"redis":  rd,
		"memory": NewMemory(),
	}
}

func TestStoreBasics(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Add(ctx, "Giellatekno"))
			require.NoError(t, s.Add(ctx, "divvun"))
			require.NoError(t, s.Add(ctx, " divvun "))

			ok, err := s.Contains(ctx, "divvun")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.Contains(ctx, "nope")
			require.NoError(t, err)
			assert.False(t, ok)

			all, err := s.All(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Entry{{Word: "divvun", Count: 2}, {Word: "Giellatekno", Count: 1}}, all)

			require.NoError(t, s.Remove(ctx, "divvun"))
			ok, err = s.Contains(ctx, "divvun")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.ErrorIs(t, s.Add(ctx, "   "), ErrEmptyWord)
		})
	}
}

func TestRedisKeyIsPerLocale(t *testing.T) {
	ctx := context.Background()
	d, mr := newRedisDict(t, "se")
	require.NoError(t, d.Add(ctx, "sámegiella"))

	assert.True(t, mr.Exists("userdict:se"))
	assert.False(t, mr.Exists("userdict:en"))
	score, err := mr.ZScore("userdict:se", "sámegiella")
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestRedisErrorsSurface(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	d := NewRedis(client, "en")

	assert.Error(t, d.Add(ctx, "word"))
	_, err := d.Contains(ctx, "word")
	assert.Error(t, err)
	_, err = d.All(ctx)
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, w := range []string{"kitten", "kitchen", "mitten", "mitten", "sitting", "kite"} {
				require.NoError(t, s.Add(ctx, w))
			}

			got, err := Suggest(ctx, s, "kitten", 0)
			require.NoError(t, err)
			words := make([]string, len(got))
			for i, e := range got {
				words[i] = e.Word
			}
			// mitten: 1, kitchen: 2, kite: 2; sitting is 3 away
			assert.Equal(t, []string{"mitten", "kitchen", "kite"}, words)
			assert.NotContains(t, words, "kitten")
			assert.NotContains(t, words, "sitting")

			got, err = Suggest(ctx, s, "Mittne", 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, Entry{Word: "mitten", Count: 2}, got[0])
		})
	}
}

func TestUnitDL(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"teh", "the", 1},
		{"kitten", "sitting", 3},
		{"čaffe", "cafe", 2},
		{"ca", "abc", 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, unitDL(c.a, c.b), "%q %q", c.a, c.b)
	}
}
