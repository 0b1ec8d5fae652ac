package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speller/internal/archive/archivetest"
	"speller/internal/corrector"
	"speller/internal/metrics"
	"speller/internal/speller"
	"speller/internal/userdict"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *userdict.MemoryDict) {
	t.Helper()
	sp, err := speller.Open(archivetest.Write(t, "en", "the", "then", "they", "cat", "car", "card", "dog"))
	require.NoError(t, err)
	t.Cleanup(func() { sp.Close() })

	dict := userdict.NewMemory()
	sc := corrector.NewSpellCorrector(corrector.DefaultConfig(), sp, dict, nil)
	ts := httptest.NewServer(New(sc, opts...).Handler())
	t.Cleanup(ts.Close)
	return ts, dict
}

func post(t *testing.T, ts *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestSuggest(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, out := post(t, ts, "/api/v1/suggest", `{"word":"teh","n_best":1}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "teh", out["word"])
	sugs := out["suggestions"].([]any)
	require.Len(t, sugs, 1)
	first := sugs[0].(map[string]any)
	assert.Equal(t, "the", first["value"])
	assert.InDelta(t, 1.0, first["weight"], 1e-6)

	// a zero weight limit leaves only exact matches
	_, out = post(t, ts, "/api/v1/suggest", `{"word":"teh","max_weight":0}`)
	assert.Empty(t, out["suggestions"])

	_, out = post(t, ts, "/api/v1/suggest", `{"word":"car","beam":0}`)
	sugs = out["suggestions"].([]any)
	require.Len(t, sugs, 1)
	assert.Equal(t, "car", sugs[0].(map[string]any)["value"])
}

func TestSuggestBadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, out := post(t, ts, "/api/v1/suggest", `{"word":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "word is required", out["error"])

	resp, out = post(t, ts, "/api/v1/suggest", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request", out["error"])

	resp, err := http.Get(ts.URL + "/api/v1/suggest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIsCorrect(t *testing.T) {
	ts, _ := newTestServer(t)

	_, out := post(t, ts, "/api/v1/is-correct", `{"word":"cat"}`)
	assert.Equal(t, true, out["correct"])

	_, out = post(t, ts, "/api/v1/is-correct", `{"word":"The"}`)
	assert.Equal(t, true, out["correct"])

	_, out = post(t, ts, "/api/v1/is-correct", `{"word":"cst"}`)
	assert.Equal(t, false, out["correct"])
}

func TestTokenize(t *testing.T) {
	ts, _ := newTestServer(t)

	_, out := post(t, ts, "/api/v1/tokenize", `{"text":"Hello, world"}`)
	toks := out["tokens"].([]any)
	require.Len(t, toks, 4)
	first := toks[0].(map[string]any)
	assert.Equal(t, "word", first["type"])
	assert.Equal(t, "Hello", first["value"])
	assert.EqualValues(t, 0, first["start"])
	assert.EqualValues(t, 5, first["end"])
	assert.Equal(t, "punctuation", toks[1].(map[string]any)["type"])
}

func TestCheck(t *testing.T) {
	ts, dict := newTestServer(t)
	require.NoError(t, dict.Add(context.Background(), "divvun"))

	resp, out := post(t, ts, "/api/v1/check", `{"text":"teh cat and divvun"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 4, out["words"])
	miss := out["misspellings"].([]any)
	var words []string
	for _, m := range miss {
		words = append(words, m.(map[string]any)["word"].(string))
	}
	assert.Equal(t, []string{"teh", "and"}, words)
	assert.True(t, strings.HasPrefix(out["corrected"].(string), "the cat "))

	resp, _ = post(t, ts, "/api/v1/check", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBanner(t *testing.T) {
	ts, _ := newTestServer(t)

	_, out := post(t, ts, "/api/v1/banner", `{"word":"teh"}`)
	items := out["items"].([]any)
	require.Len(t, items, 4)
	first := items[0].(map[string]any)
	assert.Equal(t, `"teh"`, first["title"])
	assert.Equal(t, "typed", first["source"])
	assert.Equal(t, "the", items[1].(map[string]any)["value"])

	_, out = post(t, ts, "/api/v1/banner", `{"word":""}`)
	assert.Empty(t, out["items"])
}

func TestInfo(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "en", out["locale"])
}

func TestUserWords(t *testing.T) {
	ts, dict := newTestServer(t)

	resp, out := post(t, ts, "/api/v1/user-word", `{"word":"divvun"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
	ok, err := dict.Contains(context.Background(), "divvun")
	require.NoError(t, err)
	assert.True(t, ok)

	resp, err = http.Get(ts.URL + "/api/v1/user-word")
	require.NoError(t, err)
	var list struct {
		Words []userdict.Entry `json:"words"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Equal(t, []userdict.Entry{{Word: "divvun", Count: 1}}, list.Words)

	resp, out = post(t, ts, "/api/v1/user-word", `{"word":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request", out["error"])

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/user-word/divvun", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ok, err = dict.Contains(context.Background(), "divvun")
	require.NoError(t, err)
	assert.False(t, ok)

	req, err = http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/user-word/", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	c := metrics.NewCollector(prometheus.NewRegistry())
	ts, _ := newTestServer(t, WithMetrics(c, "/metrics"))

	post(t, ts, "/api/v1/suggest", `{"word":"teh"}`)
	post(t, ts, "/api/v1/is-correct", `{"word":"cat"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `speller_queries_total{op="suggest"} 1`)
	assert.Contains(t, string(body), `speller_queries_total{op="is-correct"} 1`)
}
