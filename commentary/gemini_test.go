package commentary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/fxterm/market"
)

func modelResponse(t *testing.T, text string) []byte {
	t.Helper()
	body, err := json.Marshal(generateResponse{
		Candidates: []struct {
			Content content `json:"content"`
		}{
			{Content: content{Parts: []part{{Text: text}}}},
		},
	})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return body
}

func TestAnalyzeSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		w.Write(modelResponse(t, `{"headline":"Euro rallies","analysis":"Strong data out of Frankfurt.","sentiment":"BULLISH"}`))
	}))
	defer srv.Close()

	g := NewGemini("test-key", WithBaseURL(srv.URL))
	a := g.Analyze(context.Background(), Request{Price: 1.0850, Trend: market.TrendUp})

	assert.Equal(t, "Euro rallies", a.Headline)
	assert.Equal(t, Bullish, a.Sentiment)
}

func TestAnalyzeFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			"garbage body",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			"no candidates",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"candidates":[]}`))
			},
		},
		{
			"bad sentiment",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write(modelResponse(t, `{"headline":"h","analysis":"a","sentiment":"SIDEWAYS"}`))
			},
		},
		{
			"missing headline",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write(modelResponse(t, `{"analysis":"a","sentiment":"NEUTRAL"}`))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := NewGemini("test-key", WithBaseURL(srv.URL))
			a := g.Analyze(context.Background(), Request{Price: 1.0850, Trend: market.TrendFlat})
			assert.Equal(t, Fallback(), a)
		})
	}
}

func TestAnalyzeWithoutKey(t *testing.T) {
	t.Parallel()

	g := NewGemini("")
	a := g.Analyze(context.Background(), Request{Price: 1.0850, Trend: market.TrendDown})
	assert.Equal(t, Fallback(), a)
}

func TestAnalyzeUnreachableHost(t *testing.T) {
	t.Parallel()

	g := NewGemini("test-key", WithBaseURL("http://127.0.0.1:1"))
	a := g.Analyze(context.Background(), Request{Price: 1.0850, Trend: market.TrendUp})
	assert.Equal(t, Fallback(), a)
}
