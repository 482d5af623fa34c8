package commentary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Google generative-language endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	defaultTimeout = 15 * time.Second
)

// Gemini is an Analyst backed by a generateContent endpoint. A missing key,
// transport failure, non-200 status, unparseable body, or unknown sentiment
// all degrade to Fallback().
type Gemini struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

type GeminiOption func(*Gemini)

func WithBaseURL(u string) GeminiOption {
	return func(g *Gemini) { g.baseURL = u }
}

func WithModel(m string) GeminiOption {
	return func(g *Gemini) { g.model = m }
}

func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) { g.httpClient = c }
}

func WithLogger(l *slog.Logger) GeminiOption {
	return func(g *Gemini) { g.logger = l }
}

func NewGemini(apiKey string, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(slog.String("component", "commentary"))
	return g
}

// request/response shapes for the generateContent wire format.

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Analyze asks the model for a headline, analysis, and sentiment. It never
// returns an error; failures degrade to the fixed fallback.
func (g *Gemini) Analyze(ctx context.Context, req Request) Analysis {
	a, err := g.call(ctx, req)
	if err != nil {
		g.logger.Warn("analysis unavailable, using fallback",
			slog.String("error", err.Error()),
		)
		return Fallback()
	}
	return a
}

func (g *Gemini) call(ctx context.Context, req Request) (Analysis, error) {
	if g.apiKey == "" {
		return Analysis{}, fmt.Errorf("no api key configured")
	}

	prompt := fmt.Sprintf(`You are a Forex Market Analyst for a trading game.
Current EUR/USD Price: %.4f.
Recent Trend: %s.
%sGenerate a realistic, short financial news headline and a brief analysis explaining the move.
Determine if the sentiment is BULLISH, BEARISH, or NEUTRAL.
Respond with a JSON object with string fields "headline", "analysis" and "sentiment".`,
		req.Price, req.Trend, averagesLine(req))

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return Analysis{}, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Analysis{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Analysis{}, fmt.Errorf("read response: %w", err)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return Analysis{}, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return Analysis{}, fmt.Errorf("empty response")
	}

	var a Analysis
	if err := json.Unmarshal([]byte(gr.Candidates[0].Content.Parts[0].Text), &a); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if a.Headline == "" || !a.Sentiment.Valid() {
		return Analysis{}, fmt.Errorf("malformed analysis")
	}
	return a, nil
}

// averagesLine renders the optional moving-average context for the prompt.
func averagesLine(req Request) string {
	if req.SMA == 0 && req.EMA == 0 {
		return ""
	}
	return fmt.Sprintf("Moving Averages: SMA %.4f, EMA %.4f.\n", req.SMA, req.EMA)
}
