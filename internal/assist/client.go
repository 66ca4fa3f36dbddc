// Package assist talks to the Gemini text-generation API. The service is an
// opaque collaborator: it receives a prompt and returns plain text, and any
// failure surfaces to the caller as a single error with no retry.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"coopmanager/internal/core"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-3-flash-preview"
)

// Fixed user-facing messages, shown verbatim when the collaborator fails or
// returns nothing.
const (
	MsgAnalysisUnavailable = "Не можах да генерирам анализ в момента."
	MsgAnalysisError       = "Грешка при комуникация с AI асистента."
	MsgNoticeUnavailable   = "Не можах да генерирам съобщение."
	MsgNoticeError         = "Грешка при генериране на съобщение."
)

type Client struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client

	// Collapses overlapping duplicate requests from the same trigger; the
	// dashboard fires one generation and one analysis at a time.
	group singleflight.Group
}

// NewFromEnv creates a client using environment variables.
// Required: GEMINI_API_KEY. Optional: GEMINI_MODEL.
func NewFromEnv() (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}

	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = defaultModel
	}

	return New(apiKey, model, defaultBaseURL), nil
}

func New(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   newHTTPClient(),
	}
}

// newHTTPClient builds an HTTP client with pooling and timeouts tuned for a
// slow text-generation backend.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   90 * time.Second,
	}
}

// GenerateNotice asks for an official building notice on the given topic.
func (c *Client) GenerateNotice(ctx context.Context, topic string) (string, error) {
	prompt := "Напиши официално съобщение за входа на жилищна кооперация на тема: " + topic +
		". Стилът трябва да е учтив, но ясен. Включи места за попълване на дата и час (в скоби)."

	// Keyed by topic so only identical triggers share a call; distinct
	// topics must each reach the backend.
	text, err, _ := c.group.Do("notice:"+topic, func() (any, error) {
		return c.generateContent(ctx, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("generate notice: %w", err)
	}
	return text.(string), nil
}

// AnalyzeFinances asks for a short financial analysis over snapshots of the
// expense log and the apartment collection.
func (c *Client) AnalyzeFinances(ctx context.Context, expenses []core.Expense, apartments []core.Apartment) (string, error) {
	expenseData, err := json.Marshal(expenses)
	if err != nil {
		return "", fmt.Errorf("encode expenses: %w", err)
	}
	apartmentData, err := json.Marshal(apartments)
	if err != nil {
		return "", fmt.Errorf("encode apartments: %w", err)
	}

	prompt := `Както експерт по управление на етажна собственост, анализирай следните данни за разходи и апартаменти в една жилищна кооперация.
ВАЖНИ ПРАВИЛА:
1. Апартаментите на 1-ви етаж не заплащат такси за асансьор.
2. Домашните любимци се таксуват като един допълнителен живущ за общите разходи.

Разходи: ` + string(expenseData) + `.
Апартаменти: ` + string(apartmentData) + `.

Направи кратък анализ на български език:
1. Кои са най-големите пера в разходите?
2. Има ли притеснителни задължения от страна на собствениците, като вземеш предвид броя живущи (вкл. домашни любимци)?
3. Дай 3 конкретни препоръки за оптимизация на бюджета.
Бъди кратък и професионален.`

	text, err, _ := c.group.Do("analyze", func() (any, error) {
		return c.generateContent(ctx, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("analyze finances: %w", err)
	}
	return text.(string), nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generateContent(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call text service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.WarnContext(ctx, "Text service returned error status",
			"status", resp.StatusCode,
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("text service status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var sb strings.Builder
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		break // first candidate only
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("empty response from text service")
	}

	slog.InfoContext(ctx, "Text generated",
		"model", c.model,
		"prompt_len", len(prompt),
		"text_len", len(text),
		"duration_ms", time.Since(start).Milliseconds())

	return text, nil
}
