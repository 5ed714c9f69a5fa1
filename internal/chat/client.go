// Package chat implements the natural-language assistant panel: the query
// client, the transcript and the formatting of prediction replies.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/smartmap-fr/smartmap/internal/fetcher"
	"github.com/smartmap-fr/smartmap/internal/locale"
)

// Path is the assistant endpoint.
const Path = "/api/ai/chat/"

// Request is the body posted to the assistant.
type Request struct {
	Question string `json:"question"`
	Language string `json:"language"`
}

// Label is a display label that the server may send as a string or a number.
type Label string

// UnmarshalJSON implements json.Unmarshaler.
func (l *Label) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return eris.Wrap(err, "chat: decode label")
	}
	*l = Label(n.String())
	return nil
}

// RankedDistrict is one entry of the predicted ranking.
type RankedDistrict struct {
	Arrondissement     Label   `json:"arrondissement"`
	PredictedPrice2025 float64 `json:"predicted_price_2025"`
	GrowthPercent      float64 `json:"growth_percent"`
}

// Predictions are the optional forecast attached to a reply.
type Predictions struct {
	Insights           []string         `json:"insights"`
	TopArrondissements []RankedDistrict `json:"top_arrondissements"`
}

// Reply is the assistant's answer. Error is set instead of Response when the
// server rejected the question.
type Reply struct {
	Response    string       `json:"response"`
	Error       string       `json:"error"`
	Details     string       `json:"details"`
	Predictions *Predictions `json:"predictions"`
}

// Client posts questions to the assistant.
type Client struct {
	baseURL string
	f       fetcher.Fetcher
}

// NewClient returns a Client rooted at baseURL.
func NewClient(baseURL string, f fetcher.Fetcher) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), f: f}
}

// Ask sends a question. The reply body is decoded whatever the HTTP status,
// since the server reports failures as {"error": ...}. Transport failures and
// undecodable bodies are returned as errors.
func (c *Client) Ask(ctx context.Context, question string, lang locale.Language) (*Reply, error) {
	body, err := json.Marshal(Request{Question: question, Language: string(lang)})
	if err != nil {
		return nil, eris.Wrap(err, "chat: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+Path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "chat: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.f.Do(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "chat: send")
	}
	defer resp.Body.Close() //nolint:errcheck

	reply, err := fetcher.DecodeJSONObject[Reply](resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "chat: decode reply (status %d)", resp.StatusCode)
	}
	return reply, nil
}
