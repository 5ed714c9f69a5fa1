package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smartmap-fr/smartmap/internal/locale"
	"github.com/smartmap-fr/smartmap/internal/metrics"
)

// ErrEmptyQuestion is returned by Send for blank input.
var ErrEmptyQuestion = eris.New("chat: empty question")

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind distinguishes message presentations.
type Kind string

const (
	KindText        Kind = "text"
	KindLoading     Kind = "loading"
	KindSuggestions Kind = "suggestions"
	KindPredictions Kind = "predictions"
	KindRanking     Kind = "ranking"
)

// Message is one transcript entry.
type Message struct {
	ID          string   `json:"id"`
	Role        Role     `json:"role"`
	Kind        Kind     `json:"kind"`
	Text        string   `json:"text,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Transcript is an ordered, concurrent-safe list of messages.
type Transcript struct {
	mu   sync.Mutex
	msgs []Message
}

// Add appends a message and returns it.
func (t *Transcript) Add(m Message) Message {
	m.ID = uuid.New().String()
	t.mu.Lock()
	t.msgs = append(t.msgs, m)
	t.mu.Unlock()
	return m
}

// Remove deletes a message by id.
func (t *Transcript) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.IndexFunc(t.msgs, func(m Message) bool { return m.ID == id })
	if i < 0 {
		return false
	}
	t.msgs = slices.Delete(t.msgs, i, i+1)
	return true
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.msgs)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, question string, lang locale.Language) (*Reply, error)
}

// Session drives one assistant conversation.
type Session struct {
	asker      Asker
	transcript *Transcript

	mu   sync.RWMutex
	lang locale.Language
}

// NewSession returns a Session with an empty transcript.
func NewSession(asker Asker, lang locale.Language) *Session {
	return &Session{asker: asker, lang: lang, transcript: &Transcript{}}
}

// Transcript returns the session transcript.
func (s *Session) Transcript() *Transcript { return s.transcript }

// SetLanguage switches the language of later messages. An exchange already
// in flight finishes in the language it started with.
func (s *Session) SetLanguage(lang locale.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lang = lang
}

// Language returns the current language.
func (s *Session) Language() locale.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

// Open greets the user the first time the panel is shown.
func (s *Session) Open() {
	if s.transcript.Len() > 0 {
		return
	}
	txt := For(s.Language())
	s.transcript.Add(Message{Role: RoleAssistant, Kind: KindText, Text: txt.Welcome})
	s.transcript.Add(Message{Role: RoleAssistant, Kind: KindText, Text: txt.ExamplesHeader})
	s.transcript.Add(Message{Role: RoleAssistant, Kind: KindSuggestions, Suggestions: slices.Clone(txt.Suggestions)})
}

// Send asks a question and records the exchange. A transport failure is
// recorded as a connection-error message and also returned.
func (s *Session) Send(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}
	lang := s.Language()
	txt := For(lang)

	s.transcript.Add(Message{Role: RoleUser, Kind: KindText, Text: question})
	loading := s.transcript.Add(Message{Role: RoleAssistant, Kind: KindLoading, Text: txt.Loading})

	reply, err := s.asker.Ask(ctx, question, lang)
	s.transcript.Remove(loading.ID)
	if err != nil {
		metrics.ChatRequests.WithLabelValues("transport_error").Inc()
		zap.L().Error("chat: ask failed", zap.Error(err))
		s.transcript.Add(Message{Role: RoleAssistant, Kind: KindText, Text: txt.ConnectionError})
		return err
	}

	if reply.Error != "" {
		metrics.ChatRequests.WithLabelValues("server_error").Inc()
		s.transcript.Add(Message{Role: RoleAssistant, Kind: KindText, Text: txt.ErrorPrefix + reply.Error})
		return nil
	}

	metrics.ChatRequests.WithLabelValues("answer").Inc()
	s.transcript.Add(Message{Role: RoleAssistant, Kind: KindText, Text: reply.Response})
	if p := reply.Predictions; p != nil && len(p.Insights) > 0 {
		s.transcript.Add(Message{Role: RoleAssistant, Kind: KindPredictions, Text: FormatInsights(lang, p.Insights)})
		if len(p.TopArrondissements) > 0 {
			s.transcript.Add(Message{Role: RoleAssistant, Kind: KindRanking, Text: FormatRanking(lang, p.TopArrondissements)})
		}
	}
	return nil
}

// FormatInsights renders the predictions block.
func FormatInsights(lang locale.Language, insights []string) string {
	var b strings.Builder
	b.WriteString(For(lang).PredictionsHeader)
	b.WriteString("\n\n")
	for _, in := range insights {
		b.WriteString("• ")
		b.WriteString(in)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRanking renders at most five predicted districts.
func FormatRanking(lang locale.Language, top []RankedDistrict) string {
	txt := For(lang)
	var b strings.Builder
	b.WriteString(txt.RankingHeader)
	b.WriteString("\n\n")
	for i, d := range top[:min(5, len(top))] {
		trend := "📉"
		if d.GrowthPercent > 0 {
			trend = "📈"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, d.Arrondissement)
		fmt.Fprintf(&b, "   %s: %s €/m² %s (%s%%)\n\n",
			txt.PredictedPrice,
			lang.Number(d.PredictedPrice2025, 2),
			trend,
			lang.Signed(d.GrowthPercent, 2),
		)
	}
	return b.String()
}
