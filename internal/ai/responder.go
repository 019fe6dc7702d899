package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jezakh/patanabot/internal/config"
	"github.com/jezakh/patanabot/internal/shop"
	"github.com/jezakh/patanabot/internal/store"
)

// FallbackReply is the only failure text a customer ever sees.
const FallbackReply = "Samahani Boss, kuna tatizo la mfumo kwa sasa. Tafadhali jaribu tena baadaye! 🙏"

// Media is an inline attachment forwarded to the model.
type Media struct {
	Data []byte
	MIME string
}

// Responder generates persona replies with Gemini. The model is configured
// fresh on every call so inventory changes reflect immediately, and every
// call carries a bounded timeout so a hung upstream cannot stall a
// customer turn forever.
type Responder struct {
	client    *genai.Client
	modelName string
	shop      *shop.Store
	customers *store.CustomerStore
	timeout   time.Duration
}

// New creates a Responder.
func New(ctx context.Context, cfg config.GeminiConfig, shopStore *shop.Store, customers *store.CustomerStore) (*Responder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Responder{
		client:    client,
		modelName: cfg.Model,
		shop:      shopStore,
		customers: customers,
		timeout:   cfg.Timeout,
	}, nil
}

// Close closes the client connection.
func (r *Responder) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

// Generate produces a reply for phone from prompt, using the stored
// conversation window as context.
func (r *Responder) Generate(ctx context.Context, phone, prompt string) (string, error) {
	return r.GenerateWithMedia(ctx, phone, prompt, nil)
}

// GenerateWithMedia is Generate plus an optional inline attachment.
func (r *Responder) GenerateWithMedia(ctx context.Context, phone, prompt string, media *Media) (string, error) {
	return r.generate(ctx, phone, prompt, media)
}

func (r *Responder) generate(ctx context.Context, phone, prompt string, media *Media) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	model := r.client.GenerativeModel(r.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(buildSystemInstruction(r.shop.Snapshot()))},
	}

	history := store.Sanitize(r.customers.History(phone))
	cs := model.StartChat()
	cs.History = toGenaiHistory(history)

	var parts []genai.Part
	text := prompt
	if text == "" && media != nil {
		text = "Elezea hii picha/sauti"
	}
	parts = append(parts, genai.Text(text))
	if media != nil {
		parts = append(parts, genai.Blob{MIMEType: media.MIME, Data: media.Data})
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		// A history-shape rejection means the stored window is beyond
		// repair; clear it so the next turn starts clean.
		if looksLikeHistoryError(err) {
			if resetErr := r.customers.ResetHistory(phone); resetErr == nil {
				log.Printf("🧹 Cleared corrupted history for %s — next message will work", phone)
			}
		}
		return "", fmt.Errorf("gemini generation error for %s: %w", phone, err)
	}

	reply := extractText(resp)
	if reply == "" {
		return "", fmt.Errorf("empty response from gemini for %s", phone)
	}

	stored := prompt
	if stored == "" {
		stored = "[Media Message]"
	}
	updated := append(history,
		store.Turn{Role: store.RoleCustomer, Text: stored},
		store.Turn{Role: store.RoleAssistant, Text: reply},
	)
	if err := r.customers.SaveHistory(phone, updated); err != nil {
		log.Printf("⚠️ History save failed for %s: %v", phone, err)
	}

	return reply, nil
}

func toGenaiHistory(turns []store.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == store.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}
	return out
}

func extractText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

func looksLikeHistoryError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "First content") || strings.Contains(msg, "role")
}
