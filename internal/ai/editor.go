package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"github.com/jezakh/patanabot/internal/shop"
)

// EditInventory applies the owner's natural-language instruction to the
// inventory via Gemini in JSON mode and returns the new item count. The
// model receives the current list and must return the complete new list.
func (r *Responder) EditInventory(ctx context.Context, instruction string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	profile, err := r.shop.Get()
	if err != nil {
		return 0, fmt.Errorf("failed to read inventory: %w", err)
	}
	current, err := json.MarshalIndent(profile.Inventory, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to serialize inventory: %w", err)
	}

	model := r.client.GenerativeModel(r.modelName)
	model.GenerationConfig.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(editorPrompt, current, instruction)))
	if err != nil {
		return 0, fmt.Errorf("inventory edit generation failed: %w", err)
	}
	raw := extractText(resp)
	if raw == "" {
		return 0, fmt.Errorf("empty response from inventory editor")
	}

	var items []shop.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return 0, fmt.Errorf("inventory editor did not return a valid item array: %w", err)
	}
	if err := r.shop.ReplaceInventory(items); err != nil {
		return 0, err
	}
	return len(items), nil
}
