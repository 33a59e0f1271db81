package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wishlane/wishlane-backend/pkg/logger"
	"github.com/wishlane/wishlane-backend/pkg/openai"
)

const systemPrompt = `You are a product identification assistant. ` +
	`Given a product reference, respond with ONLY a JSON object, no prose and no markdown, with exactly these fields: ` +
	`{"name": string, "price": string, "currency": string ISO 4217, "tags": [string], "shoppingLink": string, "description": string, "imageUrl": string or ""}. ` +
	`Use "0" for price when unknown and keep the description under 200 characters.`

type chatCaller interface {
	ChatCompletion(ctx context.Context, messages []openai.Message) (string, error)
}

type openAIEngine struct {
	client chatCaller
	logg   *logger.Logger
}

func newOpenAIEngine(client chatCaller, logg *logger.Logger) *openAIEngine {
	return &openAIEngine{client: client, logg: logg}
}

func (e *openAIEngine) FromImage(ctx context.Context, imageBytes []byte, mimeType, language string) (*ProductDraft, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageBytes))

	messages := []openai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: []openai.ContentPart{
			{Type: "text", Text: userInstruction("Identify the product in this photo.", language)},
			{Type: "image_url", ImageURL: &openai.ImageURL{URL: dataURI}},
		}},
	}

	return e.complete(ctx, messages)
}

func (e *openAIEngine) FromText(ctx context.Context, inputText, language string, searchCtx *SearchContext, suggestedQuery string) (*ProductDraft, error) {
	var prompt strings.Builder
	prompt.WriteString("Identify this product: ")
	prompt.WriteString(strings.TrimSpace(inputText))
	if suggestedQuery != "" {
		prompt.WriteString("\nMarketplace search query: ")
		prompt.WriteString(suggestedQuery)
	}
	if searchCtx != nil {
		prompt.WriteString("\nWeb search context:\n")
		prompt.WriteString("title: " + searchCtx.Title + "\n")
		prompt.WriteString("snippet: " + searchCtx.Snippet + "\n")
		prompt.WriteString("link: " + searchCtx.Link)
	}

	messages := []openai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userInstruction(prompt.String(), language)},
	}

	return e.complete(ctx, messages)
}

func (e *openAIEngine) complete(ctx context.Context, messages []openai.Message) (*ProductDraft, error) {
	raw, err := e.client.ChatCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}

	draft, err := parseDraft(raw)
	if err != nil {
		if e.logg != nil {
			e.logg.Error(ctx, "model response failed to parse", err)
		}
		return nil, err
	}
	return draft, nil
}

// parseDraft strips any markdown code fence and decodes the JSON object.
// Parse failure is a hard error, fields are never guessed at.
func parseDraft(raw string) (*ProductDraft, error) {
	cleaned := stripCodeFence(raw)

	var draft ProductDraft
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return nil, &FormatError{Raw: raw}
	}
	if strings.TrimSpace(draft.Name) == "" {
		return nil, &FormatError{Raw: raw}
	}
	return &draft, nil
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func userInstruction(body, language string) string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "en"
	}
	return body + "\nRespond in language: " + lang
}
