// internal/infra/gemini/client.go
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ForWorkCodes/learn-en-bot/internal/domain/content"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Client implements content.Provider and content.Synthesizer on top of the
// Gemini API. Without an API key every call degrades to the canned fallback
// instead of erroring, so the scheduler always has something to deliver.
type Client struct {
	client   *genai.Client // nil when no API key is configured
	model    string
	ttsModel string
	ttsVoice string
	logger   *logrus.Entry
}

func NewClient(ctx context.Context, apiKey, model, ttsModel, ttsVoice string, logger *logrus.Entry) (*Client, error) {
	c := &Client{
		model:    model,
		ttsModel: ttsModel,
		ttsVoice: ttsVoice,
		logger:   logger,
	}
	if apiKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; content provider will serve fallback payloads only")
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.client = client
	return c, nil
}

const verbPrompt = "Подбери один английский фразовый глагол для изучения сегодня. " +
	"Ответ дай строго в JSON с полями: " +
	"verb (строка), translation (краткий перевод на русский), " +
	"explanation (короткое пояснение на русском без приветствий и обращений), " +
	"examples (массив из 2-3 объектов с полями text и translation, где text — предложение на английском, " +
	"а translation — краткий перевод на русский)."

// GeneratePayload asks Gemini for a verb payload. Any failure — missing key,
// transport error, unparseable response — yields the fallback payload, never
// an error.
func (c *Client) GeneratePayload(ctx context.Context) content.Payload {
	raw, err := c.generate(ctx, verbPrompt)
	if err != nil {
		c.logger.WithError(err).Error("Gemini payload generation failed, serving fallback")
		return FallbackPayload()
	}

	payload, err := parseVerbPayload(raw)
	if err != nil {
		c.logger.WithError(err).Warn("Gemini payload response was not valid, serving fallback")
		return FallbackPayload()
	}
	return payload
}

// Evaluate judges the learner's sentence. A score of 4 or 5 counts as
// mastered. Parse failures degrade to neutral feedback, not an error.
func (c *Client) Evaluate(ctx context.Context, verb, userText string) (string, bool, error) {
	prompt := "Оцени, верно ли пользователь использует фразовый глагол. " +
		"Дай краткую обратную связь на русском и выставь оценку от 1 до 5. " +
		"Формат ответа строго: JSON с полями feedback (строка), score (число 1-5).\n" +
		fmt.Sprintf("Целевой фразовый глагол: %s\n", verb) +
		fmt.Sprintf("Ответ пользователя: %s\n", userText)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return "", false, fmt.Errorf("evaluate usage: %w", err)
	}

	feedback, mastered, err := parseEvaluation(raw)
	if err != nil {
		c.logger.WithError(err).Warn("Gemini evaluation response was not valid, serving neutral feedback")
		return "Спасибо! Постарайся составить короткое предложение с этим фразовым глаголом.", false, nil
	}
	return feedback, mastered, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("gemini API key is not configured")
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := collectText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini response contained no text")
	}
	return text, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// jsonBlockRe grabs the outermost JSON object of a model reply that may be
// wrapped in prose or markdown fences.
var jsonBlockRe = regexp.MustCompile(`\{[\s\S]*\}`)

func extractJSON(raw string) string {
	if m := jsonBlockRe.FindString(raw); m != "" {
		return m
	}
	return raw
}

func parseVerbPayload(raw string) (content.Payload, error) {
	var payload content.Payload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return content.Payload{}, fmt.Errorf("decode verb payload: %w", err)
	}
	if payload.Verb == "" || payload.Translation == "" || payload.Explanation == "" {
		return content.Payload{}, fmt.Errorf("verb payload is missing required fields")
	}
	return payload, nil
}

func parseEvaluation(raw string) (string, bool, error) {
	var result struct {
		Feedback string `json:"feedback"`
		Score    int    `json:"score"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return "", false, fmt.Errorf("decode evaluation: %w", err)
	}
	if result.Feedback == "" {
		result.Feedback = "Хорошая попытка! Попробуй составить ещё одно предложение."
	}
	return result.Feedback, result.Score >= 4, nil
}

// FallbackPayload is the canned lesson served when generation is unavailable.
func FallbackPayload() content.Payload {
	return content.Payload{
		Verb:        "pick up",
		Translation: "подобрать; выучить",
		Explanation: "Этот фразовый глагол означает выучить что-то по ходу дела или поднять предмет.",
		Examples: []content.Example{
			{
				Text:        "She picked up Spanish while living in Madrid.",
				Translation: "Она освоила испанский, пока жила в Мадриде.",
			},
			{
				Text:        "Please pick up the book from the floor.",
				Translation: "Пожалуйста, подними книгу с пола.",
			},
		},
	}
}
