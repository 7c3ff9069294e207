package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dubber/internal/language"
)

const translationPromptTemplate = "You are a professional translator. Translate the following text to %s. Only provide the translation, no explanations."

// Translator turns transcripts into target-language text through a chat model.
type Translator struct {
	client      *Client
	temperature float64
}

// NewTranslator wraps client with the translation prompt.
func NewTranslator(client *Client, temperature float64) *Translator {
	return &Translator{client: client, temperature: temperature}
}

// Translate renders text in targetLang. The source language is informational;
// the model detects it from the text itself.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if t == nil || t.client == nil {
		return "", errors.New("translate: client not configured")
	}
	if strings.TrimSpace(targetLang) == "" {
		return "", errors.New("translate: target language required")
	}
	prompt := fmt.Sprintf(translationPromptTemplate, language.DisplayName(targetLang))
	translated, err := t.client.Complete(ctx, prompt, text, t.temperature)
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", sourceLang, targetLang, err)
	}
	return stripCodeFence(translated), nil
}
