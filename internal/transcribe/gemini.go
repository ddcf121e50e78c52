package transcribe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Gemini sends the prompt and inline WAV audio to generateContent.
type Gemini struct {
	client *genai.Client
	model  string
}

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // proxy endpoint; empty uses the public API
	Timeout time.Duration
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.ConfigInvalid, "gemini: api key must not be empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ConfigInvalid, "gemini: create client")
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini" }

// Supports implements Provider.
func (g *Gemini) Supports(Mode) bool { return true }

// Transcribe implements Transcriber.
func (g *Gemini) Transcribe(ctx context.Context, wav []byte, mode Mode, tc Context) (Result, error) {
	text, err := g.generate(ctx, BuildPrompt(mode, tc), wav)
	if err != nil {
		return Result{}, err
	}
	if _, ok := mode.(Command); ok {
		return ParseCommandResult(text), nil
	}
	return Result{Type: ResultDictation, Text: text}, nil
}

// Complete runs a text-only prompt.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, nil)
}

func (g *Gemini) generate(ctx context.Context, prompt string, wav []byte) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(wav) > 0 {
		parts = append(parts, genai.NewPartFromBytes(wav, "audio/wav"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apperrors.Wrap(err, codeForStatus(apiErr.Code), "gemini generate")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.Timeout, "gemini generate")
	}
	return apperrors.Wrap(err, apperrors.Unavailable, "gemini generate")
}

// PhraseDetector asks Gemini whether a short recording contains the wake word.
type PhraseDetector struct {
	gemini  *Gemini
	phrase  string
	encoder func([]int16, int) ([]byte, error)
}

// NewPhraseDetector creates a detector for phrase. encode turns device-rate
// samples into a WAV container.
func NewPhraseDetector(g *Gemini, phrase string, encode func([]int16, int) ([]byte, error)) *PhraseDetector {
	return &PhraseDetector{gemini: g, phrase: phrase, encoder: encode}
}

// Detect implements the wake listener's phrase check.
func (d *PhraseDetector) Detect(ctx context.Context, samples []int16, sampleRate int) (bool, error) {
	wav, err := d.encoder(samples, sampleRate)
	if err != nil {
		return false, err
	}
	prompt := "Does this short recording contain the word '" + d.phrase + "'? Answer ONLY 'yes' or 'no'."
	text, err := d.gemini.generate(ctx, prompt, wav)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(text), "yes"), nil
}
