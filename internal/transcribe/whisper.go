package transcribe

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Whisper uses an OpenAI-compatible audio API (Groq by default).
type Whisper struct {
	client   openai.Client
	model    string
	language string
}

type whisperConfig struct {
	baseURL  string
	model    string
	language string
	timeout  time.Duration
}

// WhisperOption is a functional option for Whisper.
type WhisperOption func(*whisperConfig)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) WhisperOption {
	return func(c *whisperConfig) { c.baseURL = url }
}

// WithWhisperModel sets the model name.
func WithWhisperModel(model string) WhisperOption {
	return func(c *whisperConfig) { c.model = model }
}

// WithLanguage sets the spoken language hint for dictation.
func WithLanguage(lang string) WhisperOption {
	return func(c *whisperConfig) { c.language = lang }
}

// WithWhisperTimeout sets a per-request HTTP timeout.
func WithWhisperTimeout(d time.Duration) WhisperOption {
	return func(c *whisperConfig) { c.timeout = d }
}

// NewWhisper creates a Whisper provider.
func NewWhisper(apiKey string, opts ...WhisperOption) (*Whisper, error) {
	if apiKey == "" {
		return nil, apperrors.New(apperrors.ConfigInvalid, "whisper: api key must not be empty")
	}
	cfg := &whisperConfig{
		baseURL: DefaultGroqBaseURL,
		model:   DefaultWhisperModel,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		// Retries are handled by the provider chain.
		option.WithMaxRetries(0),
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Whisper{
		client:   openai.NewClient(reqOpts...),
		model:    cfg.model,
		language: cfg.language,
	}, nil
}

// Name implements Provider.
func (w *Whisper) Name() string { return "whisper" }

// Supports implements Provider. The translations endpoint only produces English,
// and command classification needs a model that can return structured output.
func (w *Whisper) Supports(mode Mode) bool {
	switch m := mode.(type) {
	case Dictation:
		return true
	case Translate:
		return strings.EqualFold(m.Target, "en")
	default:
		return false
	}
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, wav []byte, mode Mode, tc Context) (Result, error) {
	file := openai.File(bytes.NewReader(wav), "audio.wav", "audio/wav")

	var text string
	switch mode.(type) {
	case Dictation:
		params := openai.AudioTranscriptionNewParams{
			File:  file,
			Model: openai.AudioModel(w.model),
		}
		if w.language != "" {
			params.Language = openai.String(w.language)
		}
		if hint := vocabularyHint(tc); hint != "" {
			params.Prompt = openai.String(hint)
		}
		resp, err := w.client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return Result{}, classifyOpenAIError(err, "whisper transcription")
		}
		text = resp.Text
	case Translate:
		params := openai.AudioTranslationNewParams{
			File:  file,
			Model: openai.AudioModel(w.model),
		}
		if hint := vocabularyHint(tc); hint != "" {
			params.Prompt = openai.String(hint)
		}
		resp, err := w.client.Audio.Translations.New(ctx, params)
		if err != nil {
			return Result{}, classifyOpenAIError(err, "whisper translation")
		}
		text = resp.Text
	default:
		return Result{}, apperrors.Newf(apperrors.InvalidArgument, "whisper: mode %s not supported", mode)
	}

	return Result{Type: ResultDictation, Text: strings.TrimSpace(text)}, nil
}

func classifyOpenAIError(err error, op string) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apperrors.Wrap(err, codeForStatus(apiErr.StatusCode), op)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.Timeout, op)
	}
	return apperrors.Wrap(err, apperrors.Unavailable, op)
}

// codeForStatus maps an HTTP status onto an error code.
func codeForStatus(status int) apperrors.Code {
	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.RateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apperrors.Timeout
	case status >= 500:
		return apperrors.Unavailable
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.ConfigInvalid
	default:
		return apperrors.TranscriptionFailed
	}
}
