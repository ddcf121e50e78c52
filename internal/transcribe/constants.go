package transcribe

// Provider defaults
const (
	DefaultGroqBaseURL  = "https://api.groq.com/openai/v1/"
	DefaultWhisperModel = "whisper-large-v3-turbo"
	DefaultGeminiModel  = "gemini-3-flash"
)
