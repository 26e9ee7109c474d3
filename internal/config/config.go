package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                 int
	DBDSN                string
	JWTSecret            string
	WSInsecureSkipVerify bool

	// Text-generation provider: "gemini" (default), "openai", or "mock".
	AIProvider   string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// Unsigned upload endpoint for message/profile images.
	BlobUploadURL    string
	BlobUploadPreset string
}

func Load() Config {
	port := 8084
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	wsInsecure := false
	if os.Getenv("WS_INSECURE_SKIP_VERIFY") == "true" {
		wsInsecure = true
	}

	provider := os.Getenv("AI_PROVIDER")
	if provider == "" {
		provider = "gemini"
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-1.5-flash-001"
	}

	return Config{
		Port:                 port,
		DBDSN:                os.Getenv("DB_DSN"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		WSInsecureSkipVerify: wsInsecure,
		AIProvider:           provider,
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          geminiModel,
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          os.Getenv("OPENAI_MODEL"),
		BlobUploadURL:        os.Getenv("BLOB_UPLOAD_URL"),
		BlobUploadPreset:     os.Getenv("BLOB_UPLOAD_PRESET"),
	}
}
