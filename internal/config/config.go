package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Storage
	StorageType string // "redis" | "postgres" | "memory"
	DatabaseURL string
	RedisURL    string

	// JWT
	JWTSecret string

	Gateway Gateway

	// Requests per minute per client on the AI-backed routes
	AIRequestsPerMin int

	// Tutor chat function
	GeminiChatModel string
	ChatAPIToken    string

	// ElevenLabs
	ElevenLabsAPIKey         string
	ElevenLabsBaseURL        string
	ElevenLabsAgentID        string
	ElevenLabsClimateAgentID string

	// Frontend
	FrontendURL string
}

// Gateway holds what the AI gateway client needs. The CLI loads only this.
type Gateway struct {
	ChatEndpoint   string
	ChatAPIToken   string
	GeminiAPIKey   string
	GeminiBaseURL  string
	QuizCandidates []string // "version/model"
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	storageType := getEnvOrDefault("STORAGE_TYPE", "redis")
	port := getEnvOrDefault("PORT", "8080")
	chatToken := mustGetEnv("CHAT_API_TOKEN")

	cfg := &Config{
		Port:        port,
		Env:         getEnvOrDefault("ENV", "development"),
		LogFile:     getEnvOrDefault("LOG_FILE", "climatesage.log"),
		LogLevel:    parseLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		StorageType: storageType,
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),
		Gateway: Gateway{
			ChatEndpoint:   getEnvOrDefault("CHAT_ENDPOINT_URL", fmt.Sprintf("http://localhost:%s/functions/v1/climate-chat", port)),
			ChatAPIToken:   chatToken,
			GeminiAPIKey:   mustGetEnv("GEMINI_API_KEY"),
			GeminiBaseURL:  getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			QuizCandidates: getEnvAsListOrDefault("QUIZ_MODEL_CANDIDATES", DefaultQuizCandidates),
		},
		AIRequestsPerMin:         getEnvAsIntOrDefault("AI_REQUESTS_PER_MINUTE", 20),
		GeminiChatModel:          getEnvOrDefault("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		ChatAPIToken:             chatToken,
		ElevenLabsAPIKey:         getEnvOrDefault("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL:        getEnvOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsAgentID:        getEnvOrDefault("ELEVENLABS_AGENT_ID", ""),
		ElevenLabsClimateAgentID: getEnvOrDefault("ELEVENLABS_CLIMATE_AGENT_ID", ""),
		FrontendURL:              getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if storageType == "postgres" && cfg.DatabaseURL == "" {
		panic("DATABASE_URL is required when STORAGE_TYPE=postgres")
	}

	return cfg
}

// LoadGateway reads only the gateway settings, without the server's
// required variables.
func LoadGateway() Gateway {
	godotenv.Load()

	return Gateway{
		ChatEndpoint:   getEnvOrDefault("CHAT_ENDPOINT_URL", "http://localhost:8080/functions/v1/climate-chat"),
		ChatAPIToken:   getEnvOrDefault("CHAT_API_TOKEN", ""),
		GeminiAPIKey:   getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiBaseURL:  getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		QuizCandidates: getEnvAsListOrDefault("QUIZ_MODEL_CANDIDATES", DefaultQuizCandidates),
	}
}

// ElevenLabs holds the speech and voice agent credentials.
type ElevenLabs struct {
	APIKey         string
	BaseURL        string
	AgentID        string
	ClimateAgentID string
}

// LoadElevenLabs reads only the ElevenLabs settings.
func LoadElevenLabs() ElevenLabs {
	godotenv.Load()

	return ElevenLabs{
		APIKey:         getEnvOrDefault("ELEVENLABS_API_KEY", ""),
		BaseURL:        getEnvOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		AgentID:        getEnvOrDefault("ELEVENLABS_AGENT_ID", ""),
		ClimateAgentID: getEnvOrDefault("ELEVENLABS_CLIMATE_AGENT_ID", ""),
	}
}

// DefaultQuizCandidates is tried in order by quiz generation.
var DefaultQuizCandidates = []string{
	"v1beta/gemini-2.0-flash",
	"v1beta/gemini-1.5-flash",
	"v1/gemini-1.5-flash",
	"v1/gemini-1.5-pro",
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsListOrDefault splits a comma separated value, dropping blanks.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
