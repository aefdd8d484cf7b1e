package types

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider and store identifiers recognized by the configuration.
const (
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderLlamaCpp = "llamacpp"

	StorePostgres = "postgres"
	StoreQdrant   = "qdrant"
	StoreMemory   = "memory"
)

// Config carries every runtime option. It is built once from the environment
// in main and passed down; nothing reads env vars after startup.
type Config struct {
	ServerAddr string
	UploadDir  string

	EmbeddingProvider string
	LLMProvider       string
	EmbeddingModel    string
	LLMModel          string

	OllamaBaseURL    string
	LlamaCppBaseURL  string
	OpenAIAPIKey     string
	EmbeddingTimeout time.Duration
	LLMTimeout       time.Duration

	VectorStore    string
	PostgresConn   string
	QdrantURL      string
	QdrantAPIKey   string
	QdrantTimeout  time.Duration
	CollectionName string
	VectorSize     int

	MaxHistory     int
	TopK           int
	ScoreThreshold float64

	WatchDir    string
	ArchiveDir  string
	BadDir      string
	WatchSettle time.Duration
}

// ConfigFromEnv assembles the configuration with defaults matching a local
// single-node setup. Provider names are lowercased; their validity is checked
// by the factories that consume them.
func ConfigFromEnv() Config {
	return Config{
		ServerAddr: envOr("SERVER_ADDR", ":8000"),
		UploadDir:  envOr("UPLOAD_DIR", "./uploads"),

		EmbeddingProvider: strings.ToLower(envOr("EMBEDDING_PROVIDER", ProviderOllama)),
		LLMProvider:       strings.ToLower(envOr("LLM_PROVIDER", ProviderOllama)),
		EmbeddingModel:    envOr("EMBEDDING_MODEL", "nomic-embed-text"),
		LLMModel:          envOr("LLM_MODEL", "llama2"),

		OllamaBaseURL:    envOr("OLLAMA_BASE_URL", "http://localhost:11434"),
		LlamaCppBaseURL:  envOr("LLAMACPP_BASE_URL", "http://localhost:8080"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		EmbeddingTimeout: envSeconds("EMBEDDING_TIMEOUT", 30),
		LLMTimeout:       envSeconds("LLM_TIMEOUT", 60),

		VectorStore:    strings.ToLower(envOr("VECTOR_STORE", StorePostgres)),
		PostgresConn:   postgresConnString(),
		QdrantURL:      envOr("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:   os.Getenv("QDRANT_API_KEY"),
		QdrantTimeout:  envSeconds("QDRANT_TIMEOUT", 30),
		CollectionName: envOr("COLLECTION_NAME", "documents"),
		VectorSize:     envInt("VECTOR_SIZE", 768),

		MaxHistory:     envInt("MAX_HISTORY", 10),
		TopK:           envInt("TOP_K", 5),
		ScoreThreshold: envFloat("SCORE_THRESHOLD", 0.1),

		WatchDir:    os.Getenv("WATCH_DIR"),
		ArchiveDir:  envOr("ARCHIVE_DIR", "./archive"),
		BadDir:      envOr("BAD_DIR", "./bad"),
		WatchSettle: envSeconds("WATCH_SETTLE", 3),
	}
}

func postgresConnString() string {
	host := envOr("PG_HOST", "localhost")
	port := envInt("PG_PORT", 5432)
	user := envOr("PG_USER", "postgres")
	pass := os.Getenv("PG_PASS")
	db := envOr("PG_DB_NAME", "docai")
	return "host=" + host + " port=" + strconv.Itoa(port) + " user=" + user +
		" password=" + pass + " dbname=" + db + " sslmode=disable"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}
