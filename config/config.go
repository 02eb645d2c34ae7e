package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the pipeline policy knobs. Thresholds and timeouts are policy,
// not behavior, so every one of them can be overridden from the environment.
const (
	DefaultMaxUploadBytes      = 10 * 1024 * 1024
	DefaultSecurityThreshold   = 50
	DefaultEscalateBelow       = 0.6
	DefaultMinMergeConfidence  = 0.35
	DefaultSocialConfidenceCap = 0.75
	DefaultAttemptTimeout      = 30 * time.Second
	DefaultPipelineTimeout     = 2 * time.Minute
	DefaultRenderConcurrency   = 4
	DefaultScanConcurrency     = 5
	DefaultCacheTTL            = 24 * time.Hour
)

// Config carries every tunable the pipeline reads. Load fills it from the
// environment; zero values fall back to the defaults above.
type Config struct {
	// Quarantine
	MaxUploadBytes    int64
	SecurityThreshold int
	RetainRejected    bool
	QuarantineDir     string
	MediaDir          string

	// S3-backed storage (optional; local filesystem is used when unset)
	S3Region           string
	S3Profile          string
	S3UsePathStyle     bool
	S3QuarantineBucket string
	S3MediaBucket      string

	// Pipeline policy
	EscalateBelow       float64
	MinMergeConfidence  float64
	SocialConfidenceCap float64
	AttemptTimeout      time.Duration
	PipelineTimeout     time.Duration
	RenderConcurrency   int
	ScanConcurrency     int

	// External capabilities
	RenderServiceURL string
	CohereModel      string
	TesseractLangs   []string

	// Audit sinks (optional; falls back to process log when unset)
	KafkaBrokers       []string
	SecurityEventTopic string
	AttemptEventTopic  string

	// Extraction cache (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// HTTP ingress
	Port string
}

// Load reads configuration from the environment, loading .env first if
// present (non-fatal if missing).
func Load() Config {
	_ = godotenv.Load()

	return Config{
		MaxUploadBytes:    getInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		SecurityThreshold: getInt("SECURITY_SCORE_THRESHOLD", DefaultSecurityThreshold),
		RetainRejected:    getBool("QUARANTINE_RETAIN_REJECTED", false),
		QuarantineDir:     GetEnvOrDefault("QUARANTINE_DIR", "quarantine"),
		MediaDir:          GetEnvOrDefault("MEDIA_DIR", "media"),

		S3Region:           os.Getenv("S3_REGION"),
		S3Profile:          os.Getenv("S3_PROFILE"),
		S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", false),
		S3QuarantineBucket: os.Getenv("S3_QUARANTINE_BUCKET"),
		S3MediaBucket:      os.Getenv("S3_MEDIA_BUCKET"),

		EscalateBelow:       getFloat("ESCALATE_BELOW_CONFIDENCE", DefaultEscalateBelow),
		MinMergeConfidence:  getFloat("MIN_MERGE_CONFIDENCE", DefaultMinMergeConfidence),
		SocialConfidenceCap: getFloat("SOCIAL_CONFIDENCE_CAP", DefaultSocialConfidenceCap),
		AttemptTimeout:      getDuration("ATTEMPT_TIMEOUT", DefaultAttemptTimeout),
		PipelineTimeout:     getDuration("PIPELINE_TIMEOUT", DefaultPipelineTimeout),
		RenderConcurrency:   getInt("RENDER_CONCURRENCY", DefaultRenderConcurrency),
		ScanConcurrency:     getInt("SCAN_CONCURRENCY", DefaultScanConcurrency),

		RenderServiceURL: os.Getenv("RENDER_SERVICE_URL"),
		CohereModel:      GetEnvOrDefault("COHERE_MODEL", "command-r"),
		TesseractLangs:   getList("TESSERACT_LANGS"),

		KafkaBrokers:       getList("KAFKA_BROKERS"),
		SecurityEventTopic: GetEnvOrDefault("KAFKA_SECURITY_TOPIC", "forkful.security-events"),
		AttemptEventTopic:  GetEnvOrDefault("KAFKA_ATTEMPT_TOPIC", "forkful.extraction-attempts"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		CacheTTL:      getDuration("EXTRACTION_CACHE_TTL", DefaultCacheTTL),

		Port: GetEnvOrDefault("PORT", "8080"),
	}
}

// GetEnvOrDefault returns the env value for key, or fallback when unset/empty.
func GetEnvOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
