package config

import (
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
    MinLevel      string
    BatchSize     int
}

// ServerConfig defines the HTTP listener and upload limits.
type ServerConfig struct {
    Port           string
    MaxUploadBytes int64
    WorkDir        string
    Retention      time.Duration
}

// WorkerConfig defines worker behavior and limits.
type WorkerConfig struct {
    Concurrency        int
    JobTimeout         time.Duration
    JobMaxAttempts     int
    RetryBaseDelay     time.Duration
    RetryBackoffFactor float64
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
    RedisURL     string
    Stream       string
    Group        string
    PollInterval time.Duration
    // ClaimIdle is how long a delivered entry may stay unacked before another
    // consumer takes it over. Zero disables reclaiming.
    ClaimIdle time.Duration
    CancelTTL time.Duration
}

// StorageConfig selects where uploads and outputs are kept.
type StorageConfig struct {
    Backend   string // "local"|"s3"
    LocalRoot string
    Bucket    string
    Prefix    string
    Region    string
    Endpoint  string
    AccessKey string
    SecretKey string
    // EncryptionKey enables at-rest encryption for the s3 backend.
    EncryptionKey string
}

// TablesConfig overrides the structure analyzer thresholds.
type TablesConfig struct {
    HeaderMinScore           int
    HeaderCellLookahead      int
    SequenceLookahead        int
    MinSequenceLength        int
    ValidityMinRows          int
    ValidityMinColumns       int
    ValidityMultiColumnRatio float64
    TitleMinLength           int
    ProbeThreshold           int
}

// Config is the top-level configuration.
type Config struct {
    Logging LoggingConfig
    Axiom   AxiomConfig
    Server  ServerConfig
    Worker  WorkerConfig
    Queue   QueueConfig
    Storage StorageConfig
    Tables  TablesConfig
}

// Load reads an optional .env file then builds the configuration from the
// environment. Variables already set win over the file.
func Load(files ...string) Config {
    if len(files) == 0 { files = []string{".env"} }
    for _, f := range files {
        if _, err := os.Stat(f); err == nil { _ = godotenv.Load(f) }
    }
    return FromEnv()
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/pdftables.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_pdftables",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
        MinLevel:      getEnv("AXIOM_MIN_LEVEL", "info"),
        BatchSize:     parseInt(getEnv("AXIOM_BATCH_SIZE", "200"), 200),
    }

    cfg.Server = ServerConfig{
        Port:           getEnv("PORT", "8080"),
        MaxUploadBytes: int64(parseInt(getEnv("UPLOAD_MAX_BYTES", ""), 50<<20)),
        WorkDir:        getEnv("WORK_DIR", os.TempDir()),
        Retention:      parseDuration(getEnv("RETENTION", "168h"), 7*24*time.Hour),
    }

    cfg.Worker = WorkerConfig{
        Concurrency:        parseInt(getEnv("WORKER_CONCURRENCY", "4"), 4),
        JobTimeout:         parseDuration(getEnv("JOB_TIMEOUT", "5m"), 5*time.Minute),
        JobMaxAttempts:     parseInt(getEnv("JOB_MAX_ATTEMPTS", "3"), 3),
        RetryBaseDelay:     parseDuration(getEnv("RETRY_BASE_DELAY", "2s"), 2*time.Second),
        RetryBackoffFactor: parseFloat(getEnv("RETRY_BACKOFF_FACTOR", "2.0"), 2.0),
    }

    cfg.Queue = QueueConfig{
        RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
        Stream:       getEnv("QUEUE_STREAM", "jobs:convert"),
        Group:        getEnv("QUEUE_GROUP", "workers:convert"),
        PollInterval: parseDuration(getEnv("QUEUE_POLL_INTERVAL", "200ms"), 200*time.Millisecond),
        ClaimIdle:    parseDuration(getEnv("QUEUE_CLAIM_IDLE", "15m"), 15*time.Minute),
        CancelTTL:    parseDuration(getEnv("QUEUE_CANCEL_TTL", "24h"), 24*time.Hour),
    }

    cfg.Storage = StorageConfig{
        Backend:       strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
        LocalRoot:     getEnv("STORAGE_LOCAL_ROOT", "data"),
        Bucket:        getEnv("S3_BUCKET", ""),
        Prefix:        getEnv("S3_PREFIX", ""),
        Region:        getEnv("AWS_REGION", ""),
        Endpoint:      getEnv("S3_ENDPOINT", ""),
        AccessKey:     getEnv("AWS_ACCESS_KEY_ID", ""),
        SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
        EncryptionKey: getEnv("STORAGE_ENCRYPTION_KEY", ""),
    }

    // zero values fall back to the analyzer defaults
    cfg.Tables = TablesConfig{
        HeaderMinScore:           parseInt(getEnv("TABLES_HEADER_MIN_SCORE", ""), 0),
        HeaderCellLookahead:      parseInt(getEnv("TABLES_HEADER_LOOKAHEAD", ""), 0),
        SequenceLookahead:        parseInt(getEnv("TABLES_SEQUENCE_LOOKAHEAD", ""), 0),
        MinSequenceLength:        parseInt(getEnv("TABLES_MIN_SEQUENCE", ""), 0),
        ValidityMinRows:          parseInt(getEnv("TABLES_VALID_MIN_ROWS", ""), 0),
        ValidityMinColumns:       parseInt(getEnv("TABLES_VALID_MIN_COLUMNS", ""), 0),
        ValidityMultiColumnRatio: parseFloat(getEnv("TABLES_VALID_RATIO", ""), 0),
        TitleMinLength:           parseInt(getEnv("TABLES_TITLE_MIN_LENGTH", ""), 0),
        ProbeThreshold:           parseInt(getEnv("TEXT_PROBE_THRESHOLD", ""), 0),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
