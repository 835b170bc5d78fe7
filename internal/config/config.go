package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/match-hub/internal/platform/logging"
	"github.com/riskibarqy/match-hub/internal/platform/resilience"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LogLevel       logging.Level

	CORSAllowedOrigins []string
	SwaggerEnabled     bool
	PprofEnabled       bool
	PprofAddr          string

	StoreDriver    string
	DBURL          string
	DBMaxOpenConns int

	OsuBaseURL            string
	OsuTokenURL           string
	OsuClientID           string
	OsuClientSecret       string
	OsuAccessToken        string
	OsuTimeout            time.Duration
	OsuMaxRetries         int
	OsuRateLimitPerMinute int
	OsuCircuit            resilience.CircuitBreakerConfig

	MatchCacheTTL   time.Duration
	ScoreCacheTTL   time.Duration
	MatchMaxWorkers int
	MatchMaxIDs     int

	MetricsEnabled bool

	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// Database holds the subset needed by tools that only touch Postgres.
type Database struct {
	URL          string
	MaxOpenConns int
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	storeDriver := strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", StoreDriverPostgres)))
	if storeDriver != StoreDriverPostgres && storeDriver != StoreDriverMemory {
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q: valid values are %s, %s", storeDriver, StoreDriverPostgres, StoreDriverMemory)
	}

	db, err := LoadDatabase()
	if err != nil {
		return Config{}, err
	}

	osuTimeout, err := time.ParseDuration(getEnv("OSU_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse OSU_TIMEOUT: %w", err)
	}
	if osuTimeout <= 0 {
		return Config{}, fmt.Errorf("OSU_TIMEOUT must be > 0")
	}
	osuMaxRetries, err := getEnvAsInt("OSU_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse OSU_MAX_RETRIES: %w", err)
	}
	if osuMaxRetries < 0 {
		return Config{}, fmt.Errorf("OSU_MAX_RETRIES must be >= 0")
	}
	osuRateLimit, err := getEnvAsInt("OSU_RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse OSU_RATE_LIMIT_PER_MINUTE: %w", err)
	}
	if osuRateLimit < 0 {
		return Config{}, fmt.Errorf("OSU_RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	osuCircuit, err := loadCircuit("OSU")
	if err != nil {
		return Config{}, err
	}

	osuAccessToken := strings.TrimSpace(getEnv("OSU_ACCESS_TOKEN", ""))
	osuClientID := strings.TrimSpace(getEnv("OSU_CLIENT_ID", ""))
	osuClientSecret := strings.TrimSpace(getEnv("OSU_CLIENT_SECRET", ""))
	if osuAccessToken == "" && (osuClientID == "" || osuClientSecret == "") {
		return Config{}, fmt.Errorf("OSU_CLIENT_ID and OSU_CLIENT_SECRET are required when OSU_ACCESS_TOKEN is empty")
	}

	matchCacheTTL, err := time.ParseDuration(getEnv("MATCH_CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_CACHE_TTL: %w", err)
	}
	if matchCacheTTL < 0 {
		return Config{}, fmt.Errorf("MATCH_CACHE_TTL must be >= 0")
	}
	scoreCacheTTL, err := time.ParseDuration(getEnv("SCORE_CACHE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_CACHE_TTL: %w", err)
	}
	if scoreCacheTTL < 0 {
		return Config{}, fmt.Errorf("SCORE_CACHE_TTL must be >= 0")
	}
	matchMaxWorkers, err := getEnvAsInt("MATCH_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_MAX_WORKERS: %w", err)
	}
	if matchMaxWorkers < 1 {
		return Config{}, fmt.Errorf("MATCH_MAX_WORKERS must be >= 1")
	}
	matchMaxIDs, err := getEnvAsInt("MATCH_MAX_IDS", 50)
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_MAX_IDS: %w", err)
	}
	if matchMaxIDs < 1 {
		return Config{}, fmt.Errorf("MATCH_MAX_IDS must be >= 1")
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}
	swaggerEnabled, err := strconv.ParseBool(getEnv("SWAGGER_ENABLED", swaggerDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse SWAGGER_ENABLED: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}

	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse METRICS_ENABLED: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "match-hub-api"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		LogLevel:                   logging.ParseLevel(getEnv("LOG_LEVEL", "info")),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:             swaggerEnabled,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  strings.TrimSpace(getEnv("PPROF_ADDR", "127.0.0.1:6060")),
		StoreDriver:                storeDriver,
		DBURL:                      db.URL,
		DBMaxOpenConns:             db.MaxOpenConns,
		OsuBaseURL:                 strings.TrimRight(strings.TrimSpace(getEnv("OSU_BASE_URL", "https://osu.ppy.sh/api/v2")), "/"),
		OsuTokenURL:                strings.TrimSpace(getEnv("OSU_TOKEN_URL", "https://osu.ppy.sh/oauth/token")),
		OsuClientID:                osuClientID,
		OsuClientSecret:            osuClientSecret,
		OsuAccessToken:             osuAccessToken,
		OsuTimeout:                 osuTimeout,
		OsuMaxRetries:              osuMaxRetries,
		OsuRateLimitPerMinute:      osuRateLimit,
		OsuCircuit:                 osuCircuit,
		MatchCacheTTL:              matchCacheTTL,
		ScoreCacheTTL:              scoreCacheTTL,
		MatchMaxWorkers:            matchMaxWorkers,
		MatchMaxIDs:                matchMaxIDs,
		MetricsEnabled:             metricsEnabled,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

// LoadDatabase reads DB_URL, or assembles it from the DB_* parts.
func LoadDatabase() (Database, error) {
	maxOpenConns, err := getEnvAsInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Database{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	if maxOpenConns < 1 {
		return Database{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1")
	}

	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if dbURL == "" {
		dbURL = buildDBURL(
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			os.Getenv("DB_PASSWORD"),
			getEnv("DB_NAME", "osu_data"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	return Database{URL: dbURL, MaxOpenConns: maxOpenConns}, nil
}

func buildDBURL(host, port, user, password, name, sslMode string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(strings.TrimSpace(host), strings.TrimSpace(port)),
		Path:   "/" + strings.TrimSpace(name),
	}
	if password != "" {
		u.User = url.UserPassword(strings.TrimSpace(user), password)
	} else {
		u.User = url.User(strings.TrimSpace(user))
	}
	q := url.Values{}
	q.Set("sslmode", strings.TrimSpace(sslMode))
	u.RawQuery = q.Encode()
	return u.String()
}

func loadCircuit(prefix string) (resilience.CircuitBreakerConfig, error) {
	enabled, err := strconv.ParseBool(getEnv(prefix+"_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_ENABLED: %w", prefix, err)
	}
	failureCount, err := getEnvAsInt(prefix+"_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_FAILURE_COUNT: %w", prefix, err)
	}
	if failureCount < 1 {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("%s_CIRCUIT_FAILURE_COUNT must be >= 1", prefix)
	}
	openTimeout, err := time.ParseDuration(getEnv(prefix+"_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_OPEN_TIMEOUT: %w", prefix, err)
	}
	if openTimeout <= 0 {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("%s_CIRCUIT_OPEN_TIMEOUT must be > 0", prefix)
	}
	halfOpenMaxReq, err := getEnvAsInt(prefix+"_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_HALF_OPEN_MAX_REQ: %w", prefix, err)
	}
	if halfOpenMaxReq < 1 {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("%s_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1", prefix)
	}

	return resilience.CircuitBreakerConfig{
		Enabled:          enabled,
		FailureThreshold: failureCount,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMaxReq,
	}, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
