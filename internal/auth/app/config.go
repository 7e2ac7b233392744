package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Issuer      string // Optional: issuer claim for session tokens
	FrontendURL string // Required: where the callback and logout send the browser
	SuccessPath string // Optional: path fragment appended to FrontendURL after login

	ProviderClientID     string // Required: OAuth client id for the identity provider
	ProviderClientSecret string // Required: OAuth client secret
	ProviderCallbackURL  string // Required: our callback URL registered with the provider

	RPDisplayName  string   // Optional: relying-party name shown during passkey ceremonies
	AllowedOrigins []string // Required: exact origins allowed to run passkey ceremonies
	AllowedRPIDs   []string // Optional: relying-party id allow-list; derived from AllowedOrigins when unset

	SigningKeyFile       string        // Optional: PKCS8 PEM Ed25519 key; ephemeral key when unset
	DatabaseFile         string        // Optional: path to SQLite database file (default: ./authd.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:      getEnvOrDefault("AUTHD_ISSUER", "push-authd"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		SuccessPath: getEnvOrDefault("AUTHD_SUCCESS_PATH", "/#/profile"),

		ProviderClientID:     os.Getenv("AUTHD_GITHUB_CLIENT_ID"),
		ProviderClientSecret: os.Getenv("AUTHD_GITHUB_CLIENT_SECRET"),
		ProviderCallbackURL:  os.Getenv("AUTHD_GITHUB_CALLBACK_URL"),

		RPDisplayName: getEnvOrDefault("AUTHD_RP_DISPLAY_NAME", "Push Protocol"),

		SigningKeyFile:       os.Getenv("AUTHD_SIGNING_KEY_FILE"),
		DatabaseFile:         getEnvOrDefault("AUTHD_DATABASE_FILE", "authd.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Comma-separated origin allow-list. The frontend origin is always
	// implicitly allowed so the common single-origin deployment needs no
	// extra config.
	if origins := os.Getenv("AUTHD_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if cfg.FrontendURL != "" {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, originOf(cfg.FrontendURL))
	}

	// Relying-party ids are listed separately; an origin only resolves when
	// its hostname is on this list too. Unset means the allowed origins'
	// own hostnames.
	if rpIDs := os.Getenv("AUTHD_ALLOWED_RP_IDS"); rpIDs != "" {
		for _, id := range strings.Split(rpIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.AllowedRPIDs = append(cfg.AllowedRPIDs, id)
			}
		}
	} else {
		for _, o := range cfg.AllowedOrigins {
			cfg.AllowedRPIDs = append(cfg.AllowedRPIDs, hostnameOf(o))
		}
	}

	return cfg
}

// hostnameOf trims an origin down to its bare hostname.
func hostnameOf(origin string) string {
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/#?"); i >= 0 {
		host = host[:i]
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}

// originOf trims a URL down to scheme://host[:port].
func originOf(rawURL string) string {
	rest := rawURL
	scheme := ""
	if i := strings.Index(rawURL, "://"); i >= 0 {
		scheme = rawURL[:i+3]
		rest = rawURL[i+3:]
	}
	if i := strings.IndexAny(rest, "/#?"); i >= 0 {
		rest = rest[:i]
	}
	return scheme + rest
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
