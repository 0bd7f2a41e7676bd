package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"storefront/internal/logger"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverRest     = "rest"
)

// Store is what the shopper sees of the shop and where orders are sent.
type Store struct {
	Name              string
	Tagline           string
	CurrencySymbol    string
	PaymentMethods    string
	DestinationHandle string
	MessagingHost     string
	AdminSecret       string
}

type Config struct {
	AppPort  string
	AppName  string
	Env      string
	GrpcPort string

	StoreDriver string
	StoreTable  string
	MongoURI    string
	MongoDBName string
	PostgresDSN string
	RestURL     string
	RestAPIKey  string

	Store Store

	SessionKey     string
	SessionIdleTTL time.Duration
	AllowedOrigins []string

	CloudinaryURL    string
	CloudinaryFolder string

	CatalogGRPC string

	RemoteLogHttpURI       string
	RemoteTraceRpcURI      string
	RemoteProfilingHttpURI string
}

// SafeConfig adalah struct untuk logging yang aman (tanpa sensitive data)
type SafeConfig struct {
	AppPort                string `json:"app_port"`
	AppName                string `json:"app_name"`
	Env                    string `json:"env"`
	GrpcPort               string `json:"grpc_port"`
	StoreDriver            string `json:"store_driver"`
	StoreTable             string `json:"store_table"`
	MongoDBName            string `json:"mongo_db_name"`
	RestURL                string `json:"rest_url"`
	StoreName              string `json:"store_name"`
	CurrencySymbol         string `json:"currency_symbol"`
	DestinationHandle      string `json:"destination_handle"`
	MessagingHost          string `json:"messaging_host"`
	AdminEnabled           bool   `json:"admin_enabled"`
	SessionIdleTTL         string `json:"session_idle_ttl"`
	AllowedOrigins         string `json:"allowed_origins"`
	ImageUploads           bool   `json:"image_uploads"`
	RemoteLogHttpURI       string `json:"remote_log_http_uri"`
	RemoteTraceRpcURI      string `json:"remote_trace_rpc_uri"`
	RemoteProfilingHttpURI string `json:"remote_profiling_http_uri"`
}

func toSnake(s string) string {
	var out strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			// Tambahkan underscore jika bukan huruf pertama dan sebelumnya bukan underscore
			if i > 0 && s[i-1] != '_' {
				out.WriteRune('_')
			}
			out.WriteRune(unicode.ToLower(r))
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// StructAttrs("data", cfg) ➜ []slog.Attr{ slog.String("data.app_port", "3001"), ... }
func StructAttrs(prefix string, s any) []slog.Attr {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	t := v.Type()

	attrs := make([]slog.Attr, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := prefix + "." + jsonKey(f)

		switch v.Field(i).Kind() {
		case reflect.String:
			attrs = append(attrs, slog.String(key, v.Field(i).String()))
		case reflect.Int, reflect.Int64, reflect.Int32:
			attrs = append(attrs, slog.Int64(key, v.Field(i).Int()))
		case reflect.Bool:
			attrs = append(attrs, slog.Bool(key, v.Field(i).Bool()))
		default:
			attrs = append(attrs, slog.Any(key, v.Field(i).Interface()))
		}
	}
	return attrs
}

// Ambil nama tag `json:"..."` kalau ada; fallback ke camelCase->snake
func jsonKey(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return toSnake(f.Name)
}

// ToSafeConfig mengkonversi Config ke SafeConfig untuk logging
func (c *Config) ToSafeConfig() SafeConfig {
	return SafeConfig{
		AppPort:                c.AppPort,
		AppName:                c.AppName,
		Env:                    c.Env,
		GrpcPort:               c.GrpcPort,
		StoreDriver:            c.StoreDriver,
		StoreTable:             c.StoreTable,
		MongoDBName:            c.MongoDBName,
		RestURL:                c.RestURL,
		StoreName:              c.Store.Name,
		CurrencySymbol:         c.Store.CurrencySymbol,
		DestinationHandle:      c.Store.DestinationHandle,
		MessagingHost:          c.Store.MessagingHost,
		AdminEnabled:           c.Store.AdminSecret != "",
		SessionIdleTTL:         c.SessionIdleTTL.String(),
		AllowedOrigins:         strings.Join(c.AllowedOrigins, ","),
		ImageUploads:           c.CloudinaryURL != "",
		RemoteLogHttpURI:       c.RemoteLogHttpURI,
		RemoteTraceRpcURI:      c.RemoteTraceRpcURI,
		RemoteProfilingHttpURI: c.RemoteProfilingHttpURI,
	}
}

// LogAttrs returns the safe view of c as slog arguments.
func (c *Config) LogAttrs() []any {
	attrs := StructAttrs("data", c.ToSafeConfig())
	anyAttrs := make([]any, len(attrs))
	for i, a := range attrs {
		anyAttrs[i] = a
	}
	return anyAttrs
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

var log = logger.Instance()

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		log.Warn("Invalid duration; using default",
			slog.String("key", key),
			slog.String("value", val),
			slog.String("default", defaultValue.String()),
		)
		return defaultValue
	}
	return d
}

func getList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads the configuration from the environment, after applying an
// optional .env file. It is called once at startup and the result is passed
// explicitly to every component that needs it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment and validates it.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppPort:  os.Getenv("APP_PORT"),
		AppName:  getEnv("APP_NAME", "storefront"),
		Env:      getEnv("ENV", "development"),
		GrpcPort: getEnv("GRPC_PORT", "50051"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		StoreTable:  getEnv("STORE_TABLE", "products"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDBName: os.Getenv("MONGO_DB_NAME"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		RestURL:     os.Getenv("REST_URL"),
		RestAPIKey:  os.Getenv("REST_API_KEY"),

		Store: Store{
			Name:              os.Getenv("STORE_NAME"),
			Tagline:           os.Getenv("STORE_TAGLINE"),
			CurrencySymbol:    getEnv("CURRENCY_SYMBOL", "$"),
			PaymentMethods:    os.Getenv("PAYMENT_METHODS"),
			DestinationHandle: os.Getenv("DESTINATION_HANDLE"),
			MessagingHost:     getEnv("MESSAGING_HOST", "wa.me"),
			AdminSecret:       os.Getenv("ADMIN_SECRET"),
		},

		SessionKey:     os.Getenv("SESSION_KEY"),
		SessionIdleTTL: getDuration("SESSION_IDLE_TTL", 24*time.Hour),
		AllowedOrigins: getList("ALLOWED_ORIGINS", "http://localhost:3000"),

		CloudinaryURL:    os.Getenv("CLOUDINARY_URL"),
		CloudinaryFolder: getEnv("CLOUDINARY_FOLDER", "storefront/products"),

		CatalogGRPC: getEnv("CATALOG_GRPC", "localhost:50051"),

		RemoteLogHttpURI:       os.Getenv("REMOTE_LOG_HTTP_URI"),
		RemoteTraceRpcURI:      os.Getenv("REMOTE_TRACE_RPC_URI"),
		RemoteProfilingHttpURI: os.Getenv("REMOTE_PROFILING_HTTP_URI"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}

	require("APP_PORT", c.AppPort)
	require("STORE_NAME", c.Store.Name)
	require("PAYMENT_METHODS", c.Store.PaymentMethods)
	require("DESTINATION_HANDLE", c.Store.DestinationHandle)
	require("SESSION_KEY", c.SessionKey)

	var problems []error
	switch c.StoreDriver {
	case DriverMongo:
		require("MONGO_URI", c.MongoURI)
		require("MONGO_DB_NAME", c.MongoDBName)
	case DriverPostgres:
		require("POSTGRES_DSN", c.PostgresDSN)
	case DriverRest:
		require("REST_URL", c.RestURL)
		require("REST_API_KEY", c.RestAPIKey)
	default:
		problems = append(problems, fmt.Errorf("STORE_DRIVER must be one of %s, %s, %s; got %q",
			DriverMongo, DriverPostgres, DriverRest, c.StoreDriver))
	}

	if len(missing) > 0 {
		problems = append(problems, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if c.SessionKey != "" && len(c.SessionKey) < 32 {
		problems = append(problems, errors.New("SESSION_KEY must be at least 32 characters long"))
	}
	if _, err := strconv.Atoi(c.GrpcPort); err != nil {
		problems = append(problems, fmt.Errorf("GRPC_PORT must be numeric: %w", err))
	}

	return errors.Join(problems...)
}

// WarnOptional logs the optional integrations that are switched off.
func (c *Config) WarnOptional() {
	if c.Store.AdminSecret == "" {
		log.Warn("Missing ADMIN_SECRET; admin mode cannot be unlocked")
	}
	if c.CloudinaryURL == "" {
		log.Warn("Missing CLOUDINARY_URL will disable image uploads")
	}
	if c.RemoteLogHttpURI == "" {
		log.Warn("Missing REMOTE_LOG_HTTP_URI will skip sending log")
	}
	if c.RemoteTraceRpcURI == "" {
		log.Warn("Missing REMOTE_TRACE_RPC_URI will skip sending trace")
	}
	if c.RemoteProfilingHttpURI == "" {
		log.Warn("Missing REMOTE_PROFILING_HTTP_URI will skip sending profiling")
	}
}

// ClientConfig is the subset used by the catalog command line client.
type ClientConfig struct {
	AppName          string
	Env              string
	CatalogGRPC      string
	AdminSecret      string
	RemoteLogHttpURI string
}

func LoadClient() ClientConfig {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
	return ClientConfig{
		AppName:          getEnv("APP_NAME", "storefront") + "-catalog-client",
		Env:              getEnv("ENV", "development"),
		CatalogGRPC:      getEnv("CATALOG_GRPC", "localhost:50051"),
		AdminSecret:      os.Getenv("ADMIN_SECRET"),
		RemoteLogHttpURI: os.Getenv("REMOTE_LOG_HTTP_URI"),
	}
}
