// Package config loads the server configuration from defaults, an optional
// JSON file, environment variables and command-line flags, in that order of
// increasing priority, and validates the result.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting of the party planner server.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" validate:"omitempty,hostname_port"`
	BasePath            string        `env:"BASE_PATH" validate:"basepath"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_URL"`
	DBDriver            string        `env:"DB_DRIVER" validate:"oneof=pgx postgres"`
	SQLitePath          string        `env:"SQLITE_PATH" validate:"omitempty,filepath"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"omitempty,filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	JWTSecret           string        `env:"JWT_SECRET" validate:"required"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" validate:"gt=0"`
	PasswordHashCost    int           `env:"PASSWORD_HASH_COST" validate:"min=4,max=31"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	AuthRateLimit       float64       `env:"AUTH_RATE_LIMIT" validate:"gt=0"`
	AuthRateBurst       int           `env:"AUTH_RATE_BURST" validate:"gt=0"`
	CORSAllowedOrigin   string        `env:"CORS_ALLOWED_ORIGIN" validate:"required"`
	ConfigFile          string        `env:"CONFIG"`
}

// jsonConfig mirrors Config for the JSON file, where durations are written as strings like "10s".
type jsonConfig struct {
	RunAddr             string  `json:"server_address"`
	GRPCAddr            string  `json:"grpc_address"`
	BasePath            string  `json:"base_path"`
	LogLevel            string  `json:"log_level"`
	DatabaseDSN         string  `json:"database_dsn"`
	DBDriver            string  `json:"db_driver"`
	SQLitePath          string  `json:"sqlite_path"`
	DBFileName          string  `json:"file_storage_path"`
	DBConnectionTimeout string  `json:"db_connection_timeout"`
	JWTSecret           string  `json:"jwt_secret"`
	TokenTTL            string  `json:"token_ttl"`
	PasswordHashCost    int     `json:"password_hash_cost"`
	TrustedSubnet       string  `json:"trusted_subnet"`
	AuthRateLimit       float64 `json:"auth_rate_limit"`
	AuthRateBurst       int     `json:"auth_rate_burst"`
	CORSAllowedOrigin   string  `json:"cors_allowed_origin"`
}

// DefaultJWTSecret is used when no secret is configured. Production deployments must override it.
const DefaultJWTSecret = "your-secret-key-change-in-production"

var defaultConfig = Config{
	RunAddr:             ":3001",
	GRPCAddr:            "",
	BasePath:            "/api",
	LogLevel:            "info",
	DatabaseDSN:         "",
	DBDriver:            "pgx",
	SQLitePath:          "",
	DBFileName:          "",
	DBConnectionTimeout: 10 * time.Second,
	JWTSecret:           DefaultJWTSecret,
	TokenTTL:            7 * 24 * time.Hour,
	PasswordHashCost:    10,
	TrustedSubnet:       "",
	AuthRateLimit:       5,
	AuthRateBurst:       10,
	CORSAllowedOrigin:   "*",
}

// InitOption configures New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command-line flags. Tests use it to keep the go test flags out.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs overrides the command-line arguments, os.Args[1:] by default.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds the configuration: defaults, then the JSON file named by CONFIG
// (or -c), then environment variables, then command-line flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := os.Getenv("CONFIG")
	if !options.disableFlagsParsing {
		if fromFlag := lookupConfigFlag(options.args); fromFlag != "" {
			configFile = fromFlag
		}
	}
	if configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `values.loadJSON()` calling: %w", err)
		}
		values.ConfigFile = configFile
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `values.parseFlags()` calling: %w", err)
		}
	}

	values.BasePath = normalizeBasePath(values.BasePath)

	if err := validate(values); err != nil {
		return nil, err
	}

	return values, nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("partyserver", flag.ContinueOnError)
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flags.StringVar(&c.GRPCAddr, "g", c.GRPCAddr, "address and port of the gRPC server, disabled when empty")
	flags.StringVar(&c.BasePath, "p", c.BasePath, "path prefix of the API routes")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "PostgreSQL connection string")
	flags.StringVar(&c.SQLitePath, "s", c.SQLitePath, "SQLite database file")
	flags.StringVar(&c.DBFileName, "f", c.DBFileName, "JSON file name with database")
	flags.StringVar(&c.JWTSecret, "k", c.JWTSecret, "secret used to sign bearer tokens")
	flags.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "CIDR allowed to read /metrics")
	flags.StringVar(&c.ConfigFile, "c", c.ConfigFile, "JSON configuration file")

	return flags.Parse(args)
}

// lookupConfigFlag finds -c before the full flag set is parsed,
// since the file has to be applied below env and the other flags.
func lookupConfigFlag(args []string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "c" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}

	return ""
}

func (c *Config) loadJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}

	var fromFile jsonConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return err
	}

	setString := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	setString(&c.RunAddr, fromFile.RunAddr)
	setString(&c.GRPCAddr, fromFile.GRPCAddr)
	setString(&c.BasePath, fromFile.BasePath)
	setString(&c.LogLevel, fromFile.LogLevel)
	setString(&c.DatabaseDSN, fromFile.DatabaseDSN)
	setString(&c.DBDriver, fromFile.DBDriver)
	setString(&c.SQLitePath, fromFile.SQLitePath)
	setString(&c.DBFileName, fromFile.DBFileName)
	setString(&c.JWTSecret, fromFile.JWTSecret)
	setString(&c.TrustedSubnet, fromFile.TrustedSubnet)
	setString(&c.CORSAllowedOrigin, fromFile.CORSAllowedOrigin)

	if fromFile.DBConnectionTimeout != "" {
		if c.DBConnectionTimeout, err = time.ParseDuration(fromFile.DBConnectionTimeout); err != nil {
			return err
		}
	}
	if fromFile.TokenTTL != "" {
		if c.TokenTTL, err = time.ParseDuration(fromFile.TokenTTL); err != nil {
			return err
		}
	}
	if fromFile.PasswordHashCost != 0 {
		c.PasswordHashCost = fromFile.PasswordHashCost
	}
	if fromFile.AuthRateLimit != 0 {
		c.AuthRateLimit = fromFile.AuthRateLimit
	}
	if fromFile.AuthRateBurst != 0 {
		c.AuthRateBurst = fromFile.AuthRateBurst
	}

	return nil
}

func normalizeBasePath(basePath string) string {
	basePath = strings.TrimRight(strings.TrimSpace(basePath), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	return basePath
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || errors.Is(err, os.ErrNotExist)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warn":    true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func validateBasePath(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	return value == "" || (strings.HasPrefix(value, "/") && !strings.ContainsAny(value, " ?#"))
}

func validate(values *Config) error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("basepath", validateBasePath)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}
