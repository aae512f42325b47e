package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName    string
	AppEnv     string
	ServerPort int
	LogLevel   string

	DB     DBConfig
	Auth   AuthConfig
	Cookie CookieConfig
	S3     S3Config
	Upload UploadConfig
	Kafka  KafkaConfig
	ES     ESConfig

	CORSAllowOrigins []string
}

type DBConfig struct {
	Driver      string
	URL         string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

type AuthConfig struct {
	SecretKey  []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type CookieConfig struct {
	Secure bool
}

type S3Config struct {
	Driver    string
	AccessKey string
	SecretKey string
	Endpoint  string
	Bucket    string
	Region    string
}

type UploadConfig struct {
	MaxBytes      int64
	KeyLength     int
	KeyAttempts   int
	SweepInterval time.Duration
	PendingTTL    time.Duration
}

type KafkaConfig struct {
	Brokers   []string
	UserTopic string
	FileTopic string
}

type ESConfig struct {
	URL       string
	User      string
	Password  string
	FileIndex string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		AppName:    EnvDefault("APP_NAME", "file-fortress"),
		AppEnv:     EnvDefault("APP_ENV", "development"),
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		DB: DBConfig{
			Driver:      strings.ToLower(EnvDefault("DB_DRIVER", "postgres")),
			URL:         os.Getenv("DATABASE_URL"),
			Host:        EnvDefault("DB_HOST", "localhost"),
			Port:        EnvDefault("DB_PORT", "5432"),
			User:        os.Getenv("DB_USER"),
			Password:    os.Getenv("DB_PASSWORD"),
			Name:        os.Getenv("DB_NAME"),
			SSLMode:     EnvDefault("DB_SSLMODE", "disable"),
			AutoMigrate: EnvBoolDefault("DB_AUTO_MIGRATE", true),
		},

		Auth: AuthConfig{
			SecretKey:  []byte(os.Getenv("AUTH_SECRET_KEY")),
			Algorithm:  strings.ToUpper(EnvDefault("AUTH_ALGORITHM", "HS256")),
			AccessTTL:  time.Duration(EnvIntDefault("AUTH_ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
			RefreshTTL: time.Duration(EnvIntDefault("AUTH_REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		},

		Cookie: CookieConfig{
			Secure: EnvBoolDefault("COOKIE_SECURE", true),
		},

		S3: S3Config{
			Driver:    strings.ToLower(EnvDefault("STORAGE_DRIVER", "s3")),
			AccessKey: os.Getenv("AWS_ACCESS_KEY"),
			SecretKey: os.Getenv("AWS_SECRET_KEY"),
			Endpoint:  os.Getenv("AWS_ENDPOINT_URL"),
			Bucket:    os.Getenv("AWS_BUCKET_NAME"),
			Region:    EnvDefault("AWS_REGION", "us-east-1"),
		},

		Upload: UploadConfig{
			MaxBytes:      EnvInt64Default("UPLOAD_MAX_BYTES", 50<<20),
			KeyLength:     EnvIntDefault("UPLOAD_KEY_LENGTH", 6),
			KeyAttempts:   EnvIntDefault("UPLOAD_KEY_ATTEMPTS", 5),
			SweepInterval: EnvDurationDefault("UPLOAD_SWEEP_INTERVAL", 10*time.Minute),
			PendingTTL:    EnvDurationDefault("UPLOAD_PENDING_TTL", time.Hour),
		},

		Kafka: KafkaConfig{
			Brokers:   CSV(os.Getenv("KAFKA_BROKERS")),
			UserTopic: EnvDefault("KAFKA_USER_TOPIC", "user_events"),
			FileTopic: EnvDefault("KAFKA_FILE_TOPIC", "file_events"),
		},

		ES: ESConfig{
			URL:       os.Getenv("ES_URL"),
			User:      os.Getenv("ES_USER"),
			Password:  os.Getenv("ES_PASSWORD"),
			FileIndex: EnvDefault("ES_FILE_INDEX", "files"),
		},

		CORSAllowOrigins: CSV(EnvDefault("CORS_ALLOW_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, NonEmptyBytes(c.Auth.SecretKey, "AUTH_SECRET_KEY"))
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_ALGORITHM %q", c.Auth.Algorithm))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	switch c.DB.Driver {
	case "postgres":
		if c.DB.URL == "" {
			errs = append(errs, NonEmpty(c.DB.User, "DB_USER"), NonEmpty(c.DB.Name, "DB_NAME"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver))
	}

	switch c.S3.Driver {
	case "s3":
		errs = append(errs,
			NonEmpty(c.S3.AccessKey, "AWS_ACCESS_KEY"),
			NonEmpty(c.S3.SecretKey, "AWS_SECRET_KEY"),
			NonEmpty(c.S3.Bucket, "AWS_BUCKET_NAME"),
		)
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_DRIVER %q", c.S3.Driver))
	}

	if c.IsProduction() {
		if c.S3.Driver == "memory" {
			errs = append(errs, errors.New("STORAGE_DRIVER=memory is not allowed in production"))
		}
		if !c.Cookie.Secure {
			errs = append(errs, errors.New("COOKIE_SECURE must be enabled in production"))
		}
	}

	if c.Upload.KeyLength < 4 || c.Upload.KeyAttempts < 1 {
		errs = append(errs, errors.New("upload key length must be >= 4 and attempts >= 1"))
	}

	return errors.Join(errs...)
}

// DSN returns DATABASE_URL or a url assembled from the DB_* parts.
func (d DBConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return EnvDefault("DB_NAME", "file_fortress.db")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
