package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort           string
	AppEnv            string
	AWSRegion         string
	AWSEndpointURL    string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID    string
	AWSSecretKey      string
	StorageBackend    string // "dynamo" | "memory"
	DynamoTables      DynamoTables
	S3BucketName      string
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	SMTPHost          string
	SMTPPort          string
	SMTPFrom          string
	SMTPUsername      string
	SMTPPassword      string
	SNSRegion         string
	SMSTimeout        time.Duration
	SMSCountryCode    string // prefixed to 10-digit local numbers
	NATSURL           string
	SeedFile          string // optional JSON file of accounts and organizations loaded at startup
	Scheduler         SchedulerConfig
	AllowedOrigins    []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts      string
	OTPs          string
	Organizations string
	VoucherOrders string
	Vouchers      string
	VoucherCodes  string
}

// SchedulerConfig controls the background voucher batch jobs.
type SchedulerConfig struct {
	Enabled             bool
	MaterializeInterval time.Duration
	DispatchInterval    time.Duration
	// MaxDeliveryAttempts caps failed SMS sends per voucher before it is marked FAILED.
	// Zero, the default, retries forever.
	MaxDeliveryAttempts int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "ap-south-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageBackend: getEnv("STORAGE_BACKEND", "dynamo"),
		DynamoTables: DynamoTables{
			Accounts:      getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			OTPs:          getEnv("DYNAMO_TABLE_OTPS", "otps"),
			Organizations: getEnv("DYNAMO_TABLE_ORGANIZATIONS", "organizations"),
			VoucherOrders: getEnv("DYNAMO_TABLE_VOUCHER_ORDERS", "voucher_orders"),
			Vouchers:      getEnv("DYNAMO_TABLE_VOUCHERS", "vouchers"),
			VoucherCodes:  getEnv("DYNAMO_TABLE_VOUCHER_CODES", "voucher_codes"),
		},
		S3BucketName:      getEnv("S3_BUCKET_NAME", "immunopass-uploads"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@immunopass.in"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SNSRegion:         getEnv("SNS_REGION", "ap-south-1"),
		SMSTimeout:        getEnvDuration("SMS_TIMEOUT", 10*time.Second),
		SMSCountryCode:    getEnv("SMS_COUNTRY_CODE", "+91"),
		NATSURL:           getEnv("NATS_URL", ""),
		SeedFile:          getEnv("SEED_FILE", ""),
		Scheduler: SchedulerConfig{
			Enabled:             getEnvBool("SCHEDULER_ENABLED", true),
			MaterializeInterval: getEnvDuration("MATERIALIZE_INTERVAL", time.Minute),
			DispatchInterval:    getEnvDuration("DISPATCH_INTERVAL", 2*time.Minute),
			MaxDeliveryAttempts: getEnvInt("VOUCHER_MAX_DELIVERY_ATTEMPTS", 0),
		},
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "2m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
