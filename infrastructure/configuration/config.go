package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	OAuth       OAuth       `json:"oauth"`
	Upload      Upload      `json:"upload"`
	Publish     Publish     `json:"publish"`
	Storage     Storage     `json:"storage"`
}

type App struct {
	Port           int      `json:"port"`
	SecretKey      string   `json:"secretKey"`
	TLSEnabled     bool     `json:"tlsEnabled"`
	TLSCertFile    string   `json:"tlsCertFile"`
	TLSKeyFile     string   `json:"tlsKeyFile"`
	AllowedOrigins []string `json:"allowedOrigins"`
	RateLimit      int      `json:"rateLimitPerMinute"`
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"string"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// OAuth holds per-platform OAuth client credentials and link flow settings.
type OAuth struct {
	StateTTLSeconds     int         `json:"stateTTLSeconds"`
	ExchangeTimeoutSecs int         `json:"exchangeTimeoutSeconds"`
	FrontendRedirectURL string      `json:"frontendRedirectURL"`
	YouTube             OAuthClient `json:"youtube"`
	Instagram           OAuthClient `json:"instagram"`
	Facebook            OAuthClient `json:"facebook"`
	LinkedIn            OAuthClient `json:"linkedin"`
	TikTok              OAuthClient `json:"tiktok"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

// Upload tunes the resumable video upload.
type Upload struct {
	ChunkSizeBytes        int64 `json:"chunkSizeBytes"`
	MaxRetries            int   `json:"maxRetries"`
	MaxFileSizeBytes      int64 `json:"maxFileSizeBytes"`
	RequestTimeoutSeconds int   `json:"requestTimeoutSeconds"`
	RetriableStatusCodes  []int `json:"retriableStatusCodes"`
}

type Publish struct {
	TimeoutSeconds           int `json:"timeoutSeconds"`
	SchedulerIntervalSeconds int `json:"schedulerIntervalSeconds"`
	SchedulerBatchSize       int `json:"schedulerBatchSize"`
}

// Storage locates video files referenced by the catalog.
type Storage struct {
	UploadDir string `json:"uploadDir"`
	CacheDir  string `json:"cacheDir"`
	S3        S3     `json:"s3"`
	GCS       GCS    `json:"gcs"`
}

type S3 struct {
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
}

type GCS struct {
	Enabled bool `json:"enabled"`
}

var C Config

func init() {
	Reload()
}

// Reload rebuilds C from the config file and the environment. main calls it
// again after env files are loaded.
func Reload() {
	C = Config{}
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initUpload(&C)
	initPublish(&C)
	initStorage(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = getEnv("DB_PORT", "5432")
	}

	// SQL Server is used in production (Azure SQL).
	if C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = os.Getenv("MSSQL_DB_NAME")
	}
	if C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = getEnv("MSSQL_HOST", "localhost")
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = getEnv("MSSQL_PORT", "1433")
	}
	if C.Database.Mssql.User == "" {
		C.Database.Mssql.User = os.Getenv("MSSQL_USER")
	}
	if C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = os.Getenv("MSSQL_PASSWORD")
	}

	if C.Database.MySql.Host == "" {
		C.Database.MySql.Host = os.Getenv("MYSQL_HOST")
	}
	if C.Database.MySql.Port == "" {
		C.Database.MySql.Port = getEnv("MYSQL_PORT", "3306")
	}
	if C.Database.MySql.Name == "" {
		C.Database.MySql.Name = os.Getenv("MYSQL_DB_NAME")
	}
	if C.Database.MySql.User == "" {
		C.Database.MySql.User = os.Getenv("MYSQL_USER")
	}
	if C.Database.MySql.Password == "" {
		C.Database.MySql.Password = os.Getenv("MYSQL_PASSWORD")
	}
}

func initApp(C *Config) {
	// SECRET_KEY from the environment overrides the config file for JWT verification.
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order: APP_PORT -> PORT -> config -> 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			C.App.TLSEnabled = b
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:4200", "https://localhost:4200"}
	}
	if C.App.RateLimit <= 0 {
		C.App.RateLimit = 120
	}
	if C.RedisClient.Host == "" {
		C.RedisClient.Host = os.Getenv("REDIS_HOST")
	}
	if C.RedisClient.Port == "" {
		C.RedisClient.Port = getEnv("REDIS_PORT", "6379")
	}
	if C.RedisClient.Password == "" {
		C.RedisClient.Password = os.Getenv("REDIS_PASSWORD")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initUpload(C *Config) {
	if C.Upload.ChunkSizeBytes <= 0 {
		C.Upload.ChunkSizeBytes = 8 * 1024 * 1024
	}
	if C.Upload.MaxRetries <= 0 {
		C.Upload.MaxRetries = 3
	}
	if C.Upload.MaxFileSizeBytes <= 0 {
		C.Upload.MaxFileSizeBytes = 128 << 30
	}
	if C.Upload.RequestTimeoutSeconds <= 0 {
		C.Upload.RequestTimeoutSeconds = 300
	}
	if len(C.Upload.RetriableStatusCodes) == 0 {
		C.Upload.RetriableStatusCodes = []int{500, 502, 503, 504}
	}
}

func initPublish(C *Config) {
	if C.Publish.TimeoutSeconds <= 0 {
		C.Publish.TimeoutSeconds = 3600
	}
	if C.Publish.SchedulerIntervalSeconds <= 0 {
		C.Publish.SchedulerIntervalSeconds = 30
	}
	if C.Publish.SchedulerBatchSize <= 0 {
		C.Publish.SchedulerBatchSize = 10
	}
	if C.OAuth.StateTTLSeconds <= 0 {
		C.OAuth.StateTTLSeconds = 600
	}
	if C.OAuth.ExchangeTimeoutSecs <= 0 {
		C.OAuth.ExchangeTimeoutSecs = 30
	}
	if C.OAuth.FrontendRedirectURL == "" {
		C.OAuth.FrontendRedirectURL = os.Getenv("OAUTH_FRONTEND_REDIRECT_URL")
	}
}

func initStorage(C *Config) {
	if C.Storage.UploadDir == "" {
		C.Storage.UploadDir = getEnv("VIDEO_UPLOAD_DIR", "uploads")
	}
	if C.Storage.CacheDir == "" {
		C.Storage.CacheDir = getEnv("VIDEO_CACHE_DIR", os.TempDir())
	}
	if C.Storage.S3.Region == "" {
		C.Storage.S3.Region = getEnv("AWS_REGION", "us-east-1")
	}
	if C.Storage.S3.Endpoint == "" {
		C.Storage.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	}
	if C.Storage.S3.AccessKey == "" {
		C.Storage.S3.AccessKey = os.Getenv("S3_ACCESS_KEY")
	}
	if C.Storage.S3.SecretKey == "" {
		C.Storage.S3.SecretKey = os.Getenv("S3_SECRET_KEY")
	}
}

func (p Publish) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (p Publish) SchedulerInterval() time.Duration {
	return time.Duration(p.SchedulerIntervalSeconds) * time.Second
}

func (o OAuth) StateTTL() time.Duration {
	return time.Duration(o.StateTTLSeconds) * time.Second
}

func (o OAuth) ExchangeTimeout() time.Duration {
	return time.Duration(o.ExchangeTimeoutSecs) * time.Second
}

func (u Upload) RequestTimeout() time.Duration {
	return time.Duration(u.RequestTimeoutSeconds) * time.Second
}
