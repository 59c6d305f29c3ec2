// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Session       SessionConfig       `mapstructure:"session"`
	Search        SearchConfig        `mapstructure:"search"`
	Extract       ExtractConfig       `mapstructure:"extract"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Geocode       GeocodeConfig       `mapstructure:"geocode"`
	Memory        MemoryConfig        `mapstructure:"memory"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// PublicURL 用于拼接地图 iframe 地址
	PublicURL string `mapstructure:"public_url"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// SessionConfig 存储会话令牌（JWT）相关的配置。
type SessionConfig struct {
	Secret   string `mapstructure:"secret"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// RetryConfig 描述一次出站调用的重试策略。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinBackoff  time.Duration `mapstructure:"min_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

// SearchConfig 存储搜索引擎客户端的配置。
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"` // duckduckgo | searxng
	Endpoint   string        `mapstructure:"endpoint"`
	SearxngURL string        `mapstructure:"searxng_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxResults int           `mapstructure:"max_results"`
	Retry      RetryConfig   `mapstructure:"retry"`
}

// ExtractConfig 存储网页正文抽取的配置。
type ExtractConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxChars          int           `mapstructure:"max_chars"`
	Readability       bool          `mapstructure:"readability"`
	Workers           int           `mapstructure:"workers"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Referer           string        `mapstructure:"referer"`
	AcceptLanguage    string        `mapstructure:"accept_language"`
}

// ChunkingConfig 存储文本切块的配置。
type ChunkingConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// RetrievalConfig 存储检索与上下文拼装的配置。
type RetrievalConfig struct {
	TopK            int `mapstructure:"top_k"`
	MaxContextChars int `mapstructure:"max_context_chars"`
	EmbedBatchSize  int `mapstructure:"embed_batch_size"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey      string              `mapstructure:"api_key"`
	BaseURL     string              `mapstructure:"base_url"`
	Model       string              `mapstructure:"model"`
	Timeout     time.Duration       `mapstructure:"timeout"`
	Generation  LLMGenerationConfig `mapstructure:"generation"`
	Description LLMGenerationConfig `mapstructure:"description"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// GeocodeConfig 存储 Nominatim 地理编码服务的配置。
type GeocodeConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	CountryCodes string        `mapstructure:"country_codes"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// MemoryConfig 选择对话记忆的存储后端。
type MemoryConfig struct {
	Backend string `mapstructure:"backend"` // memory | redis
	// RedisTTL 为 0 时对话记忆不过期，只在重置或会话清理时删除
	RedisTTL time.Duration `mapstructure:"redis_ttl"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ServerURL string `mapstructure:"server_url"`
}

// setDefaults 注册与原始应用一致的默认值，配置文件可以覆盖它们。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.public_url", "http://127.0.0.1:8081")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("session.ttl_hours", 24)

	v.SetDefault("search.provider", "duckduckgo")
	v.SetDefault("search.endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.max_results", 15)
	v.SetDefault("search.retry.max_attempts", 5)
	v.SetDefault("search.retry.min_backoff", 5*time.Second)
	v.SetDefault("search.retry.max_backoff", 15*time.Second)

	v.SetDefault("extract.timeout", 10*time.Second)
	v.SetDefault("extract.readability", true)
	v.SetDefault("extract.workers", 4)
	v.SetDefault("extract.referer", "https://duckduckgo.com/")
	v.SetDefault("extract.accept_language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")

	v.SetDefault("chunking.size", 512)
	v.SetDefault("chunking.overlap", 256)

	v.SetDefault("retrieval.top_k", 2)
	v.SetDefault("retrieval.max_context_chars", 2000)
	v.SetDefault("retrieval.embed_batch_size", 32)

	v.SetDefault("embedding.timeout", 60*time.Second)
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("llm.description.temperature", 0.5)
	v.SetDefault("llm.description.top_p", 0.9)
	v.SetDefault("llm.description.max_tokens", 150)

	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.country_codes", "BR")
	v.SetDefault("geocode.user_agent", "guia-turismo-go")
	v.SetDefault("geocode.timeout", 10*time.Second)

	v.SetDefault("memory.backend", "memory")
	v.SetDefault("memory.redis_ttl", 0)
	v.SetDefault("elasticsearch.index_name", "dados_turismo")
	v.SetDefault("kafka.topic", "location-indexed")
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
// 环境变量（前缀 GUIA_，例如 GUIA_LLM_API_KEY）优先于文件。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}

// Load 读取并解析配置，不修改全局变量，方便测试。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GUIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv 只对已知的键生效，没有默认值的键需要显式绑定
	if err := bindEnvs(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// bindEnvs 递归遍历结构体的 mapstructure 标签，为每个叶子键绑定环境变量。
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			if err := bindEnvs(v, field.Type, key); err != nil {
				return err
			}
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}
