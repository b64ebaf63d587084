package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server      ServerConfig            `mapstructure:"server"`      // 服务器配置
	Log         LogConfig               `mapstructure:"log"`         // 日志配置
	Databases   []DatabaseConfig        `mapstructure:"databases"`   // 多实例数据库，顺序即实例编号（从1开始）
	Ingest      IngestConfig            `mapstructure:"ingest"`      // 抓取入库配置
	Aggregation AggregationConfig       `mapstructure:"aggregation"` // 聚合查询配置
	Sources     map[string]SourceConfig `mapstructure:"sources"`     // 各新闻来源独立配置
	Relevance   RelevanceConfig         `mapstructure:"relevance"`   // 相关性判断（LLM）
	Sentiment   SentimentConfig         `mapstructure:"sentiment"`   // 情绪分析模型
	Redis       RedisConfig             `mapstructure:"redis"`       // 去重缓存
	Kafka       KafkaConfig             `mapstructure:"kafka"`       // 入库事件
	Archive     ArchiveConfig           `mapstructure:"archive"`     // 图表归档
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// DatabaseConfig 单个PostgreSQL实例配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// IngestConfig 抓取入库配置
type IngestConfig struct {
	Instance   int         `mapstructure:"instance"`    // 新文章写入的实例编号
	WindowSize int         `mapstructure:"window_size"` // 每轮抓取页数
	DailyCap   int         `mapstructure:"daily_cap"`   // 同一关键字同一天最多入库条数，0 表示不限
	Cron       string      `mapstructure:"cron"`        // 定时抓取Cron表达式（为空则不启用）
	Jobs       []JobConfig `mapstructure:"jobs"`        // 定时任务列表
}

// JobConfig 定时抓取任务
type JobConfig struct {
	Company string `mapstructure:"company"`
	Topic   string `mapstructure:"topic"`
	Pages   int    `mapstructure:"pages"`
}

type AggregationConfig struct {
	BatchSize   int `mapstructure:"batch_size"`  // 分页/IN 批大小
	Concurrency int `mapstructure:"concurrency"` // 并发扫描的表数量上限
}

// SourceConfig 单个新闻来源的独立配置
type SourceConfig struct {
	BaseURL        string `mapstructure:"base_url"`        // 基础地址
	Timeout        int    `mapstructure:"timeout"`         // 请求超时（秒）
	RetryCount     int    `mapstructure:"retry_count"`     // 重试次数
	AuthToken      string `mapstructure:"auth_token"`      // API Key（newsapi 用）
	Proxy          string `mapstructure:"proxy"`           // 代理地址
	UseBrowser     bool   `mapstructure:"use_browser"`     // 是否使用无头浏览器抓取列表页
	RelevanceCheck bool   `mapstructure:"relevance_check"` // 是否调用相关性判断
	MinListItems   int    `mapstructure:"min_list_items"`  // 列表页条目少于该值即停止翻页
	LinkPrefix     string `mapstructure:"link_prefix"`     // 仅保留该前缀的链接（ltn 用）
	ExtractContent bool   `mapstructure:"extract_content"` // 是否抓取正文（rss 用）
	PageSize       int    `mapstructure:"page_size"`       // 每页条数（API 来源用）
	Language       string `mapstructure:"language"`        // 语言（API/RSS 来源用）
}

// RelevanceConfig 相关性判断配置
type RelevanceConfig struct {
	Provider   string        `mapstructure:"provider"`    // gemini/cohere/none
	BaseURL    string        `mapstructure:"base_url"`    // gemini REST 地址
	Model      string        `mapstructure:"model"`       // 模型名称
	APIKey     string        `mapstructure:"api_key"`     // 密钥（从env覆盖）
	Timeout    int           `mapstructure:"timeout"`     // 单次调用超时（秒）
	RetryPause time.Duration `mapstructure:"retry_pause"` // 失败后重试前的等待
}

// SentimentConfig 情绪分析模型配置
type SentimentConfig struct {
	BaseURL    string `mapstructure:"base_url"`    // 推理服务地址
	Model      string `mapstructure:"model"`       // 模型名称
	APIKey     string `mapstructure:"api_key"`     // 密钥（从env覆盖）
	Timeout    int    `mapstructure:"timeout"`     // 超时（秒）
	RetryCount int    `mapstructure:"retry_count"` // 重试次数
	MaxChars   int    `mapstructure:"max_chars"`   // 输入截断长度
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ArchiveConfig struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Prefix       string `mapstructure:"prefix"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	for i := range cfg.Databases {
		if v := os.Getenv(fmt.Sprintf("DATABASE_DSN_%d", i+1)); v != "" {
			cfg.Databases[i].DSN = v
		}
	}
	// 只在 env 中配置了第二个实例时补齐
	if len(cfg.Databases) < 2 {
		for i := len(cfg.Databases); i < 2; i++ {
			if v := os.Getenv(fmt.Sprintf("DATABASE_DSN_%d", i+1)); v != "" {
				cfg.Databases = append(cfg.Databases, DatabaseConfig{DSN: v})
			}
		}
	}
	if s, ok := cfg.Sources["api"]; ok {
		if v := os.Getenv("NEWSAPI_KEY"); v != "" {
			s.AuthToken = v
		}
		cfg.Sources["api"] = s
	}
	switch cfg.Relevance.Provider {
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			cfg.Relevance.APIKey = v
		}
	case "cohere":
		if v := os.Getenv("COHERE_API_KEY"); v != "" {
			cfg.Relevance.APIKey = v
		}
	}
	if v := os.Getenv("HF_API_TOKEN"); v != "" {
		cfg.Sentiment.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Ingest.Instance == 0 {
		c.Ingest.Instance = 1
	}
	if c.Ingest.WindowSize <= 0 {
		c.Ingest.WindowSize = 3
	}
	if c.Aggregation.BatchSize <= 0 {
		c.Aggregation.BatchSize = 5000
	}
	if c.Aggregation.Concurrency <= 0 {
		c.Aggregation.Concurrency = 4
	}
	if c.Relevance.Provider == "" {
		c.Relevance.Provider = "none"
	}
	if c.Relevance.Timeout <= 0 {
		c.Relevance.Timeout = 30
	}
	if c.Relevance.RetryPause <= 0 {
		c.Relevance.RetryPause = 5 * time.Second
	}
	if c.Sentiment.Timeout <= 0 {
		c.Sentiment.Timeout = 30
	}
	if c.Sentiment.MaxChars <= 0 {
		c.Sentiment.MaxChars = 512
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 72 * time.Hour
	}
	for name, s := range c.Sources {
		if s.Timeout <= 0 {
			s.Timeout = 20
		}
		if s.MinListItems <= 0 {
			s.MinListItems = 10
		}
		c.Sources[name] = s
	}
}

// Validate 校验必填项
func (c *Config) Validate() error {
	if len(c.Databases) == 0 {
		return fmt.Errorf("至少需要配置一个数据库实例")
	}
	for i, db := range c.Databases {
		if db.DSN == "" {
			return fmt.Errorf("数据库实例%d未配置dsn", i+1)
		}
	}
	if c.Ingest.Instance < 1 || c.Ingest.Instance > len(c.Databases) {
		return fmt.Errorf("ingest.instance=%d 超出实例范围（共%d个）", c.Ingest.Instance, len(c.Databases))
	}
	return nil
}
