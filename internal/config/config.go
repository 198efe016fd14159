package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config 服务全部配置。环境变量优先于可选的 config.yaml
type Config struct {
	AppPort string `mapstructure:"app_port"`

	// 简报定时与发送目标
	SendTime     string   `mapstructure:"send_time"` // HH:MM
	TargetGroups []string `mapstructure:"target_groups"`

	// bot 宿主的消息接口；为空时只生成不发送
	WebhookBaseURL string `mapstructure:"webhook_base_url"`
	WebhookToken   string `mapstructure:"webhook_token"`

	// 各数据源凭证，缺失的源会以鉴权失败的占位块出现在简报里
	OpenRouterKey   string `mapstructure:"openrouter_key"`
	DeepSeekKey     string `mapstructure:"deepseek_key"`
	MoonshotKey     string `mapstructure:"moonshot_key"`
	SiliconFlowKey  string `mapstructure:"siliconflow_key"`
	ExchangeRateKey string `mapstructure:"exchangerate_key"`
	YuafengKey      string `mapstructure:"yuafeng_key"`

	// 聚合时限
	PerSourceTimeout time.Duration `mapstructure:"per_source_timeout"`
	OverallDeadline  time.Duration `mapstructure:"overall_deadline"`

	TemplatePath string `mapstructure:"template_path"`

	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisAddr   string `mapstructure:"redis_addr"`

	BasicAuthUser string `mapstructure:"basic_auth_user"`
	BasicAuthPass string `mapstructure:"basic_auth_pass"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_port", "9000")
	v.SetDefault("send_time", "08:00")
	v.SetDefault("per_source_timeout", "15s")
	v.SetDefault("overall_deadline", "30s")
	v.SetDefault("template_path", "templates/report.html")
	v.SetDefault("postgres_dsn", "host=localhost user=dailybrief password=dailybrief dbname=dailybrief port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("redis_addr", "localhost:6380")

	// 可选配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.dailybrief")
	_ = v.ReadInConfig()

	v.BindEnv("app_port", "APP_PORT")
	v.BindEnv("send_time", "SEND_TIME")
	v.BindEnv("target_groups", "TARGET_GROUPS")
	v.BindEnv("webhook_base_url", "WEBHOOK_BASE_URL")
	v.BindEnv("webhook_token", "WEBHOOK_TOKEN")
	v.BindEnv("openrouter_key", "OPENROUTER_KEY")
	v.BindEnv("deepseek_key", "DEEPSEEK_KEY")
	v.BindEnv("moonshot_key", "MOONSHOT_KEY")
	v.BindEnv("siliconflow_key", "SILICONFLOW_KEY")
	v.BindEnv("exchangerate_key", "EXCHANGERATE_KEY")
	v.BindEnv("yuafeng_key", "YUAFENG_KEY")
	v.BindEnv("per_source_timeout", "PER_SOURCE_TIMEOUT")
	v.BindEnv("overall_deadline", "OVERALL_DEADLINE")
	v.BindEnv("template_path", "TEMPLATE_PATH")
	v.BindEnv("postgres_dsn", "POSTGRES_DSN")
	v.BindEnv("redis_addr", "REDIS_ADDR")
	v.BindEnv("basic_auth_user", "APP_BASIC_USER")
	v.BindEnv("basic_auth_pass", "APP_BASIC_PASS")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	log.Printf("config loaded: port=%s send_time=%s groups=%d", cfg.AppPort, cfg.SendTime, len(cfg.TargetGroups))
	return cfg, nil
}
