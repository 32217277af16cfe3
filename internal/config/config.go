// Package config 负责加载和验证 YAML 配置文件。
// 提供应用程序所需的所有配置项，包括频道连接、订阅集合、策略参数、输出设置等。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 默认频道地址（Polymarket CLOB 订阅服务）
const (
	// DefaultMarketWSURL 行情频道默认地址
	DefaultMarketWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	// DefaultUserWSURL 用户频道默认地址
	DefaultUserWSURL = "wss://ws-subscriptions-clob.polymarket.com/ws/user"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Subscription 订阅集合配置
	Subscription SubscriptionConfig `yaml:"subscription"`
	// WS WebSocket 连接配置
	WS WSConfig `yaml:"ws"`
	// Auth 用户频道认证材料
	Auth AuthConfig `yaml:"auth"`
	// Strategy 策略参数配置
	Strategy StrategyConfig `yaml:"strategy"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// SubscriptionConfig 订阅集合配置
// 订阅集合在会话开始时固定，会话内不支持动态增删。
type SubscriptionConfig struct {
	// TokensFile token 注册文件路径（JSON 数组，每项至少含 token_id）
	TokensFile string `yaml:"tokens_file"`
	// TokenFilters 注册文件的属性过滤条件，如 outcome: "Yes"
	TokenFilters map[string]string `yaml:"token_filters"`
	// AssetIDs 直接列出的 token 标识（与 TokensFile 二选一或合并）
	AssetIDs []string `yaml:"asset_ids"`
	// Markets 用户频道订阅的市场（condition id）列表
	Markets []string `yaml:"markets"`
}

// WSConfig WebSocket 连接配置
type WSConfig struct {
	// Market 行情频道配置
	Market EndpointConfig `yaml:"market"`
	// User 用户频道配置
	User EndpointConfig `yaml:"user"`
	// UserEnabled 是否启用用户频道
	UserEnabled bool `yaml:"user_enabled"`
}

// EndpointConfig 单个频道的连接配置
type EndpointConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// HandshakeTimeoutMs 握手超时（毫秒）
	HandshakeTimeoutMs int `yaml:"handshake_timeout_ms"`
	// EventBuffer 事件通道缓冲大小
	EventBuffer int `yaml:"event_buffer"`
}

// AuthConfig 用户频道认证材料
// 仅用于构建订阅帧；凭证派生与真实下单由外部协作方负责。
type AuthConfig struct {
	// APIKey API Key
	APIKey string `yaml:"api_key"`
	// Secret API Secret
	Secret string `yaml:"secret"`
	// Passphrase API Passphrase
	Passphrase string `yaml:"passphrase"`
}

// StrategyConfig 策略参数配置
type StrategyConfig struct {
	// ThresholdPrice 决策阈值 T
	// 完整互斥穷尽的结果集合应定价为 T；best-ask 合计低于 T 视为错误定价。
	ThresholdPrice float64 `yaml:"threshold_price"`
	// ScanIntervalMs 扫描周期（毫秒）
	ScanIntervalMs int `yaml:"scan_interval_ms"`
	// AnalysisEveryCycles 分析日志节流周期 K，每 K 个扫描周期至多写一条
	AnalysisEveryCycles int `yaml:"analysis_every_cycles"`
	// DefaultTickSize 新 token 的默认最小价格增量
	DefaultTickSize float64 `yaml:"default_tick_size"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// SnapshotFile 订单簿快照文件名（整体覆盖写）
	SnapshotFile string `yaml:"snapshot_file"`
	// DecisionFile 决策日志文件名（追加）
	DecisionFile string `yaml:"decision_file"`
	// AnalysisFile 分析日志文件名（追加）
	AnalysisFile string `yaml:"analysis_file"`
	// UserEventsFile 用户频道事件日志文件名（追加）
	UserEventsFile string `yaml:"user_events_file"`
	// SnapshotIntervalMs 快照写入周期（毫秒）
	SnapshotIntervalMs int `yaml:"snapshot_interval_ms"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "polymarket-arb-engine"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.WS.Market.URL == "" {
		c.WS.Market.URL = DefaultMarketWSURL
	}
	if c.WS.User.URL == "" {
		c.WS.User.URL = DefaultUserWSURL
	}
	if c.WS.Market.HandshakeTimeoutMs == 0 {
		c.WS.Market.HandshakeTimeoutMs = 10000 // 10 秒
	}
	if c.WS.User.HandshakeTimeoutMs == 0 {
		c.WS.User.HandshakeTimeoutMs = 10000 // 10 秒
	}
	if c.WS.Market.EventBuffer == 0 {
		c.WS.Market.EventBuffer = 1000
	}
	if c.WS.User.EventBuffer == 0 {
		c.WS.User.EventBuffer = 1000
	}

	// 策略默认值：完整结果集合定价为 1
	if c.Strategy.ThresholdPrice == 0 {
		c.Strategy.ThresholdPrice = 1.0
	}
	if c.Strategy.ScanIntervalMs == 0 {
		c.Strategy.ScanIntervalMs = 2000 // 2 秒
	}
	if c.Strategy.AnalysisEveryCycles == 0 {
		c.Strategy.AnalysisEveryCycles = 5
	}
	if c.Strategy.DefaultTickSize == 0 {
		c.Strategy.DefaultTickSize = 0.01
	}

	// 输出默认值
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.SnapshotFile == "" {
		c.Output.SnapshotFile = "market_data.json"
	}
	if c.Output.DecisionFile == "" {
		c.Output.DecisionFile = "order_log.json"
	}
	if c.Output.AnalysisFile == "" {
		c.Output.AnalysisFile = "analysis_log.json"
	}
	if c.Output.UserEventsFile == "" {
		c.Output.UserEventsFile = "user_events.json"
	}
	if c.Output.SnapshotIntervalMs == 0 {
		c.Output.SnapshotIntervalMs = 5000 // 5 秒
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	// 验证订阅集合
	if c.Subscription.TokensFile == "" && len(c.Subscription.AssetIDs) == 0 {
		errs = append(errs, "subscription: 需要配置 tokens_file 或 asset_ids")
	}
	for i, id := range c.Subscription.AssetIDs {
		if id == "" {
			errs = append(errs, fmt.Sprintf("subscription.asset_ids[%d]: token 标识不能为空", i))
		}
	}

	// 验证频道配置
	if c.WS.Market.URL == "" {
		errs = append(errs, "ws.market.url: 行情频道地址不能为空")
	}
	if c.WS.UserEnabled {
		if c.WS.User.URL == "" {
			errs = append(errs, "ws.user.url: 用户频道地址不能为空")
		}
		if c.Auth.APIKey == "" || c.Auth.Secret == "" || c.Auth.Passphrase == "" {
			errs = append(errs, "auth: 启用用户频道时必须配置 api_key、secret、passphrase")
		}
		if len(c.Subscription.Markets) == 0 {
			errs = append(errs, "subscription.markets: 启用用户频道时至少需要一个市场")
		}
	}

	// 验证策略参数
	if c.Strategy.ThresholdPrice <= 0 {
		errs = append(errs, "strategy.threshold_price: 决策阈值必须为正数")
	}
	if c.Strategy.ScanIntervalMs <= 0 {
		errs = append(errs, "strategy.scan_interval_ms: 扫描周期必须为正数")
	}
	if c.Strategy.AnalysisEveryCycles <= 0 {
		errs = append(errs, "strategy.analysis_every_cycles: 节流周期必须为正数")
	}
	if c.Strategy.DefaultTickSize < 0 {
		errs = append(errs, "strategy.default_tick_size: 最小价格增量不能为负数")
	}

	// 验证输出参数
	if c.Output.SnapshotIntervalMs <= 0 {
		errs = append(errs, "output.snapshot_interval_ms: 快照周期必须为正数")
	}
	if c.Output.BufferSize < 0 {
		errs = append(errs, "output.buffer_size: 缓冲区大小不能为负数")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
