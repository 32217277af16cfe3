// Package polymarket 定义 Polymarket CLOB 订阅频道的消息类型。
package polymarket

import (
	"encoding/json"
)

// Channel 频道种类
type Channel string

const (
	// ChannelMarket 行情频道
	ChannelMarket Channel = "market"
	// ChannelUser 用户频道
	ChannelUser Channel = "user"
)

// MarketSubscription 行情频道订阅帧
// 订阅集合在会话开始时一次性给出
type MarketSubscription struct {
	// AssetsIDs 订阅的 token 标识列表
	AssetsIDs []string `json:"assets_ids"`
	// Type 频道种类: market
	Type string `json:"type"`
}

// AuthPayload 用户频道认证材料
type AuthPayload struct {
	// APIKey API Key
	APIKey string `json:"apiKey"`
	// Secret API Secret
	Secret string `json:"secret"`
	// Passphrase API Passphrase
	Passphrase string `json:"passphrase"`
}

// UserSubscription 用户频道订阅帧
type UserSubscription struct {
	// Auth 认证材料
	Auth AuthPayload `json:"auth"`
	// Markets 订阅的市场（condition id）列表
	Markets []string `json:"markets"`
	// Type 频道种类: user
	Type string `json:"type"`
}

// wireLevel 消息中的单个价格档位
// 价格与数量均为十进制字符串
type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// wireChange price_change 消息中的单个档位变更
type wireChange struct {
	Price string `json:"price"`
	Size  string `json:"size"`
	// Side 方向: BUY 或 SELL
	Side string `json:"side"`
}

// wireEvent 入站事件的统一载体
// event_type 为判别字段；不同事件种类仅填充各自的字段。
// book 事件的双边档位在行情频道使用 bids/asks 键，
// 用户频道使用 buys/sells 键，两者择一出现。
type wireEvent struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	// Timestamp 毫秒时间戳字符串
	Timestamp string `json:"timestamp"`
	Hash      string `json:"hash"`

	Bids  []wireLevel `json:"bids"`
	Asks  []wireLevel `json:"asks"`
	Buys  []wireLevel `json:"buys"`
	Sells []wireLevel `json:"sells"`

	Changes []wireChange `json:"changes"`

	OldTickSize string `json:"old_tick_size"`
	NewTickSize string `json:"new_tick_size"`

	Price string `json:"price"`
}

// UserEventRecord 用户频道 trade/order 事件的日志条目
type UserEventRecord struct {
	// Timestamp 事件时间戳（毫秒）
	Timestamp int64 `json:"timestamp"`
	// EventType 事件种类: trade 或 order
	EventType string `json:"event_type"`
	// AssetID token 标识
	AssetID string `json:"asset_id"`
	// Message 原始事件负载
	Message json.RawMessage `json:"message"`
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64 `json:"parse_error_count"`
	// DroppedEventCount 因通道已满被丢弃的事件数
	DroppedEventCount int64 `json:"dropped_event_count"`
	// UpdatesPerSec 每秒事件数
	UpdatesPerSec float64 `json:"updates_per_sec"`
	// LastMessageAgeMs 最后消息距今时间（毫秒）
	LastMessageAgeMs int64 `json:"last_message_age_ms"`
}
