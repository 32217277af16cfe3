// Package model 定义套利引擎中使用的核心数据结构。
package model

import (
	"encoding/json"
)

// EventKind 事件种类（消息的 event_type 判别字段）
type EventKind string

const (
	// EventBook 全量订单簿快照事件（整体替换双边档位）
	EventBook EventKind = "book"
	// EventPriceChange 增量档位变更事件（逐档 upsert/删除）
	EventPriceChange EventKind = "price_change"
	// EventTickSizeChange 最小价格增量变更事件
	EventTickSizeChange EventKind = "tick_size_change"
	// EventLastTradePrice 最近成交价事件
	EventLastTradePrice EventKind = "last_trade_price"
	// EventTrade 用户频道成交事件
	EventTrade EventKind = "trade"
	// EventOrder 用户频道订单事件
	EventOrder EventKind = "order"
)

// PriceChange price_change 事件中的单个档位变更
type PriceChange struct {
	// Price 价格
	Price float64
	// Size 新数量；0 表示移除该档位
	Size float64
	// Side 受影响方向
	Side Side
}

// MarketEvent 归一化行情事件
// 以 Kind 为判别字段的 tagged union，各事件种类仅填充其对应的字段。
type MarketEvent struct {
	// Kind 事件种类
	Kind EventKind
	// AssetID token 标识
	AssetID string
	// Market 所属市场
	Market string
	// TimestampMs 交易所时间戳（毫秒）
	TimestampMs int64
	// Hash 订单簿校验哈希（book 事件）
	Hash string

	// Bids/Asks book 事件携带的双边档位
	Bids []Level
	Asks []Level

	// Changes price_change 事件携带的档位变更列表
	Changes []PriceChange

	// OldTickSize/NewTickSize tick_size_change 事件携带的变更前后值
	OldTickSize float64
	NewTickSize float64

	// Price last_trade_price 事件携带的成交价
	Price float64

	// Raw trade/order 事件的原始负载（用于用户事件日志）
	Raw json.RawMessage
}
