// Package model 定义套利引擎中使用的核心数据结构。
// 包含订单簿状态、行情事件、决策记录等核心类型。
package model

import (
	"sort"
)

// Side 订单簿方向
type Side string

const (
	// SideBuy 买盘方向（bid）
	SideBuy Side = "buy"
	// SideSell 卖盘方向（ask）
	SideSell Side = "sell"
)

// Level 订单簿价格档位
// 价格在同一方向内唯一标识一个档位
type Level struct {
	// Price 价格
	Price float64 `json:"price"`
	// Size 数量（≥ 0）
	Size float64 `json:"size"`
}

// BookState 单个 token 的订单簿状态
// 在收到首个引用该 token 的事件时惰性创建，会话期间不会销毁。
// 买卖双方均以 price -> size 映射存储，保证同一价格至多一个档位。
type BookState struct {
	// AssetID token 标识（Polymarket outcome token id）
	AssetID string
	// Market 所属市场（condition id）
	Market string
	// TimestampMs 最后一次事件的交易所时间戳（毫秒）
	TimestampMs int64
	// TickSize 当前最小价格增量
	// 新 token 使用配置的默认值，直到收到 tick_size_change 事件
	TickSize float64
	// OldTickSize tick_size_change 事件携带的变更前值
	OldTickSize float64
	// LastTradePrice 最近成交价（0 表示尚未收到）
	LastTradePrice float64
	// Bids 买盘档位: price -> size
	Bids map[float64]float64
	// Asks 卖盘档位: price -> size
	Asks map[float64]float64
}

// NewBookState 创建新的订单簿状态
// 参数 assetID: token 标识
// 参数 tickSize: 默认最小价格增量
func NewBookState(assetID string, tickSize float64) *BookState {
	return &BookState{
		AssetID:     assetID,
		TickSize:    tickSize,
		OldTickSize: tickSize,
		Bids:        make(map[float64]float64),
		Asks:        make(map[float64]float64),
	}
}

// side 返回指定方向的档位映射
func (b *BookState) side(s Side) map[float64]float64 {
	if s == SideBuy {
		return b.Bids
	}
	return b.Asks
}

// Upsert 插入或覆盖一个档位
// size 为 0 时移除该价格的档位（若存在）
func (b *BookState) Upsert(s Side, price, size float64) {
	levels := b.side(s)
	if size == 0 {
		delete(levels, price)
		return
	}
	levels[price] = size
}

// ReplaceSide 以给定档位列表整体替换一个方向
// 重复价格以后出现者为准（快照语义）
func (b *BookState) ReplaceSide(s Side, levels []Level) {
	fresh := make(map[float64]float64, len(levels))
	for _, l := range levels {
		if l.Size == 0 {
			delete(fresh, l.Price)
			continue
		}
		fresh[l.Price] = l.Size
	}
	if s == SideBuy {
		b.Bids = fresh
	} else {
		b.Asks = fresh
	}
}

// BestBid 计算最优买价
// 最优买价 = 数量大于 0 的档位中的最高价格
// 返回 ok=false 表示买盘为空
func (b *BookState) BestBid() (price, size float64, ok bool) {
	for px, sz := range b.Bids {
		if sz <= 0 {
			continue
		}
		if !ok || px > price {
			price, size, ok = px, sz, true
		}
	}
	return price, size, ok
}

// BestAsk 计算最优卖价
// 最优卖价 = 数量大于 0 的档位中的最低价格
// 返回 ok=false 表示卖盘为空
func (b *BookState) BestAsk() (price, size float64, ok bool) {
	for px, sz := range b.Asks {
		if sz <= 0 {
			continue
		}
		if !ok || px < price {
			price, size, ok = px, sz, true
		}
	}
	return price, size, ok
}

// BidLevels 返回按价格降序排列的买盘档位（用于快照输出）
func (b *BookState) BidLevels() []Level {
	out := sortedLevels(b.Bids)
	sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}

// AskLevels 返回按价格升序排列的卖盘档位（用于快照输出）
func (b *BookState) AskLevels() []Level {
	out := sortedLevels(b.Asks)
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

func sortedLevels(m map[float64]float64) []Level {
	out := make([]Level, 0, len(m))
	for px, sz := range m {
		out = append(out, Level{Price: px, Size: sz})
	}
	return out
}

// Clone 创建 BookState 的深拷贝
func (b *BookState) Clone() *BookState {
	clone := *b
	clone.Bids = make(map[float64]float64, len(b.Bids))
	for px, sz := range b.Bids {
		clone.Bids[px] = sz
	}
	clone.Asks = make(map[float64]float64, len(b.Asks))
	for px, sz := range b.Asks {
		clone.Asks[px] = sz
	}
	return &clone
}

// BookSnapshot BookState 的可序列化快照形式
// 档位以排序数组输出，映射整体写入快照文件。
type BookSnapshot struct {
	// Market 所属市场
	Market string `json:"market"`
	// TimestampMs 最后事件时间戳（毫秒）
	TimestampMs int64 `json:"timestamp"`
	// TickSize 当前最小价格增量
	TickSize float64 `json:"tick_size"`
	// OldTickSize 变更前的最小价格增量
	OldTickSize float64 `json:"old_tick_size"`
	// LastTradePrice 最近成交价（未收到时省略）
	LastTradePrice float64 `json:"last_trade_price,omitempty"`
	// Bids 买盘档位（价格降序）
	Bids []Level `json:"bids"`
	// Asks 卖盘档位（价格升序）
	Asks []Level `json:"asks"`
}

// Snapshot 生成当前状态的可序列化快照
func (b *BookState) Snapshot() *BookSnapshot {
	return &BookSnapshot{
		Market:         b.Market,
		TimestampMs:    b.TimestampMs,
		TickSize:       b.TickSize,
		OldTickSize:    b.OldTickSize,
		LastTradePrice: b.LastTradePrice,
		Bids:           b.BidLevels(),
		Asks:           b.AskLevels(),
	}
}
