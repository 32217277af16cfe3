// Package store 维护会话内所有 token 的订单簿状态。
// 使用单写者模式避免锁和竞态条件：仅会话循环 goroutine 写入，
// 扫描与快照也在同一循环内读取。
package store

import (
	"sort"

	"polymarket-arb-engine/internal/core/model"
)

// applier 单一事件种类的应用函数
type applier func(s *Store, ev *model.MarketEvent)

// Store 订单簿状态集合（单写者）
// 按 asset id 惰性创建 BookState；状态在会话期间不会销毁。
type Store struct {
	// books 按 asset id 缓存订单簿状态
	books map[string]*model.BookState
	// defaultTickSize 新 token 的默认最小价格增量
	defaultTickSize float64
	// appliers 事件种类到应用函数的分发表
	appliers map[model.EventKind]applier
}

// New 创建订单簿状态集合
// 参数 defaultTickSize: 新 token 的默认最小价格增量
func New(defaultTickSize float64) *Store {
	s := &Store{
		books:           make(map[string]*model.BookState),
		defaultTickSize: defaultTickSize,
	}
	s.appliers = map[model.EventKind]applier{
		model.EventBook:           (*Store).applyBook,
		model.EventPriceChange:    (*Store).applyPriceChange,
		model.EventTickSizeChange: (*Store).applyTickSizeChange,
		model.EventLastTradePrice: (*Store).applyLastTradePrice,
	}
	return s
}

// Apply 将归一化事件应用到对应 token 的订单簿状态
// 非订单簿事件（trade/order 等）直接忽略，由调用方另行处理。
// 返回 true 表示事件已被应用。
func (s *Store) Apply(ev *model.MarketEvent) bool {
	if ev == nil || ev.AssetID == "" {
		return false
	}
	fn, ok := s.appliers[ev.Kind]
	if !ok {
		return false
	}
	fn(s, ev)
	return true
}

// ensure 获取或惰性创建 token 的订单簿状态
func (s *Store) ensure(ev *model.MarketEvent) *model.BookState {
	b, ok := s.books[ev.AssetID]
	if !ok {
		b = model.NewBookState(ev.AssetID, s.defaultTickSize)
		s.books[ev.AssetID] = b
	}
	if ev.Market != "" {
		b.Market = ev.Market
	}
	if ev.TimestampMs > 0 {
		b.TimestampMs = ev.TimestampMs
	}
	return b
}

// applyBook 应用全量订单簿事件
// 整体替换双边档位（快照语义）；tick size 保持原值（新 token 为默认值）。
func (s *Store) applyBook(ev *model.MarketEvent) {
	b := s.ensure(ev)
	b.ReplaceSide(model.SideBuy, ev.Bids)
	b.ReplaceSide(model.SideSell, ev.Asks)
}

// applyPriceChange 应用增量档位变更事件
// 每个变更按方向逐档 upsert；size=0 移除档位。未触及的档位保持不变。
func (s *Store) applyPriceChange(ev *model.MarketEvent) {
	b := s.ensure(ev)
	for _, ch := range ev.Changes {
		b.Upsert(ch.Side, ch.Price, ch.Size)
	}
}

// applyTickSizeChange 应用最小价格增量变更事件
// 仅更新 tick size 字段与时间戳，不触及档位。
func (s *Store) applyTickSizeChange(ev *model.MarketEvent) {
	b := s.ensure(ev)
	if ev.OldTickSize > 0 {
		b.OldTickSize = ev.OldTickSize
	}
	if ev.NewTickSize > 0 {
		b.TickSize = ev.NewTickSize
	}
}

// applyLastTradePrice 应用最近成交价事件
// 仅记录成交价，不触及档位。
func (s *Store) applyLastTradePrice(ev *model.MarketEvent) {
	b := s.ensure(ev)
	if ev.Price > 0 {
		b.LastTradePrice = ev.Price
	}
}

// Get 获取指定 token 的订单簿状态
// 返回的指针应视为只读；不存在时返回 nil。
func (s *Store) Get(assetID string) *model.BookState {
	return s.books[assetID]
}

// Len 返回已见过事件的 token 数量
func (s *Store) Len() int {
	return len(s.books)
}

// AssetIDs 返回按字典序排序的 token 标识列表
// 扫描与日志按此顺序遍历，保证输出确定性。
func (s *Store) AssetIDs() []string {
	ids := make([]string, 0, len(s.books))
	for id := range s.books {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot 生成整个集合的可序列化快照
// 仅包含会话开始以来收到过至少一个事件的 token。
func (s *Store) Snapshot() map[string]*model.BookSnapshot {
	out := make(map[string]*model.BookSnapshot, len(s.books))
	for id, b := range s.books {
		out[id] = b.Snapshot()
	}
	return out
}
