// Package store 订单簿状态集合测试
package store

import (
	"sort"
	"testing"

	"polymarket-arb-engine/internal/core/model"
)

func bookEvent(assetID string, bids, asks []model.Level) *model.MarketEvent {
	return &model.MarketEvent{
		Kind:    model.EventBook,
		AssetID: assetID,
		Bids:    bids,
		Asks:    asks,
	}
}

// TestStore_ApplyBook 测试全量快照事件应用
func TestStore_ApplyBook(t *testing.T) {
	s := New(0.01)

	applied := s.Apply(bookEvent("token-a",
		[]model.Level{{Price: 0.40, Size: 10}},
		[]model.Level{{Price: 0.55, Size: 50}}))
	if !applied {
		t.Fatal("book 事件应被应用")
	}

	b := s.Get("token-a")
	if b == nil {
		t.Fatal("应惰性创建订单簿状态")
	}
	if b.TickSize != 0.01 {
		t.Fatalf("新 token 应使用默认 tick size: %f, want 0.01", b.TickSize)
	}
	if b.Bids[0.40] != 10 || b.Asks[0.55] != 50 {
		t.Fatal("双边档位未正确应用")
	}

	// 第二个全量快照整体替换
	s.Apply(bookEvent("token-a",
		nil,
		[]model.Level{{Price: 0.60, Size: 5}}))
	b = s.Get("token-a")
	if len(b.Bids) != 0 {
		t.Fatal("全量快照应整体替换买盘")
	}
	if _, ok := b.Asks[0.55]; ok {
		t.Fatal("全量快照应整体替换卖盘")
	}
}

// TestStore_ApplyPriceChange 测试增量变更事件应用
func TestStore_ApplyPriceChange(t *testing.T) {
	s := New(0.01)
	s.Apply(bookEvent("token-a",
		[]model.Level{{Price: 0.40, Size: 10}},
		[]model.Level{{Price: 0.55, Size: 50}, {Price: 0.56, Size: 20}}))

	s.Apply(&model.MarketEvent{
		Kind:    model.EventPriceChange,
		AssetID: "token-a",
		Changes: []model.PriceChange{
			{Price: 0.55, Size: 0, Side: model.SideSell},  // 移除最优
			{Price: 0.54, Size: 30, Side: model.SideSell}, // 新档位
			{Price: 0.40, Size: 99, Side: model.SideBuy},  // 覆盖
		},
	})

	b := s.Get("token-a")
	if _, ok := b.Asks[0.55]; ok {
		t.Fatal("size=0 的变更应移除档位")
	}
	if b.Asks[0.54] != 30 {
		t.Fatalf("Asks[0.54] = %f, want 30", b.Asks[0.54])
	}
	if b.Asks[0.56] != 20 {
		t.Fatal("未触及的档位应保持不变")
	}
	if b.Bids[0.40] != 99 {
		t.Fatalf("Bids[0.40] = %f, want 99", b.Bids[0.40])
	}
}

// TestStore_ApplyPriceChange_LazyCreate 测试首个事件为增量变更时的惰性创建
func TestStore_ApplyPriceChange_LazyCreate(t *testing.T) {
	s := New(0.1)

	s.Apply(&model.MarketEvent{
		Kind:    model.EventPriceChange,
		AssetID: "token-new",
		Changes: []model.PriceChange{{Price: 0.55, Size: 50, Side: model.SideSell}},
	})

	b := s.Get("token-new")
	if b == nil {
		t.Fatal("首个事件为 price_change 也应创建状态")
	}
	if b.TickSize != 0.1 {
		t.Fatalf("TickSize = %f, want 0.1", b.TickSize)
	}
	if b.Asks[0.55] != 50 {
		t.Fatal("增量变更未应用到新建状态")
	}
}

// TestStore_ApplyTickSizeChange 测试 tick size 变更事件
func TestStore_ApplyTickSizeChange(t *testing.T) {
	s := New(0.01)
	s.Apply(bookEvent("token-a", nil, []model.Level{{Price: 0.55, Size: 50}}))

	s.Apply(&model.MarketEvent{
		Kind:        model.EventTickSizeChange,
		AssetID:     "token-a",
		OldTickSize: 0.01,
		NewTickSize: 0.001,
	})

	b := s.Get("token-a")
	if b.TickSize != 0.001 {
		t.Fatalf("TickSize = %f, want 0.001", b.TickSize)
	}
	if b.OldTickSize != 0.01 {
		t.Fatalf("OldTickSize = %f, want 0.01", b.OldTickSize)
	}
	if b.Asks[0.55] != 50 {
		t.Fatal("tick size 变更不应触及档位")
	}
}

// TestStore_ApplyLastTradePrice 测试成交价事件
func TestStore_ApplyLastTradePrice(t *testing.T) {
	s := New(0.01)
	s.Apply(&model.MarketEvent{
		Kind:    model.EventLastTradePrice,
		AssetID: "token-a",
		Price:   0.54,
	})

	b := s.Get("token-a")
	if b == nil || b.LastTradePrice != 0.54 {
		t.Fatalf("LastTradePrice 未记录")
	}
}

// TestStore_ApplyRejected 测试不可应用事件的处理
func TestStore_ApplyRejected(t *testing.T) {
	s := New(0.01)

	if s.Apply(nil) {
		t.Error("nil 事件不应被应用")
	}
	if s.Apply(&model.MarketEvent{Kind: model.EventBook}) {
		t.Error("缺少 asset_id 的事件不应被应用")
	}
	if s.Apply(&model.MarketEvent{Kind: model.EventTrade, AssetID: "token-a"}) {
		t.Error("trade 事件不属于订单簿状态，不应被应用")
	}
	if s.Len() != 0 {
		t.Errorf("被拒绝的事件不应创建状态: Len = %d", s.Len())
	}
}

// TestStore_AssetIDs 测试标识列表的确定性排序
func TestStore_AssetIDs(t *testing.T) {
	s := New(0.01)
	for _, id := range []string{"c", "a", "b"} {
		s.Apply(bookEvent(id, nil, nil))
	}

	ids := s.AssetIDs()
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("AssetIDs 应按字典序排序: %v", ids)
	}
	if len(ids) != 3 {
		t.Fatalf("len(AssetIDs) = %d, want 3", len(ids))
	}
}

// TestStore_Snapshot 测试集合快照
func TestStore_Snapshot(t *testing.T) {
	s := New(0.01)
	s.Apply(&model.MarketEvent{
		Kind:        model.EventBook,
		AssetID:     "token-a",
		Market:      "cond-1",
		TimestampMs: 1740691280147,
		Asks:        []model.Level{{Price: 0.55, Size: 50}},
	})

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("len(snapshot) = %d, want 1", len(snap))
	}
	bs := snap["token-a"]
	if bs == nil {
		t.Fatal("快照缺少 token-a")
	}
	if bs.Market != "cond-1" || bs.TimestampMs != 1740691280147 {
		t.Errorf("快照元数据不正确: %+v", bs)
	}
	if len(bs.Asks) != 1 || bs.Asks[0].Price != 0.55 {
		t.Errorf("快照卖盘不正确: %+v", bs.Asks)
	}
}
