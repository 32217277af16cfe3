// Package scanner 套利扫描器测试
package scanner

import (
	"testing"
	"time"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/internal/core/model"
	"polymarket-arb-engine/internal/core/store"
)

func testStrategyConfig() config.StrategyConfig {
	return config.StrategyConfig{
		ThresholdPrice:      1.0,
		ScanIntervalMs:      2000,
		AnalysisEveryCycles: 5,
		DefaultTickSize:     0.01,
	}
}

func applyAsk(t *testing.T, st *store.Store, assetID string, price, size float64) {
	t.Helper()
	if !st.Apply(&model.MarketEvent{
		Kind:    model.EventBook,
		AssetID: assetID,
		Asks:    []model.Level{{Price: price, Size: size}},
	}) {
		t.Fatalf("应用 %s 的卖盘失败", assetID)
	}
}

// TestScanner_TriggerDecision 测试低估定价触发决策
// 两个 token 最优卖价 0.40 + 0.55 = 0.95 < 1.0，应产生一条决策；
// 统一分配数量为两者中较小的 50。
func TestScanner_TriggerDecision(t *testing.T) {
	st := store.New(0.01)
	applyAsk(t, st, "token-a", 0.40, 100)
	applyAsk(t, st, "token-b", 0.55, 50)

	s := New(testStrategyConfig())
	res := s.Scan(time.Now(), st)

	if res.Decision == nil {
		t.Fatal("S=0.95 < T=1.0 应触发决策")
	}
	d := res.Decision

	if d.OrderID == "" {
		t.Error("决策应携带唯一标识")
	}
	if diff := d.TotalPrice - 0.95; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalPrice = %f, want 0.95", d.TotalPrice)
	}
	if len(d.Orders) != 2 {
		t.Fatalf("len(Orders) = %d, want 2", len(d.Orders))
	}

	// 遍历按字典序：token-a 在前
	a, b := d.Orders[0], d.Orders[1]
	if a.TokenID != "token-a" || b.TokenID != "token-b" {
		t.Fatalf("意图顺序不正确: %s, %s", a.TokenID, b.TokenID)
	}
	if a.OptimalSize != 50 || b.OptimalSize != 50 {
		t.Errorf("统一分配数量应为 50: %f, %f", a.OptimalSize, b.OptimalSize)
	}
	// token-a 原始数量 100 != 50，是加权意图；token-b 恰好等于 50，不是
	if !a.Weighted {
		t.Error("token-a 原始数量与统一数量不同，应标记加权")
	}
	if b.Weighted {
		t.Error("token-b 原始数量等于统一数量，不应标记加权")
	}
}

// TestScanner_NoDecisionAboveThreshold 测试定价不低估时不触发决策
func TestScanner_NoDecisionAboveThreshold(t *testing.T) {
	st := store.New(0.01)
	applyAsk(t, st, "token-a", 0.60, 100)
	applyAsk(t, st, "token-b", 0.55, 50)

	s := New(testStrategyConfig())
	res := s.Scan(time.Now(), st)

	if res.Decision != nil {
		t.Fatal("S=1.15 >= T=1.0 不应触发决策")
	}
	if diff := res.TotalPrice - 1.15; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalPrice = %f, want 1.15", res.TotalPrice)
	}
	if res.Included != 2 {
		t.Errorf("Included = %d, want 2", res.Included)
	}
}

// TestScanner_EqualThresholdNoDecision 测试 S == T 的边界
func TestScanner_EqualThresholdNoDecision(t *testing.T) {
	st := store.New(0.01)
	applyAsk(t, st, "token-a", 0.25, 10)
	applyAsk(t, st, "token-b", 0.75, 10)

	s := New(testStrategyConfig())
	res := s.Scan(time.Now(), st)

	if res.Decision != nil {
		t.Fatal("S == T 不应触发决策（严格小于）")
	}
}

// TestScanner_TickSizeExclusion 测试退化盘口的排除
// 最优卖价 <= tick size 的 token 不参与合计。
func TestScanner_TickSizeExclusion(t *testing.T) {
	st := store.New(0.01)
	applyAsk(t, st, "token-a", 0.01, 100) // 等于 tick size，排除
	applyAsk(t, st, "token-b", 0.30, 50)

	s := New(testStrategyConfig())
	res := s.Scan(time.Now(), st)

	if res.Included != 1 {
		t.Fatalf("Included = %d, want 1（退化 token 应排除）", res.Included)
	}
	if diff := res.TotalPrice - 0.30; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalPrice = %f, want 0.30", res.TotalPrice)
	}
	// 仅剩一个 token 且 0.30 < 1.0，仍会触发决策
	if res.Decision == nil {
		t.Fatal("入选 token 合计低于阈值应触发决策")
	}
	if len(res.Decision.Orders) != 1 || res.Decision.Orders[0].TokenID != "token-b" {
		t.Errorf("决策应只含 token-b: %+v", res.Decision.Orders)
	}
}

// TestScanner_EmptyStoreNoDecision 测试空集合不触发决策
// 没有入选 token 时合计为 0 < T，但不应触发决策。
func TestScanner_EmptyStoreNoDecision(t *testing.T) {
	st := store.New(0.01)
	s := New(testStrategyConfig())

	res := s.Scan(time.Now(), st)
	if res.Decision != nil {
		t.Fatal("空集合不应触发决策")
	}
	if res.Included != 0 || res.TotalPrice != 0 {
		t.Errorf("空集合的产出不正确: %+v", res)
	}
}

// TestScanner_NoAskExcluded 测试无卖盘 token 的排除
func TestScanner_NoAskExcluded(t *testing.T) {
	st := store.New(0.01)
	// token-a 只有买盘
	st.Apply(&model.MarketEvent{
		Kind:    model.EventBook,
		AssetID: "token-a",
		Bids:    []model.Level{{Price: 0.40, Size: 10}},
	})
	applyAsk(t, st, "token-b", 0.30, 50)

	s := New(testStrategyConfig())
	res := s.Scan(time.Now(), st)

	if res.Included != 1 {
		t.Fatalf("Included = %d, want 1（无卖盘 token 应排除）", res.Included)
	}
}

// TestScanner_AnalysisThrottle 测试分析日志节流
// 每 K=5 个扫描周期恰好产出一条分析日志，与是否触发决策无关。
func TestScanner_AnalysisThrottle(t *testing.T) {
	st := store.New(0.01)
	applyAsk(t, st, "token-a", 0.60, 100)
	applyAsk(t, st, "token-b", 0.55, 50)

	s := New(testStrategyConfig())
	now := time.Now()

	var analysisCount int
	for i := 1; i <= 10; i++ {
		res := s.Scan(now, st)
		if res.Analysis != nil {
			analysisCount++
			if i%5 != 0 {
				t.Errorf("第 %d 个周期不应产出分析日志", i)
			}
			if len(res.Analysis.LogOrders) != 2 {
				t.Errorf("分析日志应含全部入选 token: %d", len(res.Analysis.LogOrders))
			}
			if diff := res.Analysis.TotalPrice - 1.15; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("分析日志 TotalPrice = %f, want 1.15", res.Analysis.TotalPrice)
			}
		}
	}

	if analysisCount != 2 {
		t.Fatalf("10 个周期应产出 2 条分析日志, got %d", analysisCount)
	}
}

// TestScanner_DistinctOrderIDs 测试连续决策的标识唯一性
func TestScanner_DistinctOrderIDs(t *testing.T) {
	st := store.New(0.01)
	applyAsk(t, st, "token-a", 0.40, 100)

	s := New(testStrategyConfig())
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		res := s.Scan(time.Now(), st)
		if res.Decision == nil {
			t.Fatal("低估定价应每个周期都触发决策")
		}
		if seen[res.Decision.OrderID] {
			t.Fatalf("决策标识重复: %s", res.Decision.OrderID)
		}
		seen[res.Decision.OrderID] = true
	}
}

// TestScanner_DecisionTimestampUTC 测试决策时间为 UTC
func TestScanner_DecisionTimestampUTC(t *testing.T) {
	st := store.New(0.01)
	applyAsk(t, st, "token-a", 0.40, 100)

	s := New(testStrategyConfig())
	res := s.Scan(time.Now(), st)
	if res.Decision == nil {
		t.Fatal("应触发决策")
	}
	if res.Decision.Timestamp.Location() != time.UTC {
		t.Errorf("决策时间应为 UTC: %v", res.Decision.Timestamp.Location())
	}
}
