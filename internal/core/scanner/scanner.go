// Package scanner 实现跨 token 的定价异常检测。
// 每个扫描周期读取订单簿状态集合，对全部入选 token 的最优卖价求和，
// 低于阈值时产生一条决策记录。
package scanner

import (
	"time"

	"github.com/google/uuid"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/internal/core/model"
	"polymarket-arb-engine/internal/core/store"
)

// Result 单个扫描周期的产出
type Result struct {
	// Decision 触发的决策记录；未触发时为 nil
	Decision *model.Decision
	// Analysis 分析日志条目；未到节流周期时为 nil
	Analysis *model.AnalysisEntry
	// TotalPrice 入选 token 最优卖价合计 S
	TotalPrice float64
	// OptimalSize 入选 token 最小 best-ask 数量 U
	OptimalSize float64
	// Included 入选 token 数量
	Included int
}

// Scanner 套利扫描器
// 假设整个订阅集合构成一个互斥且穷尽的结果组（定价应合计为阈值 T）；
// 扫描器不验证该分组关系，这是一个已知的正确性缺口，由配置方保证。
type Scanner struct {
	// cfg 策略配置
	cfg config.StrategyConfig
	// cycle 已执行的扫描周期数（用于分析日志节流）
	cycle int64
}

// New 创建套利扫描器
// 参数 cfg: 策略配置
func New(cfg config.StrategyConfig) *Scanner {
	return &Scanner{cfg: cfg}
}

// Cycle 返回已执行的扫描周期数
func (s *Scanner) Cycle() int64 {
	return s.cycle
}

// Scan 执行一个扫描周期
// 入选条件：token 有卖盘档位且最优卖价严格大于其 tick size。
// 决策条件：S 严格小于阈值 T 且至少有一个入选 token。
// 参数 now: 本周期时间
// 参数 st: 订单簿状态集合（只读访问）
func (s *Scanner) Scan(now time.Time, st *store.Store) *Result {
	res := &Result{}

	var intents []model.OrderIntent
	var logOrders []model.AnalysisOrder
	var minSize float64
	var haveSize bool

	for _, assetID := range st.AssetIDs() {
		book := st.Get(assetID)
		if book == nil {
			continue
		}

		askPx, askSz, ok := book.BestAsk()
		if !ok {
			continue
		}
		// 防御退化/交叉状态：最优卖价必须严格大于 tick size
		if askPx <= book.TickSize {
			continue
		}

		intents = append(intents, model.OrderIntent{
			TokenID: assetID,
			Price:   askPx,
			Size:    askSz,
		})
		logOrders = append(logOrders, model.AnalysisOrder{
			TokenID:       assetID,
			BestSellPrice: askPx,
			BestSellSize:  askSz,
		})
		res.TotalPrice += askPx
		if !haveSize || askSz < minSize {
			minSize = askSz
			haveSize = true
		}
	}

	res.Included = len(intents)
	if haveSize {
		res.OptimalSize = minSize
	}

	// 分析日志节流：每 K 个周期至多记录一条，与是否触发决策无关
	s.cycle++
	if s.cycle%int64(s.cfg.AnalysisEveryCycles) == 0 {
		res.Analysis = &model.AnalysisEntry{
			Timestamp:   now.UTC(),
			LogOrders:   logOrders,
			TotalPrice:  res.TotalPrice,
			OptimalSize: res.OptimalSize,
		}
	}

	// 决策规则：S < T 表示完整结果集合被低估
	if res.Included > 0 && res.TotalPrice < s.cfg.ThresholdPrice {
		for i := range intents {
			intents[i].OptimalSize = res.OptimalSize
			intents[i].Weighted = intents[i].Size != res.OptimalSize
		}
		res.Decision = &model.Decision{
			OrderID:    uuid.NewString(),
			Timestamp:  now.UTC(),
			TotalPrice: res.TotalPrice,
			Orders:     intents,
		}
	}

	return res
}
