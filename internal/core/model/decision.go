// Package model 定义套利引擎中使用的核心数据结构。
package model

import (
	"time"
)

// OrderIntent 决策中单个 token 的下单意图
type OrderIntent struct {
	// TokenID token 标识
	TokenID string `json:"token_id"`
	// Price 下单价格（触发时的最优卖价）
	Price float64 `json:"price"`
	// Size 触发时的最优卖价原始数量
	Size float64 `json:"size"`
	// OptimalSize 统一分配数量（所有入选 token 的最小 best-ask 数量）
	OptimalSize float64 `json:"optimal_size"`
	// Weighted 原始数量与统一分配数量不同时为 true
	Weighted bool `json:"weighted"`
}

// Decision 套利决策记录
// 一次触发的扫描周期产生恰好一条记录；创建后不可变，追加到决策日志。
type Decision struct {
	// OrderID 决策唯一标识（uuid）
	OrderID string `json:"order_id"`
	// Timestamp 决策时间（UTC）
	Timestamp time.Time `json:"timestamp"`
	// TotalPrice 入选 token 最优卖价合计
	TotalPrice float64 `json:"total_price"`
	// Orders 按 token 的下单意图列表
	Orders []OrderIntent `json:"orders"`
}

// AnalysisOrder 分析日志中单个 token 的快照
type AnalysisOrder struct {
	// TokenID token 标识
	TokenID string `json:"token_id"`
	// BestSellPrice 最优卖价
	BestSellPrice float64 `json:"best_sell_price"`
	// BestSellSize 最优卖价数量
	BestSellSize float64 `json:"best_sell_size"`
}

// AnalysisEntry 分析日志条目
// 无论是否触发决策，每 K 个扫描周期记录一条。
type AnalysisEntry struct {
	// Timestamp 记录时间（UTC）
	Timestamp time.Time `json:"timestamp"`
	// LogOrders 入选 token 的快照列表
	LogOrders []AnalysisOrder `json:"log_orders"`
	// TotalPrice 最优卖价合计
	TotalPrice float64 `json:"total_price"`
	// OptimalSize 最小 best-ask 数量
	OptimalSize float64 `json:"optimal_size"`
}
