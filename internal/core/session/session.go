// Package session 实现拥有订单簿状态的会话循环。
// 三个独立节奏的任务——事件流处理、套利扫描、快照写入——
// 在单个 select 循环内复用，循环 goroutine 是状态集合的唯一写者，
// 挂起点之间的内存修改天然原子，无需加锁。
// 代价是长扫描周期会推迟事件处理（反之亦然）。
package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"polymarket-arb-engine/internal/core/dispatch"
	"polymarket-arb-engine/internal/core/model"
	"polymarket-arb-engine/internal/core/scanner"
	"polymarket-arb-engine/internal/core/store"
	"polymarket-arb-engine/internal/exchange/polymarket"
	"polymarket-arb-engine/internal/persist"
)

// ErrStreamClosed 事件流已结束（连接断开或关闭）
// 会话不自行重建连接；是否重启会话由上层监督逻辑决定。
var ErrStreamClosed = errors.New("事件流已结束")

// Session 单频道会话
// 持有订单簿状态集合；事件按到达顺序严格应用，不做重排或缺口补偿。
type Session struct {
	// logger 日志记录器
	logger *zap.Logger
	// store 订单簿状态集合（本会话独占）
	store *store.Store
	// scanner 套利扫描器；为 nil 时不扫描（用户频道会话）
	scanner *scanner.Scanner
	// sender 模拟下单发送器
	sender *dispatch.Sender
	// decisionLog 决策日志写入器
	decisionLog *persist.Appender
	// analysisLog 分析日志写入器
	analysisLog *persist.Appender
	// userLog 用户频道事件日志写入器
	userLog *persist.Appender
	// snapshotter 快照写入器；为 nil 时不写快照
	snapshotter *persist.Snapshotter
	// scanInterval 扫描周期
	scanInterval time.Duration
	// snapshotInterval 快照周期
	snapshotInterval time.Duration
}

// Options 会话组件配置
// Scanner/Snapshotter 等组件为可选项；未配置的任务不参与循环。
type Options struct {
	// Store 订单簿状态集合（必填）
	Store *store.Store
	// Scanner 套利扫描器
	Scanner *scanner.Scanner
	// Sender 模拟下单发送器
	Sender *dispatch.Sender
	// DecisionLog 决策日志写入器
	DecisionLog *persist.Appender
	// AnalysisLog 分析日志写入器
	AnalysisLog *persist.Appender
	// UserLog 用户频道事件日志写入器
	UserLog *persist.Appender
	// Snapshotter 快照写入器
	Snapshotter *persist.Snapshotter
	// ScanInterval 扫描周期
	ScanInterval time.Duration
	// SnapshotInterval 快照周期
	SnapshotInterval time.Duration
}

// New 创建会话
// 参数 logger: 日志记录器
// 参数 opts: 会话组件配置
func New(logger *zap.Logger, opts Options) *Session {
	return &Session{
		logger:           logger.Named("session"),
		store:            opts.Store,
		scanner:          opts.Scanner,
		sender:           opts.Sender,
		decisionLog:      opts.DecisionLog,
		analysisLog:      opts.AnalysisLog,
		userLog:          opts.UserLog,
		snapshotter:      opts.Snapshotter,
		scanInterval:     opts.ScanInterval,
		snapshotInterval: opts.SnapshotInterval,
	}
}

// Run 运行会话循环直到事件流结束或上下文取消
// 事件流结束返回 ErrStreamClosed；上下文取消返回 nil。
func (s *Session) Run(ctx context.Context, events <-chan *model.MarketEvent) error {
	var scanC, snapC <-chan time.Time

	if s.scanner != nil && s.scanInterval > 0 {
		scanTicker := time.NewTicker(s.scanInterval)
		defer scanTicker.Stop()
		scanC = scanTicker.C
	}
	if s.snapshotter != nil && s.snapshotInterval > 0 {
		snapTicker := time.NewTicker(s.snapshotInterval)
		defer snapTicker.Stop()
		snapC = snapTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return ErrStreamClosed
			}
			s.handleEvent(ev)

		case <-scanC:
			s.runScanCycle(ctx)

		case <-snapC:
			s.snapshotter.Write(s.store.Snapshot())
		}
	}
}

// handleEvent 将单个归一化事件路由到对应处理
// 订单簿事件应用到状态集合；trade/order 事件记入用户事件日志。
func (s *Session) handleEvent(ev *model.MarketEvent) {
	if ev == nil {
		return
	}

	switch ev.Kind {
	case model.EventTrade, model.EventOrder:
		s.logger.Info("收到用户频道事件",
			zap.String("kind", string(ev.Kind)), zap.String("asset_id", ev.AssetID))
		if s.userLog != nil {
			record := polymarket.UserEventRecord{
				Timestamp: ev.TimestampMs,
				EventType: string(ev.Kind),
				AssetID:   ev.AssetID,
				Message:   ev.Raw,
			}
			if err := s.userLog.Append(record); err != nil {
				s.logger.Warn("写入用户事件日志失败", zap.Error(err))
			}
		}

	default:
		s.store.Apply(ev)
	}
}

// runScanCycle 执行一个扫描周期并处理其产出
// 决策经消息传递交给发送器在独立 goroutine 中并发提交，
// 不阻塞会话循环。
func (s *Session) runScanCycle(ctx context.Context) {
	res := s.scanner.Scan(time.Now(), s.store)

	s.logger.Debug("扫描周期完成",
		zap.Float64("total_price", res.TotalPrice),
		zap.Float64("optimal_size", res.OptimalSize),
		zap.Int("included", res.Included))

	if res.Analysis != nil && s.analysisLog != nil {
		if err := s.analysisLog.Append(res.Analysis); err != nil {
			s.logger.Warn("写入分析日志失败", zap.Error(err))
		}
	}

	if res.Decision == nil {
		return
	}

	s.logger.Info("触发套利决策",
		zap.String("order_id", res.Decision.OrderID),
		zap.Float64("total_price", res.Decision.TotalPrice),
		zap.Int("orders", len(res.Decision.Orders)))

	if s.decisionLog != nil {
		if err := s.decisionLog.Append(res.Decision); err != nil {
			s.logger.Warn("写入决策日志失败", zap.Error(err))
		}
	}

	if s.sender != nil {
		decision := res.Decision
		go s.sender.SendAll(ctx, decision)
	}
}

// Store 返回会话持有的状态集合（测试用）
func (s *Session) Store() *store.Store {
	return s.store
}
