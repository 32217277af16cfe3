// Package dispatch 实现模拟下单提交。
// 重要：仅为 fire-and-forget 的模拟确认，严禁真实下单；
// 宿主应用应以真实下单协作方替换 SubmitFunc。
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"polymarket-arb-engine/internal/core/model"
)

// 模拟网络往返延迟
const simulatedLatency = 100 * time.Millisecond

// Response 单个下单意图的提交结果
type Response struct {
	// Status 提交状态: success 或 error
	Status string `json:"status"`
	// TokenID token 标识
	TokenID string `json:"token_id"`
	// OrderPrice 下单价格
	OrderPrice float64 `json:"order_price"`
	// OrderSize 下单数量（统一分配数量）
	OrderSize float64 `json:"order_size"`
	// Weighted 是否为加权意图
	Weighted bool `json:"weighted"`
	// Error 失败原因（成功时为空）
	Error string `json:"error,omitempty"`
}

// SubmitFunc 单个下单意图的提交函数
// 默认实现为模拟提交；测试与宿主应用可注入替代实现。
type SubmitFunc func(ctx context.Context, intent model.OrderIntent) error

// Sender 模拟下单发送器
// 对决策中的每个意图并发提交；单个意图失败不取消也不回滚其余意图。
type Sender struct {
	// logger 日志记录器
	logger *zap.Logger
	// submit 提交函数
	submit SubmitFunc
}

// New 创建模拟下单发送器
// 参数 logger: 日志记录器
func New(logger *zap.Logger) *Sender {
	s := &Sender{
		logger: logger.Named("dispatch"),
	}
	s.submit = s.simulate
	return s
}

// WithSubmitFunc 替换提交函数（用于测试或接入真实下单协作方）
func (s *Sender) WithSubmitFunc(fn SubmitFunc) *Sender {
	if fn != nil {
		s.submit = fn
	}
	return s
}

// SendAll 并发提交决策中的全部下单意图
// 每个意图独立报告成功或失败；返回结果与意图顺序一致。
func (s *Sender) SendAll(ctx context.Context, decision *model.Decision) []Response {
	if decision == nil || len(decision.Orders) == 0 {
		return nil
	}

	responses := make([]Response, len(decision.Orders))
	done := make(chan int, len(decision.Orders))

	for i, intent := range decision.Orders {
		go func(i int, intent model.OrderIntent) {
			resp := Response{
				Status:     "success",
				TokenID:    intent.TokenID,
				OrderPrice: intent.Price,
				OrderSize:  intent.OptimalSize,
				Weighted:   intent.Weighted,
			}
			if err := s.submit(ctx, intent); err != nil {
				resp.Status = "error"
				resp.Error = err.Error()
			}
			responses[i] = resp
			done <- i
		}(i, intent)
	}

	for range decision.Orders {
		<-done
	}

	for _, resp := range responses {
		if resp.Status == "success" {
			s.logger.Info("模拟下单已提交",
				zap.String("order_id", decision.OrderID),
				zap.String("token_id", resp.TokenID),
				zap.Float64("price", resp.OrderPrice),
				zap.Float64("size", resp.OrderSize),
				zap.Bool("weighted", resp.Weighted))
		} else {
			s.logger.Warn("模拟下单失败",
				zap.String("order_id", decision.OrderID),
				zap.String("token_id", resp.TokenID),
				zap.String("error", resp.Error))
		}
	}

	return responses
}

// simulate 默认的模拟提交实现
// 等待模拟延迟后返回成功；上下文取消时报告失败。
func (s *Sender) simulate(ctx context.Context, intent model.OrderIntent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(simulatedLatency):
		return nil
	}
}
