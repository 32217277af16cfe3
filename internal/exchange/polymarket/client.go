// Package polymarket 实现 Polymarket CLOB 订阅频道的 WebSocket 客户端。
// 每个频道种类一个长连接；连接断开后客户端不自行重连，
// 事件通道关闭即表示会话结束，是否重建会话由上层监督逻辑决定。
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/internal/core/model"
	"polymarket-arb-engine/internal/util/timeutil"
)

// Client 单个频道的 WebSocket 客户端
type Client struct {
	// cfg 频道连接配置
	cfg config.EndpointConfig
	// channel 频道种类
	channel Channel
	// assetIDs 行情频道订阅的 token 标识列表
	assetIDs []string
	// markets 用户频道订阅的市场列表
	markets []string
	// auth 用户频道认证材料
	auth *AuthPayload
	// logger 日志记录器
	logger *zap.Logger
	// parser 消息解析器
	parser *Parser
	// conn WebSocket 连接
	conn *websocket.Conn
	// connMu 连接锁
	connMu sync.Mutex
	// eventCh 归一化事件输出通道；会话结束时关闭
	eventCh chan *model.MarketEvent
	// closeEventOnce 保证事件通道只关闭一次
	closeEventOnce sync.Once
	// closed 是否已关闭
	closed int32

	// metrics 连接指标
	metrics ConnectionMetrics
	// metricsMu 指标锁
	metricsMu sync.RWMutex
	// lastMsgNs 最后消息时间（纳秒）
	lastMsgNs int64
	// eventCount 事件计数（用于计算每秒事件数）
	eventCount int64
}

// NewMarketClient 创建行情频道客户端
// 参数 cfg: 频道连接配置
// 参数 assetIDs: 订阅的 token 标识列表
// 参数 logger: 日志记录器
func NewMarketClient(cfg config.EndpointConfig, assetIDs []string, logger *zap.Logger) *Client {
	return &Client{
		cfg:      cfg,
		channel:  ChannelMarket,
		assetIDs: assetIDs,
		logger:   logger.Named("ws-market"),
		parser:   NewParser(logger.Named("ws-market")),
		eventCh:  make(chan *model.MarketEvent, cfg.EventBuffer),
	}
}

// NewUserClient 创建用户频道客户端
// 参数 cfg: 频道连接配置
// 参数 markets: 订阅的市场列表
// 参数 auth: 认证材料
// 参数 logger: 日志记录器
func NewUserClient(cfg config.EndpointConfig, markets []string, auth AuthPayload, logger *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		channel: ChannelUser,
		markets: markets,
		auth:    &auth,
		logger:  logger.Named("ws-user"),
		parser:  NewParser(logger.Named("ws-user")),
		eventCh: make(chan *model.MarketEvent, cfg.EventBuffer),
	}
}

// Connect 建立 WebSocket 连接
// 握手未完成视为连接失败；这是唯一向调用方上抛的硬错误。
// 参数 ctx: 上下文，用于取消连接
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(c.cfg.HandshakeTimeoutMs) * time.Millisecond,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("连接 %s 频道失败: %w", c.channel, err)
	}

	c.conn = conn
	c.logger.Info("频道连接成功", zap.String("url", c.cfg.URL))
	return nil
}

// Subscribe 发送订阅帧
// 行情频道携带 token 标识列表，用户频道携带认证材料与市场列表。
func (c *Client) Subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("WebSocket 未连接")
	}

	var frame any
	switch c.channel {
	case ChannelMarket:
		frame = MarketSubscription{AssetsIDs: c.assetIDs, Type: string(ChannelMarket)}
	case ChannelUser:
		frame = UserSubscription{Auth: *c.auth, Markets: c.markets, Type: string(ChannelUser)}
	default:
		return fmt.Errorf("未知频道种类: %s", c.channel)
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("序列化订阅帧失败: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("发送订阅帧失败: %w", err)
	}

	c.logger.Info("订阅帧已发送",
		zap.Int("assets", len(c.assetIDs)), zap.Int("markets", len(c.markets)))
	return nil
}

// Run 启动客户端主循环
// 读取循环退出（错误或连接关闭）后关闭事件通道；不自动重连。
func (c *Client) Run(ctx context.Context) {
	go c.metricsLoop(ctx)
	c.readLoop(ctx)
	c.closeEventCh()
}

// readLoop 读取循环
// 不设置读超时：空闲连接会无限阻塞在读取上，直到连接关闭。
func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if atomic.LoadInt32(&c.closed) == 1 {
			return
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}
			c.logger.Warn("读取消息失败，会话结束", zap.Error(err))
			return
		}

		atomic.StoreInt64(&c.lastMsgNs, timeutil.NowNano())

		events, err := c.parser.Parse(data)
		if err != nil {
			// 整帧解码失败：丢弃该帧，继续处理后续帧
			c.incrementParseErrorCount()
			c.logger.Warn("丢弃无法解码的帧", zap.Error(err))
			continue
		}

		for _, event := range events {
			atomic.AddInt64(&c.eventCount, 1)
			select {
			case c.eventCh <- event:
			default:
				c.incrementDroppedCount()
				c.logger.Warn("事件通道已满，丢弃事件",
					zap.String("asset_id", event.AssetID), zap.String("kind", string(event.Kind)))
			}
		}
	}
}

// metricsLoop 指标统计循环
// 每秒更新事件速率与最后消息距今时间
func (c *Client) metricsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastCount int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}

			count := atomic.LoadInt64(&c.eventCount)
			qps := float64(count - lastCount)
			lastCount = count

			lastMsg := atomic.LoadInt64(&c.lastMsgNs)
			var ageMs int64
			if lastMsg > 0 {
				ageMs = timeutil.NanoToMs(timeutil.NowNano() - lastMsg)
			}

			c.metricsMu.Lock()
			c.metrics.UpdatesPerSec = qps
			c.metrics.LastMessageAgeMs = ageMs
			c.metricsMu.Unlock()
		}
	}
}

// closeEventCh 关闭事件通道（仅由 Run 退出路径调用，保证不与发送并发）
func (c *Client) closeEventCh() {
	c.closeEventOnce.Do(func() {
		close(c.eventCh)
	})
}

// Close 关闭客户端
// 仅关闭底层连接；事件通道由读取循环在退出时关闭，
// 避免与事件投递并发导致 send on closed channel。
func (c *Client) Close() error {
	atomic.StoreInt32(&c.closed, 1)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.logger.Info("客户端已关闭")
	return nil
}

// EventCh 获取归一化事件通道
// 通道关闭表示会话结束
func (c *Client) EventCh() <-chan *model.MarketEvent {
	return c.eventCh
}

// Metrics 获取连接指标
func (c *Client) Metrics() ConnectionMetrics {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	return c.metrics
}

func (c *Client) incrementParseErrorCount() {
	c.metricsMu.Lock()
	c.metrics.ParseErrorCount++
	c.metricsMu.Unlock()
}

func (c *Client) incrementDroppedCount() {
	c.metricsMu.Lock()
	c.metrics.DroppedEventCount++
	c.metricsMu.Unlock()
}
