// Package polymarket 实现 Polymarket CLOB 订阅频道的消息解析。
// 帧可能是单个事件对象，也可能是事件对象数组（数组递归展开）。
// 未知 event_type 记录日志后丢弃，不影响同帧内的其他事件；
// 价格/数量字段非法时仅跳过该档位，事件内的其余档位照常应用。
package polymarket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"polymarket-arb-engine/internal/core/model"
	"polymarket-arb-engine/internal/util/fastparse"
)

// Parser 消息解析器
type Parser struct {
	// logger 日志记录器
	logger *zap.Logger
}

// NewParser 创建消息解析器
// 参数 logger: 日志记录器
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{
		logger: logger.Named("parser"),
	}
}

// Parse 解析一帧入站消息
// 返回帧内成功解析的归一化事件列表；整帧无法解码时返回错误。
func (p *Parser) Parse(data []byte) ([]*model.MarketEvent, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	// 数组帧递归展开；数组元素本身也可能是数组
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("解码事件数组失败: %w", err)
		}
		var events []*model.MarketEvent
		for _, item := range items {
			sub, err := p.Parse(item)
			if err != nil {
				// 单个元素解码失败不影响同帧内的其他事件
				p.logger.Warn("丢弃无法解码的数组元素", zap.Error(err))
				continue
			}
			events = append(events, sub...)
		}
		return events, nil
	}

	var raw wireEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解码事件对象失败: %w", err)
	}

	ev := p.convert(&raw, data)
	if ev == nil {
		return nil, nil
	}
	return []*model.MarketEvent{ev}, nil
}

// convert 将解码后的事件转换为归一化事件
// 返回 nil 表示该事件被丢弃（未知种类或缺少 asset_id）。
func (p *Parser) convert(raw *wireEvent, data []byte) *model.MarketEvent {
	if raw.AssetID == "" {
		p.logger.Debug("丢弃缺少 asset_id 的事件", zap.String("event_type", raw.EventType))
		return nil
	}

	ev := &model.MarketEvent{
		AssetID:     raw.AssetID,
		Market:      raw.Market,
		TimestampMs: fastparse.MustParseInt(raw.Timestamp),
		Hash:        raw.Hash,
	}

	switch model.EventKind(raw.EventType) {
	case model.EventBook:
		ev.Kind = model.EventBook
		// 行情频道使用 bids/asks，用户频道使用 buys/sells
		bids, asks := raw.Bids, raw.Asks
		if len(bids) == 0 && len(asks) == 0 {
			bids, asks = raw.Buys, raw.Sells
		}
		ev.Bids = p.parseLevels(raw.AssetID, bids)
		ev.Asks = p.parseLevels(raw.AssetID, asks)

	case model.EventPriceChange:
		ev.Kind = model.EventPriceChange
		for _, ch := range raw.Changes {
			side, ok := parseSide(ch.Side)
			if !ok {
				p.logger.Debug("跳过未知方向的档位变更",
					zap.String("asset_id", raw.AssetID), zap.String("side", ch.Side))
				continue
			}
			px, err := fastparse.ParseFloat(ch.Price)
			if err != nil {
				p.logger.Debug("跳过价格非法的档位变更",
					zap.String("asset_id", raw.AssetID), zap.String("price", ch.Price))
				continue
			}
			// size 允许为 0（表示移除档位），但必须是合法数字
			sz, err := fastparse.ParseFloat(ch.Size)
			if err != nil || sz < 0 {
				p.logger.Debug("跳过数量非法的档位变更",
					zap.String("asset_id", raw.AssetID), zap.String("size", ch.Size))
				continue
			}
			ev.Changes = append(ev.Changes, model.PriceChange{Price: px, Size: sz, Side: side})
		}

	case model.EventTickSizeChange:
		ev.Kind = model.EventTickSizeChange
		ev.OldTickSize = fastparse.MustParseFloat(raw.OldTickSize)
		ev.NewTickSize = fastparse.MustParseFloat(raw.NewTickSize)

	case model.EventLastTradePrice:
		ev.Kind = model.EventLastTradePrice
		px, err := fastparse.ParseFloat(raw.Price)
		if err != nil {
			p.logger.Debug("丢弃成交价非法的 last_trade_price 事件",
				zap.String("asset_id", raw.AssetID), zap.String("price", raw.Price))
			return nil
		}
		ev.Price = px

	case model.EventTrade:
		ev.Kind = model.EventTrade
		ev.Raw = append(json.RawMessage(nil), data...)

	case model.EventOrder:
		ev.Kind = model.EventOrder
		ev.Raw = append(json.RawMessage(nil), data...)

	default:
		p.logger.Debug("丢弃未知事件种类", zap.String("event_type", raw.EventType))
		return nil
	}

	return ev
}

// parseLevels 解析档位列表
// 价格或数量非法的档位逐个跳过，不影响其余档位。
func (p *Parser) parseLevels(assetID string, levels []wireLevel) []model.Level {
	out := make([]model.Level, 0, len(levels))
	for _, l := range levels {
		px, err := fastparse.ParseFloat(l.Price)
		if err != nil {
			p.logger.Debug("跳过价格非法的档位",
				zap.String("asset_id", assetID), zap.String("price", l.Price))
			continue
		}
		sz, err := fastparse.ParseFloat(l.Size)
		if err != nil || sz < 0 {
			p.logger.Debug("跳过数量非法的档位",
				zap.String("asset_id", assetID), zap.String("size", l.Size))
			continue
		}
		out = append(out, model.Level{Price: px, Size: sz})
	}
	return out
}

// parseSide 归一化方向字段（消息中为 BUY/SELL）
func parseSide(s string) (model.Side, bool) {
	switch strings.ToLower(s) {
	case "buy":
		return model.SideBuy, true
	case "sell":
		return model.SideSell, true
	default:
		return "", false
	}
}
