// Package main 是 Polymarket 结果集合套利引擎的入口点。
// 引擎订阅 CLOB 行情频道，增量重建每个 outcome token 的订单簿，
// 周期性扫描跨 token 的定价异常并记录模拟下单决策。
//
// 重要：下单为模拟确认，严禁真实下单。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/internal/core/dispatch"
	"polymarket-arb-engine/internal/core/scanner"
	"polymarket-arb-engine/internal/core/session"
	"polymarket-arb-engine/internal/core/store"
	"polymarket-arb-engine/internal/exchange/polymarket"
	"polymarket-arb-engine/internal/persist"
	"polymarket-arb-engine/internal/tokens"
	"polymarket-arb-engine/internal/util/backoff"
)

// metricsLogInterval 连接指标日志周期
const metricsLogInterval = 30 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	// 构建订阅集合：注册文件加载结果与直接配置的 asset ids 合并
	assetIDs := append([]string(nil), cfg.Subscription.AssetIDs...)
	if cfg.Subscription.TokensFile != "" {
		loaded, err := tokens.Load(cfg.Subscription.TokensFile, cfg.Subscription.TokenFilters)
		if err != nil {
			logger.Error("加载 token 注册文件失败", zap.Error(err))
			os.Exit(1)
		}
		assetIDs = append(assetIDs, loaded...)
	}
	if len(assetIDs) == 0 {
		logger.Error("订阅集合为空")
		os.Exit(1)
	}
	logger.Info("订阅集合已构建", zap.Int("tokens", len(assetIDs)))

	// 持久化写入器跨会话复用：决策/分析日志在重连后继续追加
	decisionLog, err := persist.NewAppender(filepath.Join(cfg.Output.Dir, cfg.Output.DecisionFile), cfg.Output.BufferSize)
	if err != nil {
		logger.Error("创建决策日志写入器失败", zap.Error(err))
		os.Exit(1)
	}
	analysisLog, err := persist.NewAppender(filepath.Join(cfg.Output.Dir, cfg.Output.AnalysisFile), cfg.Output.BufferSize)
	if err != nil {
		logger.Error("创建分析日志写入器失败", zap.Error(err))
		os.Exit(1)
	}
	snapshotter, err := persist.NewSnapshotter(filepath.Join(cfg.Output.Dir, cfg.Output.SnapshotFile), logger)
	if err != nil {
		logger.Error("创建快照写入器失败", zap.Error(err))
		os.Exit(1)
	}

	var userLog *persist.Appender
	if cfg.WS.UserEnabled {
		userLog, err = persist.NewAppender(filepath.Join(cfg.Output.Dir, cfg.Output.UserEventsFile), cfg.Output.BufferSize)
		if err != nil {
			logger.Error("创建用户事件日志写入器失败", zap.Error(err))
			os.Exit(1)
		}
	}

	sender := dispatch.New(logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := superviseMarket(ctx, logger, cfg, assetIDs, sender, decisionLog, analysisLog, snapshotter); err != nil {
			logger.Error("行情频道退出", zap.Error(err))
			cancel()
		}
	}()

	if cfg.WS.UserEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			superviseUser(ctx, logger, cfg, userLog)
		}()
	}

	wg.Wait()

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = decisionLog.Close()
		_ = analysisLog.Close()
		_ = snapshotter.Close()
		if userLog != nil {
			_ = userLog.Close()
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成")
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// superviseMarket 监督行情频道会话
// 会话核心不自动重连；连接断开后由这里决定以指数退避重建会话。
// 初次连接失败是硬错误（没有会话就无法取得任何进展）。
func superviseMarket(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	assetIDs []string,
	sender *dispatch.Sender,
	decisionLog *persist.Appender,
	analysisLog *persist.Appender,
	snapshotter *persist.Snapshotter,
) error {
	bo := backoff.NewDefault()
	first := true

	for {
		if ctx.Err() != nil {
			return nil
		}

		client := polymarket.NewMarketClient(cfg.WS.Market, assetIDs, logger)

		if err := client.Connect(ctx); err != nil {
			if first {
				return fmt.Errorf("初次连接行情频道失败: %w", err)
			}
			if !waitRetry(ctx, logger, bo) {
				return nil
			}
			continue
		}
		if err := client.Subscribe(); err != nil {
			logger.Warn("发送行情订阅帧失败", zap.Error(err))
			_ = client.Close()
			if first {
				return fmt.Errorf("初次订阅行情频道失败: %w", err)
			}
			if !waitRetry(ctx, logger, bo) {
				return nil
			}
			continue
		}
		first = false
		bo.Reset()

		sessCtx, sessCancel := context.WithCancel(ctx)
		go client.Run(sessCtx)
		go logClientMetrics(sessCtx, logger.Named("market"), client)

		// 状态集合的生命周期与会话绑定：重建会话时从空状态重新开始
		sess := session.New(logger, session.Options{
			Store:            store.New(cfg.Strategy.DefaultTickSize),
			Scanner:          scanner.New(cfg.Strategy),
			Sender:           sender,
			DecisionLog:      decisionLog,
			AnalysisLog:      analysisLog,
			Snapshotter:      snapshotter,
			ScanInterval:     time.Duration(cfg.Strategy.ScanIntervalMs) * time.Millisecond,
			SnapshotInterval: time.Duration(cfg.Output.SnapshotIntervalMs) * time.Millisecond,
		})

		err := sess.Run(sessCtx, client.EventCh())
		sessCancel()
		_ = client.Close()

		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, session.ErrStreamClosed) {
			logger.Warn("行情会话结束，准备重建")
		} else if err != nil {
			logger.Error("行情会话异常退出", zap.Error(err))
		}
		if !waitRetry(ctx, logger, bo) {
			return nil
		}
	}
}

// superviseUser 监督用户频道会话
// 用户频道仅维护自身订单簿状态并记录 trade/order 事件，不参与扫描。
func superviseUser(ctx context.Context, logger *zap.Logger, cfg *config.Config, userLog *persist.Appender) {
	bo := backoff.NewDefault()
	auth := polymarket.AuthPayload{
		APIKey:     cfg.Auth.APIKey,
		Secret:     cfg.Auth.Secret,
		Passphrase: cfg.Auth.Passphrase,
	}

	for {
		if ctx.Err() != nil {
			return
		}

		client := polymarket.NewUserClient(cfg.WS.User, cfg.Subscription.Markets, auth, logger)

		if err := client.Connect(ctx); err != nil {
			logger.Warn("连接用户频道失败", zap.Error(err))
			if !waitRetry(ctx, logger, bo) {
				return
			}
			continue
		}
		if err := client.Subscribe(); err != nil {
			logger.Warn("发送用户订阅帧失败", zap.Error(err))
			_ = client.Close()
			if !waitRetry(ctx, logger, bo) {
				return
			}
			continue
		}
		bo.Reset()

		sessCtx, sessCancel := context.WithCancel(ctx)
		go client.Run(sessCtx)
		go logClientMetrics(sessCtx, logger.Named("user"), client)

		sess := session.New(logger, session.Options{
			Store:   store.New(cfg.Strategy.DefaultTickSize),
			UserLog: userLog,
		})

		err := sess.Run(sessCtx, client.EventCh())
		sessCancel()
		_ = client.Close()

		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, session.ErrStreamClosed) {
			logger.Warn("用户会话结束，准备重建")
		}
		if !waitRetry(ctx, logger, bo) {
			return
		}
	}
}

// waitRetry 等待退避时间
// 返回 false 表示上下文已取消，调用方应退出
func waitRetry(ctx context.Context, logger *zap.Logger, bo *backoff.Backoff) bool {
	delay := bo.Next()
	logger.Info("等待重建会话", zap.Duration("delay", delay), zap.Int("attempt", bo.Attempt()))
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// logClientMetrics 周期性输出连接指标
func logClientMetrics(ctx context.Context, logger *zap.Logger, client *polymarket.Client) {
	ticker := time.NewTicker(metricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := client.Metrics()
			logger.Info("连接指标",
				zap.Float64("updates_per_sec", m.UpdatesPerSec),
				zap.Int64("last_message_age_ms", m.LastMessageAgeMs),
				zap.Int64("parse_errors", m.ParseErrorCount),
				zap.Int64("dropped_events", m.DroppedEventCount))
		}
	}
}
