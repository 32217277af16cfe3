// Package persist 实现快照与日志文件的异步写入。
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Snapshotter 订单簿快照写入器
// 每次写入整体覆盖上一份快照（非追加）；写入在后台 goroutine 完成，
// 投递时若上一份快照尚未落盘则丢弃本次投递，由下个周期补上。
type Snapshotter struct {
	// path 快照文件路径
	path string
	// logger 日志记录器
	logger *zap.Logger
	// ch 快照投递通道（容量 1）
	ch chan any

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSnapshotter 创建快照写入器
// 参数 path: 快照文件路径
// 参数 logger: 日志记录器
func NewSnapshotter(path string, logger *zap.Logger) (*Snapshotter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	s := &Snapshotter{
		path:   path,
		logger: logger.Named("snapshot"),
		ch:     make(chan any, 1),
	}

	s.wg.Add(1)
	go s.loop()

	return s, nil
}

// Write 投递一份快照
// 非阻塞；若后台仍在写上一份快照则丢弃本次投递并记录日志。
func (s *Snapshotter) Write(snapshot any) {
	if s == nil {
		return
	}
	select {
	case s.ch <- snapshot:
	default:
		s.logger.Warn("上一份快照尚未落盘，跳过本周期")
	}
}

// Close 关闭快照写入器，等待队列中的快照落盘
func (s *Snapshotter) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		close(s.ch)
	})
	s.wg.Wait()
	return nil
}

func (s *Snapshotter) loop() {
	defer s.wg.Done()

	for snapshot := range s.ch {
		if err := s.writeOne(snapshot); err != nil {
			// 快照写失败不致命，下个周期自然重试
			s.logger.Warn("写入快照失败", zap.Error(err))
		}
	}
}

// writeOne 将快照写入临时文件后原子替换，避免读到半份快照
func (s *Snapshotter) writeOne(snapshot any) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化快照失败: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入临时快照失败: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("替换快照文件失败: %w", err)
	}
	return nil
}
