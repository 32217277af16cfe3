// Package persist 实现快照与日志文件的异步写入。
// 热路径只负责投递，实际 JSON 编码与文件 I/O 在后台 goroutine 完成。
// 追加日志采用读-改-写语义：读出现有数组、追加一条、整体写回；
// 该写法跨进程崩溃不具原子性，写失败在下个周期自然重试。
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

type opType int

const (
	opAppend opType = iota
	opFlush
	opClose
)

type op struct {
	typ  opType
	val  any
	done chan error
}

// Appender 异步 JSON 数组追加写入器
// 日志文件为一个 JSON 数组，已有条目永不改写或删除。
type Appender struct {
	// path 日志文件路径
	path string
	// ch 操作通道
	ch chan op

	closeOnce sync.Once
	closeErr  error
	closed    int32

	sendMu sync.Mutex

	wg sync.WaitGroup
}

// NewAppender 创建追加写入器
// 参数 path: 日志文件路径
// 参数 bufferSize: 写入缓冲区大小（channel capacity）
func NewAppender(path string, bufferSize int) (*Appender, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	a := &Appender{
		path: path,
		ch:   make(chan op, bufferSize),
	}

	a.wg.Add(1)
	go a.loop()

	return a, nil
}

// Append 异步追加一条记录
func (a *Appender) Append(v any) error {
	if a == nil {
		return fmt.Errorf("appender 为空")
	}
	if atomic.LoadInt32(&a.closed) == 1 {
		return fmt.Errorf("appender 已关闭")
	}
	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	if atomic.LoadInt32(&a.closed) == 1 {
		return fmt.Errorf("appender 已关闭")
	}
	a.ch <- op{typ: opAppend, val: v}
	return nil
}

// Flush 等待已投递的记录全部落盘
func (a *Appender) Flush() error {
	if a == nil {
		return nil
	}
	if atomic.LoadInt32(&a.closed) == 1 {
		return nil
	}
	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	if atomic.LoadInt32(&a.closed) == 1 {
		return nil
	}
	done := make(chan error, 1)
	a.ch <- op{typ: opFlush, done: done}
	return <-done
}

// Close 关闭写入器（会先处理完队列中的记录）
func (a *Appender) Close() error {
	if a == nil {
		return nil
	}
	a.closeOnce.Do(func() {
		atomic.StoreInt32(&a.closed, 1)
		a.sendMu.Lock()
		defer a.sendMu.Unlock()
		done := make(chan error, 1)
		a.ch <- op{typ: opClose, done: done}
		a.closeErr = <-done
		close(a.ch)
	})
	a.wg.Wait()
	return a.closeErr
}

func (a *Appender) loop() {
	defer a.wg.Done()

	var lastErr error
	reply := func(err error, done chan error) {
		if done != nil {
			done <- err
		}
	}

	for req := range a.ch {
		switch req.typ {
		case opAppend:
			lastErr = a.appendOne(req.val)
		case opFlush:
			reply(lastErr, req.done)
			lastErr = nil
		case opClose:
			reply(lastErr, req.done)
			return
		}
	}
}

// appendOne 执行一次读-改-写追加
// 文件不存在或内容不是数组时从空数组重建。
func (a *Appender) appendOne(v any) error {
	entry, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化日志条目失败: %w", err)
	}

	var entries []json.RawMessage
	if data, err := os.ReadFile(a.path); err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			entries = nil
		}
	}
	entries = append(entries, entry)

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化日志文件失败: %w", err)
	}
	if err := os.WriteFile(a.path, out, 0o644); err != nil {
		return fmt.Errorf("写入日志文件失败: %w", err)
	}
	return nil
}
