package search

import (
	"time"

	"github.com/John-Robertt/findid/internal/domain"
)

// Observer 用于把“查询进度/阶段/单文件结果”从核心执行流程中解耦出来。
//
// 约束：
// - search 包只负责发事件，不做任何输出（避免污染 stdout 的结果输出）
// - Observer 的实现必须并发安全：OnFileDone 来自多个 worker goroutine
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(req Request)
	// OnPhaseDone 在阶段结束/就绪时调用（scan / exec / merge）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFileDone 在某个文件处理完成时调用；idx 是完成序号（1..total），不是文件下标。
	OnFileDone(idx, total int, file domain.UnitFile, out FileOutcome, dur time.Duration)
}
