// Package search 是查询编排层：枚举 work unit，按文件并发扫描，归并去重。
package search

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/findid/internal/domain"
	"github.com/John-Robertt/findid/internal/match"
	"github.com/John-Robertt/findid/internal/scan"
	"github.com/John-Robertt/findid/internal/xmldoc"
)

// 通过可替换的函数指针，让测试能稳定模拟读取失败。
var readFileFunc = os.ReadFile

// Request 是一次查询的全部输入（由 CLI/serve 从配置与参数合并而来）。
type Request struct {
	Query   string
	Root    string
	Modes   domain.Modes
	Workers int      // <1 时取 CPU 数
	Exclude []string // 见 scan.ScanUnits
}

// FileOutcome 是单个文件的处理结果；每个 worker 只写自己的那一份。
type FileOutcome struct {
	Parsed   bool
	Matches  []domain.MatchRecord
	Failures []domain.FileFailure
}

// Find 是最小的核心契约：query + root + 开关 => 去重后的结果集合。
func Find(ctx context.Context, query, root string, modes domain.Modes) []domain.MatchRecord {
	rr := Execute(ctx, Request{Query: query, Root: root, Modes: modes}, match.Default(), nil)
	return rr.Matches
}

// Execute 执行一次查询，并返回 SearchReport。
// 单个文件的任何失败都只降级为该文件的诊断，不影响其它文件。
func Execute(ctx context.Context, req Request, reg match.Registry, log logrus.FieldLogger) domain.SearchReport {
	return ExecuteWithObserver(ctx, req, reg, log, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度（由上层决定是否启用）。
//
// ctx 结束后尚未开始的文件不再处理（记为 canceled）；已经开始的文件会处理完。
func ExecuteWithObserver(ctx context.Context, req Request, reg match.Registry, log logrus.FieldLogger, obs Observer) domain.SearchReport {
	if log == nil {
		log = discardLogger()
	}

	rr := domain.SearchReport{
		RunID:     uuid.NewString(),
		Query:     req.Query,
		Path:      req.Root,
		Modes:     req.Modes,
		StartedAt: time.Now().UTC(),
	}
	log = log.WithField("run_id", rr.RunID)

	if obs != nil {
		obs.OnStart(req)
	}

	scanStarted := time.Now()
	files, err := scan.ScanUnits(req.Root, req.Exclude)
	if err != nil {
		log.WithError(err).WithField("path", req.Root).Error("扫描失败")
		rr.Failures = append(rr.Failures, domain.FileFailure{
			ErrorCode: domain.ErrCodeIOFailed,
			ErrorMsg:  fmt.Sprintf("扫描失败：%v", err),
		})
		return finish(rr)
	}
	rr.Summary.Files = len(files)
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"files": len(files)}, time.Since(scanStarted))
	}

	strategies := reg.Select(req.Modes)
	if len(strategies) == 0 {
		log.Warn("没有开启任何匹配方式，跳过扫描")
		return finish(rr)
	}

	workers := req.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_files": len(files),
		}, 0)
	}

	// 扇出：每个文件独占 outcomes[i]，不共享可变状态，也就不需要锁。
	query := strings.ToLower(req.Query)
	outcomes := make([]FileOutcome, len(files))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range files {
		g.Go(func() error {
			oneStarted := time.Now()
			outcomes[i] = scanFile(ctx, files[i], query, strategies)
			if obs != nil {
				obs.OnFileDone(int(done.Add(1)), len(files), files[i], outcomes[i], time.Since(oneStarted))
			}
			return nil
		})
	}
	_ = g.Wait()

	// 归并：按枚举顺序在单个 goroutine 里完成，诊断日志也因此有序。
	mergeStarted := time.Now()
	all := make([]domain.MatchRecord, 0, 64)
	for i, out := range outcomes {
		if out.Parsed {
			rr.Summary.Scanned++
		}
		for _, f := range out.Failures {
			logFailure(log, files[i], f)
		}
		rr.Failures = append(rr.Failures, out.Failures...)
		all = append(all, out.Matches...)
	}
	rr.Matches = domain.Dedup(all)
	if obs != nil {
		obs.OnPhaseDone("merge", map[string]any{
			"raw":     len(all),
			"matches": len(rr.Matches),
		}, time.Since(mergeStarted))
	}

	log.WithFields(logrus.Fields{
		"files":   rr.Summary.Files,
		"scanned": rr.Summary.Scanned,
		"matches": len(rr.Matches),
	}).Debug("查询完成")
	return finish(rr)
}

func finish(rr domain.SearchReport) domain.SearchReport {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// scanFile 处理单个文件：读取 -> 解析一次 -> 依次跑已开启的策略。
func scanFile(ctx context.Context, f domain.UnitFile, query string, strategies []match.Strategy) FileOutcome {
	if ctx.Err() != nil {
		return failed(f, domain.ErrCodeCanceled, "查询已取消，文件未处理")
	}

	b, err := readFileFunc(f.AbsPath)
	if err != nil {
		return failed(f, domain.ErrCodeIOFailed, fmt.Sprintf("读取文件失败：%v", err))
	}

	doc, err := xmldoc.Parse(b)
	if err != nil {
		return failed(f, domain.ErrCodeParseFailed, err.Error())
	}

	out := FileOutcome{Parsed: true}
	for _, s := range strategies {
		res := s.Scan(query, doc)
		out.Matches = append(out.Matches, res.Matches...)
		for _, a := range res.Anomalies {
			out.Failures = append(out.Failures, domain.FileFailure{
				File:      f.RelPath,
				ErrorCode: domain.ErrCodeStructureSkipped,
				ErrorMsg:  fmt.Sprintf("%s ID=%q 已跳过：%s", a.Tag, a.Value, a.Reason),
			})
		}
	}
	return out
}

func failed(f domain.UnitFile, code, msg string) FileOutcome {
	return FileOutcome{Failures: []domain.FileFailure{{File: f.RelPath, ErrorCode: code, ErrorMsg: msg}}}
}

func logFailure(log logrus.FieldLogger, f domain.UnitFile, ff domain.FileFailure) {
	e := log.WithFields(logrus.Fields{
		"file":       f.AbsPath,
		"error_code": ff.ErrorCode,
	})
	if ff.ErrorCode == domain.ErrCodeCanceled {
		e.Info(ff.ErrorMsg)
		return
	}
	e.Warn(ff.ErrorMsg)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
