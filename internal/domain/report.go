package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	ErrCodeIOFailed         = "io_failed"
	ErrCodeParseFailed      = "parse_failed"
	ErrCodeStructureSkipped = "structure_skipped"
	ErrCodeCanceled         = "canceled"
)

// SearchReport 是一次查询的完整结果（stdout JSON / HTTP 响应共用）。
type SearchReport struct {
	RunID string `json:"run_id"`
	Query string `json:"query"`
	Path  string `json:"path"`
	Modes Modes  `json:"modes"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary  SearchSummary `json:"summary"`
	Matches  []MatchRecord `json:"matches"`
	Failures []FileFailure `json:"failures"`
}

type SearchSummary struct {
	Files   int `json:"files"`   // 枚举到的 .wwu 数量
	Scanned int `json:"scanned"` // 成功读取并解析的文件数
	Failed  int `json:"failed"`  // 读取/解析失败（不贡献结果）
	Skipped int `json:"skipped"` // 结构异常被跳过的 MediaID 节点数
	Matches int `json:"matches"` // 去重后的结果数
}

// FileFailure 是单个文件级别的诊断；File 为空表示扫描阶段本身失败。
type FileFailure struct {
	File      string `json:"file"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) matches/failures 稳定排序（结果集本身无序，排序只为展示可复现）
// 3) summary 的 failed/skipped/matches 由明细计算得出
//
// Files/Scanned 由执行层填写，这里不覆盖。
func (r *SearchReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Matches == nil {
		r.Matches = []MatchRecord{}
	}
	if r.Failures == nil {
		r.Failures = []FileFailure{}
	}

	sort.SliceStable(r.Matches, func(i, j int) bool { return r.Matches[i].Less(r.Matches[j]) })
	sort.SliceStable(r.Failures, func(i, j int) bool {
		a, b := r.Failures[i].File, r.Failures[j].File
		if a == "" || b == "" {
			// 合成条目（File==""）排在最后。
			return a != "" && b == ""
		}
		return a < b
	})

	failedFiles := make(map[string]struct{})
	skipped := 0
	for _, f := range r.Failures {
		switch f.ErrorCode {
		case ErrCodeStructureSkipped:
			skipped++
		default:
			failedFiles[f.File] = struct{}{}
		}
	}
	r.Summary.Failed = len(failedFiles)
	r.Summary.Skipped = skipped
	r.Summary.Matches = len(r.Matches)
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r SearchReport) MarshalJSON() ([]byte, error) {
	type Alias SearchReport
	return json.Marshal(Alias(r))
}
