package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/findid/internal/app/search"
	"github.com/John-Robertt/findid/internal/domain"
)

var _ search.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的简洁进度输出。
//
// 所有内容写到 stderr，stdout 只留给查询结果；
// 长时间没有文件完成时，ticker 会定期补一行进度。
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	hits    int
	fail    int
	skip    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(req search.Request) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] findid 查询 %q\n", now.Format("15:04:05"), truncate(req.Query, 80))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", req.Root)
	fmt.Fprintf(p.w, "  modes: %s\n", req.Modes.String())
	if req.Workers > 0 {
		fmt.Fprintf(p.w, "  workers: %d\n", req.Workers)
	}
	fmt.Fprintf(p.w, "  exclude: %s\n", formatStringListJSON(req.Exclude))
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n", intField(fields, "files"), formatShortDuration(dur))
	case "exec":
		p.workers = intField(fields, "workers")
		p.total = intField(fields, "total_files")
		fmt.Fprintf(p.w, "执行: workers=%d total_files=%d\n", p.workers, p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	case "merge":
		p.stopTickerLocked()
		fmt.Fprintf(p.w, "归并: raw=%d matches=%d (%s) elapsed=%s\n\n",
			intField(fields, "raw"), intField(fields, "matches"), formatShortDuration(dur),
			formatElapsed(time.Since(p.startedAt)),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFileDone(idx, total int, file domain.UnitFile, out search.FileOutcome, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total
	p.hits += len(out.Matches)

	// 命中的文件数量可能很多，只逐行打印有诊断的文件。
	for _, f := range out.Failures {
		status := "FAIL"
		if f.ErrorCode == domain.ErrCodeStructureSkipped {
			status = "SKIP"
			p.skip++
		} else {
			p.fail++
		}
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s (%s)\n",
			idx, total, file.RelPath, status, f.ErrorCode, truncate(f.ErrorMsg, 160), formatShortDuration(dur),
		)
		p.lastPrinted = time.Now()
	}

	if p.done >= p.total {
		p.stopTickerLocked()
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stopCh := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintln(p.w, p.progressLineLocked())
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

func (p *progressUI) progressLineLocked() string {
	return fmt.Sprintf("进度: done=%d/%d hits=%d fail=%d skip=%d elapsed=%s",
		p.done, p.total, p.hits, p.fail, p.skip, formatElapsed(time.Since(p.startedAt)),
	)
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// truncate 按字节上限截断，切点回退到 rune 边界（诊断消息多为中文）。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:runeBoundary(s, max)]
	}
	return s[:runeBoundary(s, max-3)] + "..."
}

func runeBoundary(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
