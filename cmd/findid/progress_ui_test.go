package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/findid/internal/app/search"
	"github.com/John-Robertt/findid/internal/domain"
)

func TestProgressUI_PrintsOnlyDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnStart(search.Request{Query: "abc", Root: "/w", Modes: domain.Modes{GUID: true}})
	p.OnPhaseDone("scan", map[string]any{"files": 2}, 10*time.Millisecond)
	p.OnPhaseDone("exec", map[string]any{"workers": 2, "total_files": 2}, 0)

	p.OnFileDone(1, 2, domain.UnitFile{RelPath: "A.wwu"}, search.FileOutcome{
		Parsed:  true,
		Matches: []domain.MatchRecord{{Tag: "Sound"}},
	}, time.Millisecond)
	p.OnFileDone(2, 2, domain.UnitFile{RelPath: "B.wwu"}, search.FileOutcome{
		Failures: []domain.FileFailure{{File: "B.wwu", ErrorCode: domain.ErrCodeParseFailed, ErrorMsg: "xml 解析失败"}},
	}, time.Millisecond)
	p.OnPhaseDone("merge", map[string]any{"raw": 1, "matches": 1}, 0)

	out := buf.String()
	for _, want := range []string{"findid 查询 \"abc\"", "modes: guid", "扫描: files=2", "执行: workers=2 total_files=2", "[2/2] B.wwu FAIL parse_failed", "归并: raw=1 matches=1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
	if strings.Contains(out, "A.wwu") {
		t.Fatalf("无诊断的文件不应单独打印：\n%s", out)
	}
	if p.tickerStarted {
		t.Fatalf("全部完成后 ticker 应已停止")
	}
	if p.hits != 1 || p.fail != 1 {
		t.Fatalf("计数不正确：hits=%d fail=%d", p.hits, p.fail)
	}
}

func TestProgressUI_KeepaliveLine(t *testing.T) {
	var buf syncBuffer
	p := newProgressUI(&buf)
	p.keepaliveThreshold = time.Millisecond
	p.tickerInterval = 5 * time.Millisecond

	p.OnStart(search.Request{Query: "x", Root: "/w", Modes: domain.Modes{MediaID: true}})
	p.OnPhaseDone("exec", map[string]any{"workers": 1, "total_files": 3}, 0)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "进度: done=0/3") {
		if time.Now().After(deadline) {
			t.Fatalf("期望出现 keepalive 行：\n%s", buf.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.OnPhaseDone("merge", nil, 0)
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(3723 * time.Second); got != "01:02:03" {
		t.Fatalf("got=%q", got)
	}
	if got := formatElapsed(-time.Second); got != "00:00:00" {
		t.Fatalf("got=%q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  abcdefgh  ", 6); got != "abc..." {
		t.Fatalf("got=%q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("got=%q", got)
	}
}

func TestTruncate_KeepsUTF8Valid(t *testing.T) {
	msg := "读取文件失败：" + strings.Repeat("音频", 60)
	for _, max := range []int{2, 3, 4, 5, 160, 161, 162} {
		got := truncate(msg, max)
		if !utf8.ValidString(got) {
			t.Fatalf("max=%d 截断后不是合法 UTF-8：%q", max, got)
		}
		if len(got) > max {
			t.Fatalf("max=%d 截断后超长：len=%d", max, len(got))
		}
	}
	if got := truncate(msg, 160); !strings.HasSuffix(got, "...") || !strings.HasPrefix(got, "读取文件失败") {
		t.Fatalf("got=%q", got)
	}
}

// syncBuffer 让 ticker goroutine 与测试 goroutine 可以同时访问输出。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
