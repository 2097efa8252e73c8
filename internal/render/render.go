// Package render 把结果渲染成文本：GUI/HTTP 用逐行 JSON，CLI 用按 mode 对齐的可读行。
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/findid/internal/domain"
)

// colGap 是列之间的空格数。
const colGap = 2

// JSONLines 每条结果输出一行 JSON（字段顺序固定：tag, name, id, short_id, media_id, language, audio_file）。
func JSONLines(w io.Writer, matches []domain.MatchRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, m := range matches {
		if err := enc.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

// Text 输出对齐的可读行，列随 mode 变化；最后一行是计数。
//
// 只开了一种 mode 时只展示该 mode 关心的字段；多种 mode 同时开启时展示全部字段。
func Text(w io.Writer, matches []domain.MatchRecord, modes domain.Modes) error {
	cols := columnsFor(modes)

	// 列宽按终端显示宽度计算（中文名字占两格），不是按字节或 rune。
	rows := make([][]string, len(matches))
	widths := make([]int, len(cols))
	for i, m := range matches {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c(m)
			if cw := lipgloss.Width(row[j]); cw > widths[j] {
				widths[j] = cw
			}
		}
		rows[i] = row
	}

	var b strings.Builder
	for _, row := range rows {
		b.Reset()
		for j, cell := range row {
			b.WriteString(cell)
			if j < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[j]-lipgloss.Width(cell)+colGap))
			}
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return Count(w, len(matches))
}

// Count 输出计数行。
func Count(w io.Writer, n int) error {
	_, err := fmt.Fprintf(w, "matched %d results\n", n)
	return err
}

type column func(domain.MatchRecord) string

func columnsFor(modes domain.Modes) []column {
	tag := func(m domain.MatchRecord) string { return "[" + m.Tag + "]" }
	name := func(m domain.MatchRecord) string { return m.Name }
	id := func(m domain.MatchRecord) string { return "ID=" + m.ID }
	shortID := func(m domain.MatchRecord) string { return "ShortID=" + m.ShortID }
	mediaID := func(m domain.MatchRecord) string { return "MediaID=" + m.MediaID }
	lang := func(m domain.MatchRecord) string { return "Language=" + m.Language }
	audio := func(m domain.MatchRecord) string { return "AudioFile=" + m.AudioFile }

	en := modes.Enabled()
	if len(en) == 1 {
		switch en[0] {
		case domain.ModeGUID:
			return []column{tag, name, id, shortID}
		case domain.ModeShortID:
			return []column{tag, name, shortID, id}
		case domain.ModeMediaID:
			return []column{tag, name, mediaID, lang, audio, id}
		}
	}
	return []column{tag, name, id, shortID, mediaID, lang, audio}
}
