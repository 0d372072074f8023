package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/attunedev/attune/internal/tui/styles"
	"github.com/attunedev/attune/internal/util"
)

// detailHeight is the fixed number of rows the detail panel occupies.
const detailHeight = 7

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}

	start := time.Now()

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.listView())
	b.WriteString(m.detailView())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(styles.HelpBar.Render(m.help.View(m.keys)))

	elapsed := time.Since(start)
	if m.deps.Optimizer != nil {
		m.deps.Optimizer.TrackRenderTime("list", elapsed)
	}
	if m.deps.Metrics != nil {
		m.deps.Metrics.ObserveRender(elapsed)
	}
	return b.String()
}

func (m Model) headerView() string {
	title := styles.Title.Render("attune demo")
	pos := styles.Muted.Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.records)))
	return title + pos
}

// listView renders only the materialized rows; everything outside the
// window plus buffer was never rendered at all.
func (m Model) listView() string {
	var b strings.Builder
	start, end := m.renderer.VisibleRange()
	byIndex := make(map[int]any, end-start)
	for _, it := range m.renderer.Items() {
		byIndex[it.Index] = it.Rendered
	}

	height := m.listHeight()
	written := 0
	for i := start; i < end && written < height; i++ {
		line, ok := byIndex[i].(string)
		if !ok {
			line = ""
		}
		line = util.Truncate(line, max(m.width-2, 20))
		if i == m.cursor {
			b.WriteString(styles.RowSelected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		written++
	}
	for ; written < height; written++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) detailView() string {
	var content string
	switch {
	case m.loadingRecord != 0:
		content = m.spinner.View() + " loading " + detailKey(m.loadingRecord)
	case m.detailErr != nil:
		content = styles.Error.Render("error: " + m.detailErr.Error())
	case m.detail != "":
		content = m.detail
	default:
		content = styles.Muted.Render("press enter to load the selected record")
	}
	return styles.DetailBox.Width(max(m.width-2, 20)).Height(detailHeight - 2).Render(content)
}

// statusView is a one-line digest of engine health.
func (m Model) statusView() string {
	var parts []string

	if m.deps.Cache != nil {
		cs := m.deps.Cache.Statistics()
		parts = append(parts, fmt.Sprintf("cache %d/%d KB hit %.0f%%",
			cs.UsedBytes/1024, cs.MaxBytes/1024, cs.HitRate*100))
	}
	if m.deps.Scheduler != nil {
		ss := m.deps.Scheduler.Statistics()
		parts = append(parts, fmt.Sprintf("tasks %dr/%dp", ss.Running, ss.Pending))
	}
	ws := m.renderer.Stats()
	parts = append(parts, fmt.Sprintf("window %d live", ws.Materialized))

	if !m.optimizedAt.IsZero() {
		parts = append(parts, fmt.Sprintf("optimized %d rules", len(m.lastOptimize.Ran)))
	}

	return styles.StatusBar.Render(strings.Join(parts, "  |  "))
}
