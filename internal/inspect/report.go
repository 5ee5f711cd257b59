// Package inspect renders a compiled plan as a human-readable terminal
// report: timing, extractions, the dependency graph, and the multi-tempo
// validation table.
package inspect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/kompozer/internal/graph"
	"github.com/mattjoyce/kompozer/internal/plan"
)

// Theme centralizes all styling for the inspect report.
type Theme struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Dim    lipgloss.Style
	Pass   lipgloss.Style
	Fail   lipgloss.Style
	Warn   lipgloss.Style
	Final  lipgloss.Style
	Border lipgloss.Style
}

func NewDefaultTheme() Theme {
	return Theme{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Pass:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Fail:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Final: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#874BFD")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1),
	}
}

// Render formats the full report.
func Render(p *plan.BuildPlan, theme Theme) string {
	var b strings.Builder

	b.WriteString(theme.Title.Render(fmt.Sprintf("BUILD PLAN %s", p.PlanID)))
	b.WriteString("\n")
	b.WriteString(theme.Dim.Render(fmt.Sprintf("  fingerprint %s", p.KompositionFingerprint)))
	b.WriteString("\n")
	b.WriteString(theme.Dim.Render(fmt.Sprintf("  created %s", p.CreatedAt.Format("2006-01-02 15:04:05 MST"))))
	b.WriteString("\n\n")

	renderTiming(&b, p, theme)
	renderExtractions(&b, p, theme)
	renderExecution(&b, p, theme)
	renderValidation(&b, p, theme)

	return theme.Border.Render(strings.TrimRight(b.String(), "\n"))
}

func renderTiming(b *strings.Builder, p *plan.BuildPlan, theme Theme) {
	bt := p.BeatTiming
	b.WriteString(theme.Header.Render("TIMING"))
	b.WriteString("\n")
	fmt.Fprintf(b, "  %.0f bpm, %d/4, beats %.1f to %.1f (%.3fs total)\n",
		bt.BPM, bt.BeatsPerMeasure, bt.StartBeat, bt.EndBeat, bt.DurationSeconds)

	ids := make([]string, 0, len(bt.SegmentDurations))
	for id := range bt.SegmentDurations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(b, "  %-20s %8.3fs\n", id, bt.SegmentDurations[id])
	}
	b.WriteString("\n")
}

func renderExtractions(b *strings.Builder, p *plan.BuildPlan, theme Theme) {
	b.WriteString(theme.Header.Render("SNIPPET EXTRACTIONS"))
	b.WriteString("\n")
	for _, d := range p.SnippetExtractions {
		method := d.ExtractionMethod
		if d.AutoUpgraded {
			method = theme.Warn.Render(fmt.Sprintf("%s (auto, %.2fx)", method, d.StretchFactor))
		}
		fmt.Fprintf(b, "  %-20s %s @ %.3fs for %.3fs  [%s]\n",
			d.SegmentID, d.SourceFileID, d.RequestedStartSeconds, d.RequestedDurationSeconds, method)
	}
	b.WriteString("\n")
}

func renderExecution(b *strings.Builder, p *plan.BuildPlan, theme Theme) {
	b.WriteString(theme.Header.Render(fmt.Sprintf("EXECUTION ORDER (%d steps, %d nodes)",
		len(p.ExecutionOrder), len(p.DependencyGraph.Nodes))))
	b.WriteString("\n")
	for i, id := range p.ExecutionOrder {
		label := id
		if node, ok := p.NodeByID(id); ok {
			detail := node.Operation
			if len(node.Inputs) > 0 {
				detail += " <- " + strings.Join(node.Inputs, ", ")
			}
			label = fmt.Sprintf("%s  %s", id, theme.Dim.Render(detail))
			if node.Kind == graph.KindFinal {
				label = theme.Final.Render(id) + "  " + theme.Dim.Render(detail)
			}
		}
		fmt.Fprintf(b, "  %2d. %s\n", i+1, label)
	}
	b.WriteString("\n")
}

func renderValidation(b *strings.Builder, p *plan.BuildPlan, theme Theme) {
	b.WriteString(theme.Header.Render("MULTI-TEMPO VALIDATION"))
	b.WriteString("\n")

	keys := make([]string, 0, len(p.Validation))
	for key := range p.Validation {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseFloat(keys[i], 64)
		c, _ := strconv.ParseFloat(keys[j], 64)
		return a < c
	})

	for _, key := range keys {
		r := p.Validation[key]
		verdict := theme.Pass.Render("PASS")
		if !r.Pass {
			verdict = theme.Fail.Render("FAIL")
		}
		fmt.Fprintf(b, "  %6s bpm  %8.3fs  %s", key, r.TotalDuration, verdict)
		if r.Reason != "" {
			fmt.Fprintf(b, "  %s", theme.Dim.Render(r.Reason))
		}
		b.WriteString("\n")
	}
}
