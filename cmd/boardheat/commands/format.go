package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/boardheat/internal/contracts"
	"github.com/wonny/boardheat/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, fields map[string]string, order []string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	for _, k := range order {
		fmt.Printf("  %-10s: %s\n", k, fields[k])
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintRunResults prints one line per pipeline run plus a summary
func PrintRunResults(results []*pipeline.RunResult) {
	widths := []int{10, 8, 8, 8, 10, 12}
	PrintTableHeader([]string{"DATE", "STATUS", "BOARDS", "SIGNALS", "DURATION", "CONFIG"}, widths)

	failed := 0
	for _, r := range results {
		status := "OK"
		if !r.Success {
			status = "FAILED"
			failed++
		}
		PrintTableRow([]string{
			contracts.FormatDate(r.Date),
			status,
			fmt.Sprintf("%d", r.Boards),
			fmt.Sprintf("%d", r.Signals),
			r.Duration.Round(time.Millisecond).String(),
			shortHash(r.ConfigHash),
		}, widths)
		if r.Error != "" {
			fmt.Printf("   ↳ %s\n", r.Error)
		}
	}

	fmt.Println()
	if failed > 0 {
		PrintError(fmt.Sprintf("%d of %d dates failed", failed, len(results)))
		return
	}
	PrintSuccess(fmt.Sprintf("%d dates computed", len(results)))
}

// PrintOutliers prints an outlier result as a table
func PrintOutliers(res *contracts.OutlierResult) {
	fmt.Printf("  Band: mean %.1f, σ %.1f, ×%.1f → [%.1f, %.1f] (n=%d)\n\n",
		res.Band.Mean, res.Band.StdDev, res.Band.Multiplier, res.Band.Lower, res.Band.Upper, res.Band.Eligible)

	widths := []int{8, 6, 6, 6, 7, 9, 8}
	PrintTableHeader([]string{"CODE", "FROM", "TO", "UP", "Z", "THRESH", "OUTLIER"}, widths)
	for _, s := range res.Signals {
		PrintTableRow([]string{
			s.Code,
			fmt.Sprintf("%d", s.FromRank),
			fmt.Sprintf("%d", s.ToRank),
			fmt.Sprintf("%+d", s.Improvement),
			fmt.Sprintf("%.2f", s.ZScore),
			yesNo(s.PassesThreshold),
			yesNo(s.Outlier),
		}, widths)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
