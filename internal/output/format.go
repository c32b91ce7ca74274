// Package output renders sessions for the terminal and for files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/steveyegge/slogan-gen/internal/types"
)

const rule = "============================================================"

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// ReasonIcon returns the marker shown next to a completion reason.
func ReasonIcon(r types.CompletionReason) string {
	switch r {
	case types.ReasonApproved:
		return "✅"
	case types.ReasonRoundLimitReached:
		return "⏱️ "
	case types.ReasonError:
		return "❌"
	}
	return ""
}

// ReasonTitle turns "round-limit-reached" into "Round Limit Reached".
func ReasonTitle(r types.CompletionReason) string {
	if r == "" {
		return "Unknown"
	}
	words := strings.Split(string(r), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func colorReason(r types.CompletionReason, s string) string {
	switch r {
	case types.ReasonApproved:
		return green(s)
	case types.ReasonRoundLimitReached:
		return yellow(s)
	case types.ReasonError:
		return red(s)
	}
	return s
}

// FormatSession renders a completed session as a text report. Verbose adds
// every turn. Colors follow color.NoColor.
func FormatSession(s *types.Session, verbose bool) string {
	if s == nil || !s.IsCompleted() {
		return "⚠️  Session not completed"
	}
	reason, _ := s.CompletionReason()

	var b strings.Builder
	b.WriteString("\n" + rule + "\n")
	b.WriteString(cyan("🎯 SLOGAN GENERATION RESULTS") + "\n")
	b.WriteString(rule + "\n")

	if final, ok := s.FinalArtifact(); ok {
		fmt.Fprintf(&b, "\n✨ Final Slogan: %s\n", bold(final))
	}

	fmt.Fprintf(&b, "\n%s Status: %s\n", ReasonIcon(reason), colorReason(reason, ReasonTitle(reason)))
	if fault := s.Fault(); fault != "" {
		fmt.Fprintf(&b, "   Error: %s\n", red(fault))
	}

	b.WriteString("\n📊 Statistics:\n")
	fmt.Fprintf(&b, "   • Total iterations: %d\n", s.TurnCount())
	if s.Model() != "" {
		fmt.Fprintf(&b, "   • Model: %s\n", s.Model())
	}
	fmt.Fprintf(&b, "   • Input: %s\n", s.Request())
	fmt.Fprintf(&b, "   • Duration: %.2fs\n", s.Duration().Seconds())

	if verbose && s.TurnCount() > 0 {
		b.WriteString("\n📝 Iteration Details:\n")
		for _, t := range s.Turns() {
			fmt.Fprintf(&b, "\n   Turn %d:\n", t.Sequence())
			fmt.Fprintf(&b, "   Slogan: %s\n", t.Artifact())
			if t.Critique() != "" {
				fmt.Fprintf(&b, "   Feedback: %s\n", gray(t.Critique()))
			}
			if t.Approved() {
				fmt.Fprintf(&b, "   Approved: %s\n", green("✅ Yes"))
			} else {
				fmt.Fprintf(&b, "   Approved: %s\n", red("❌ No"))
			}
		}
	}

	b.WriteString("\n" + rule + "\n")
	return b.String()
}

// FormatSummary renders one line per session, as used by history listings.
func FormatSummary(s *types.Session) string {
	reason, _ := s.CompletionReason()
	final, ok := s.FinalArtifact()
	if !ok {
		final = gray("(none)")
	}
	return fmt.Sprintf("%s  %s  %s %-19s  %d/%d  %s  %s",
		gray(s.ID()[:min(8, len(s.ID()))]),
		s.StartedAt().Local().Format("2006-01-02 15:04"),
		ReasonIcon(reason), colorReason(reason, string(reason)),
		s.TurnCount(), s.RoundBudget(),
		truncate(s.Request(), 40), final)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// WriteJSON writes the lossless JSON projection of s, indented.
func WriteJSON(w io.Writer, s *types.Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return nil
}

// Format names a save format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// FormatFor picks the save format from a file extension.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatText
}

// Save writes s to path as JSON for .json files and as an uncolored text
// report otherwise. Parent directories are created.
func Save(path string, s *types.Session, verbose bool) (Format, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	format := FormatFor(path)
	switch format {
	case FormatJSON:
		err = WriteJSON(f, s)
	default:
		err = writePlain(f, s, verbose)
	}
	if err != nil {
		return "", err
	}
	return format, f.Close()
}

func writePlain(w io.Writer, s *types.Session, verbose bool) error {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	_, err := io.WriteString(w, FormatSession(s, verbose))
	return err
}
