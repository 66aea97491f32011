package ui

import (
	"fmt"
	"io"
)

// PhaseDisplay renders one status line per provisioning step.
type PhaseDisplay struct {
	w io.Writer
}

// NewPhaseDisplay creates a new phase display writing to w.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	return &PhaseDisplay{w: w}
}

// Writer returns the underlying writer.
func (pd *PhaseDisplay) Writer() io.Writer {
	return pd.w
}

// RenderSuccess renders a completed step.
// Shows: ✓ Key installed in /home/alice/.ssh/authorized_keys
func (pd *PhaseDisplay) RenderSuccess(name string) {
	fmt.Fprintf(pd.w, "%s %s\n", SuccessStyle().Render(SymbolSuccess), name)
}

// RenderUnchanged renders a step that had nothing to do.
// Shows: ○ Key already exists in /home/alice/.ssh/authorized_keys
func (pd *PhaseDisplay) RenderUnchanged(name string) {
	fmt.Fprintf(pd.w, "%s %s\n", MutedStyle().Render(SymbolPending), name)
}

// RenderSkipped renders a skipped step.
// Shows: ⊘ Would append key (dry run)
func (pd *PhaseDisplay) RenderSkipped(name string, reason string) {
	if reason == "" {
		fmt.Fprintf(pd.w, "%s %s\n", WarningStyle().Render(SymbolSkipped), name)
		return
	}
	fmt.Fprintf(pd.w, "%s %s %s\n",
		WarningStyle().Render(SymbolSkipped),
		name,
		MutedStyle().Render("("+reason+")"),
	)
}

// RenderSubStatus renders an indented detail line.
// Shows:   key       SHA256:abc... (/home/alice/.ssh/id_rsa.pub)
func (pd *PhaseDisplay) RenderSubStatus(label string, value string) {
	fmt.Fprintf(pd.w, "  %-9s %s\n", MutedStyle().Render(label), value)
}

// RenderBlock writes free-form text, such as manual instructions, dimmed.
func (pd *PhaseDisplay) RenderBlock(text string) {
	fmt.Fprintf(pd.w, "\n%s\n", MutedStyle().Render(text))
}

// Newline writes an empty line.
func (pd *PhaseDisplay) Newline() {
	fmt.Fprintln(pd.w)
}
