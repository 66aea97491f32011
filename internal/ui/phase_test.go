package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseDisplayRenderSuccess(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSuccess("Key installed")

	output := buf.String()
	assert.Contains(t, output, SymbolSuccess)
	assert.Contains(t, output, "Key installed")
}

func TestPhaseDisplayRenderUnchanged(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderUnchanged("Key already exists")

	assert.Contains(t, buf.String(), SymbolPending)
	assert.Contains(t, buf.String(), "Key already exists")
}

func TestPhaseDisplayRenderSkipped(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSkipped("Would append key", "dry run")

	output := buf.String()
	assert.Contains(t, output, SymbolSkipped)
	assert.Contains(t, output, "Would append key")
	assert.Contains(t, output, "(dry run)")
}

func TestPhaseDisplayRenderSkippedNoReason(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSkipped("Verification", "")

	output := buf.String()
	assert.Contains(t, output, SymbolSkipped)
	assert.NotContains(t, output, "(")
}

func TestPhaseDisplayRenderSubStatus(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSubStatus("key", "SHA256:abc")

	output := buf.String()
	assert.Contains(t, output, "key")
	assert.Contains(t, output, "SHA256:abc")
	assert.Equal(t, "  ", output[:2], "sub-status lines are indented")
}

func TestPhaseDisplayRenderBlock(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderBlock("ssh alice@box ...")

	assert.Contains(t, buf.String(), "ssh alice@box ...")
	assert.Same(t, &buf, pd.Writer())
}
