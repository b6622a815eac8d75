package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestHelpersNilSafe(t *testing.T) {
	Logger = nil
	// None of these may panic before Init.
	Info("x")
	Debug("x")
	Warn("x")
	Error("x")
	if WithPrefix("p") != nil {
		t.Error("WithPrefix should return nil without a logger")
	}
}

func TestInitWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, log.InfoLevel)
	defer func() { Logger = nil }()

	Debug("hidden", "k", 1)
	Info("probe done", "url", "https://x.test/1.jpg")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "probe done") || !strings.Contains(out, "https://x.test/1.jpg") {
		t.Errorf("info line missing: %q", out)
	}
}
