package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/phuslu/log"
)

func TestSetupWriterJSON(t *testing.T) {
	defer func(prev log.Logger) { log.DefaultLogger = prev }(log.DefaultLogger)

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "json")
	log.Debug().Msg("hidden")
	log.Info().Str("metric", "revenue").Msg("computed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected debug entries to be filtered, got %q", out)
	}
	if !strings.Contains(out, `"metric":"revenue"`) {
		t.Errorf("Expected metric field in output, got %q", out)
	}
}
