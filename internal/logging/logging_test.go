package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupJSONWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup("debug", "json", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Info().Str("symbol", "BTCUSDT").Msg("pass complete")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if entry["symbol"] != "BTCUSDT" || entry["message"] != "pass complete" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup("warn", "json", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := Setup("loud", "json", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
