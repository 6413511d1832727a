package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	Setup("DEBUG")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %s", zerolog.GlobalLevel())
	}
	Setup("nonsense")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s", zerolog.GlobalLevel())
	}
	Setup("")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s", zerolog.GlobalLevel())
	}
}
