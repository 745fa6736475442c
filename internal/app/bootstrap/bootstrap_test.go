package bootstrap

import (
	"testing"

	"societyhub/internal/platform/config"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":       ":8080",
		"9090":   ":9090",
		":7070":  ":7070",
		" 8081 ": ":8081",
	}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScoreWeightsFromConfig(t *testing.T) {
	cfg := config.Config{Governance: config.DefaultGovernance()}
	weights := scoreWeights(cfg)
	if !weights.Valid() {
		t.Fatalf("expected default weights to be valid, got %+v", weights)
	}
	if weights.Timeline != 0.2 {
		t.Fatalf("expected timeline weight 0.2, got %v", weights.Timeline)
	}
}

func TestBuildAPIRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("CONFIG_FILE", "")
	if _, err := BuildAPI(""); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
