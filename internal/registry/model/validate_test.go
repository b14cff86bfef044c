package model

import (
	"strings"
	"testing"
)

func TestValidName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"abc", true},
		{"my-agent_01", true},
		{strings.Repeat("a", 50), true},
		{"ab", false},
		{strings.Repeat("a", 51), false},
		{"has space", false},
		{"has.dot", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidName(tc.name); got != tc.want {
			t.Errorf("ValidName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestValidDescription(t *testing.T) {
	if ValidDescription("too short") {
		t.Error("9-char description should be invalid")
	}
	if !ValidDescription("exactly ok") {
		t.Error("10-char description should be valid")
	}
	if !ValidDescription(strings.Repeat("d", 500)) {
		t.Error("500-char description should be valid")
	}
	if ValidDescription(strings.Repeat("d", 501)) {
		t.Error("501-char description should be invalid")
	}
}

func TestValidWalletAddress(t *testing.T) {
	if !ValidWalletAddress("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v") {
		t.Error("valid base58 address rejected")
	}
	// base58 excludes 0, O, I, l
	if ValidWalletAddress("0PjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v") {
		t.Error("address containing '0' accepted")
	}
	if ValidWalletAddress("tooshort") {
		t.Error("short address accepted")
	}
}

func TestValidateConfiguration(t *testing.T) {
	valid := Configuration{
		MaxTransactionAmount:  1000,
		DailyTransactionLimit: 10000,
		AllowedTokens:         []string{"SOL"},
		RiskThreshold:         50,
	}
	if errs := ValidateConfiguration(valid); len(errs) != 0 {
		t.Fatalf("valid configuration produced errors: %v", errs)
	}

	// Risk threshold boundaries are inclusive.
	for _, rt := range []float64{0, 100} {
		cfg := valid
		cfg.RiskThreshold = rt
		if errs := ValidateConfiguration(cfg); len(errs) != 0 {
			t.Errorf("riskThreshold=%v should be valid, got %v", rt, errs)
		}
	}
	for _, rt := range []float64{-0.1, 100.1} {
		cfg := valid
		cfg.RiskThreshold = rt
		errs := ValidateConfiguration(cfg)
		if len(errs) != 1 || errs[0] != "Risk threshold must be between 0 and 100" {
			t.Errorf("riskThreshold=%v: got %v", rt, errs)
		}
	}

	cfg := valid
	cfg.AllowedTokens = nil
	errs := ValidateConfiguration(cfg)
	if len(errs) != 1 || errs[0] != "At least one allowed token must be specified" {
		t.Errorf("empty allowedTokens: got %v", errs)
	}

	// Every violation is reported, not just the first.
	bad := Configuration{MaxTransactionAmount: 0, DailyTransactionLimit: -5, RiskThreshold: 200}
	if errs := ValidateConfiguration(bad); len(errs) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateConfigurationOperatingHours(t *testing.T) {
	base := Configuration{
		MaxTransactionAmount:  1,
		DailyTransactionLimit: 1,
		AllowedTokens:         []string{"SOL"},
		RiskThreshold:         10,
	}

	base.OperatingHours = &OperatingHours{Start: "09:00", End: "17:30", Timezone: "UTC"}
	if errs := ValidateConfiguration(base); len(errs) != 0 {
		t.Fatalf("valid operating hours: got %v", errs)
	}

	base.OperatingHours = &OperatingHours{Start: "9am", End: "17:30", Timezone: "UTC"}
	if errs := ValidateConfiguration(base); len(errs) != 1 {
		t.Errorf("bad start time: got %v", errs)
	}

	base.OperatingHours = &OperatingHours{Start: "09:00", End: "17:30"}
	if errs := ValidateConfiguration(base); len(errs) != 1 {
		t.Errorf("missing timezone: got %v", errs)
	}
}

func TestReputationScore(t *testing.T) {
	// Perfect metrics: 100*0.4 + 100*0.2 + 100*0.3 + 100*0.1 = 100.
	perfect := ReputationMetrics{SuccessRate: 100, ResponseTime: 0, Uptime: 100, TransactionCount: 1000}
	if got := ReputationScore(perfect); got != 100 {
		t.Errorf("perfect metrics: got %d, want 100", got)
	}

	if got := ReputationScore(ReputationMetrics{}); got != 20 {
		// Zero metrics still earn the full response component (0ms = 100).
		t.Errorf("zero metrics: got %d, want 20", got)
	}

	// Response times at or above 10s zero out the response component.
	slow := ReputationMetrics{SuccessRate: 100, ResponseTime: 10000, Uptime: 100, TransactionCount: 1000}
	if got := ReputationScore(slow); got != 80 {
		t.Errorf("10s response: got %d, want 80", got)
	}

	// Transaction volume caps at 1000.
	capped := ReputationMetrics{TransactionCount: 5000}
	uncapped := ReputationMetrics{TransactionCount: 1000}
	if ReputationScore(capped) != ReputationScore(uncapped) {
		t.Error("volume component should cap at 1000 transactions")
	}

	// Deterministic.
	m := ReputationMetrics{SuccessRate: 73.5, ResponseTime: 420, Uptime: 98.2, TransactionCount: 245}
	if ReputationScore(m) != ReputationScore(m) {
		t.Error("score is not deterministic")
	}
}

func TestMaskWallet(t *testing.T) {
	addr := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	masked := MaskWallet(addr)
	if masked != "EPjFWdd5...ZwyTDt1v" {
		t.Errorf("MaskWallet = %q", masked)
	}
	if MaskWallet("short") != "short" {
		t.Error("short addresses should pass through unmasked")
	}
}

func TestConfigurationPatchApplyTo(t *testing.T) {
	cfg := Configuration{
		MaxTransactionAmount:  100,
		DailyTransactionLimit: 1000,
		AllowedTokens:         []string{"SOL"},
		RiskThreshold:         50,
	}

	amount := 250.0
	tokens := []string{"SOL", "USDC"}
	patch := ConfigurationPatch{
		MaxTransactionAmount: &amount,
		AllowedTokens:        &tokens,
	}

	merged := patch.ApplyTo(cfg)
	if merged.MaxTransactionAmount != 250 {
		t.Errorf("maxTransactionAmount = %v", merged.MaxTransactionAmount)
	}
	if merged.DailyTransactionLimit != 1000 {
		t.Error("unpatched field changed")
	}
	if len(merged.AllowedTokens) != 2 {
		t.Errorf("allowedTokens = %v", merged.AllowedTokens)
	}
	// Original must be untouched.
	if cfg.MaxTransactionAmount != 100 || len(cfg.AllowedTokens) != 1 {
		t.Error("ApplyTo mutated its input")
	}
}

func TestNewAgentID(t *testing.T) {
	id := NewAgentID()
	if !strings.HasPrefix(id, "agent_") {
		t.Errorf("unexpected prefix: %q", id)
	}
	if id == NewAgentID() {
		t.Error("consecutive IDs collided")
	}
}
