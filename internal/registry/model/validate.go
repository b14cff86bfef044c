package model

import (
	"math"
	"regexp"
	"slices"
)

var (
	nameRe      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	walletRe    = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	clockTimeRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// ValidName reports whether name is 3-50 chars of [a-zA-Z0-9_-].
func ValidName(name string) bool {
	return len(name) >= 3 && len(name) <= 50 && nameRe.MatchString(name)
}

// ValidDescription reports whether description is 10-500 chars.
func ValidDescription(description string) bool {
	return len(description) >= 10 && len(description) <= 500
}

// ValidWalletAddress reports whether address is a base58 Solana address.
func ValidWalletAddress(address string) bool {
	return walletRe.MatchString(address)
}

// ValidClockTime reports whether s is an HH:mm wall-clock time.
func ValidClockTime(s string) bool {
	return clockTimeRe.MatchString(s)
}

// ValidAgentType reports whether t is a declared agent type.
func ValidAgentType(t AgentType) bool {
	return slices.Contains(AgentTypes(), t)
}

// ValidNetwork reports whether n is a declared network.
func ValidNetwork(n Network) bool {
	return slices.Contains(Networks(), n)
}

// ValidateConfiguration returns every violated configuration constraint.
// An empty slice means the configuration is acceptable.
func ValidateConfiguration(cfg Configuration) []string {
	var errs []string

	if cfg.MaxTransactionAmount <= 0 {
		errs = append(errs, "Max transaction amount must be positive")
	}
	if cfg.DailyTransactionLimit <= 0 {
		errs = append(errs, "Daily transaction limit must be positive")
	}
	if cfg.RiskThreshold < 0 || cfg.RiskThreshold > 100 {
		errs = append(errs, "Risk threshold must be between 0 and 100")
	}
	if len(cfg.AllowedTokens) == 0 {
		errs = append(errs, "At least one allowed token must be specified")
	}
	if oh := cfg.OperatingHours; oh != nil {
		if !ValidClockTime(oh.Start) || !ValidClockTime(oh.End) {
			errs = append(errs, "Operating hours must be in HH:mm format")
		}
		if oh.Timezone == "" {
			errs = append(errs, "Operating hours timezone is required")
		}
	}

	return errs
}

// Reputation score weights. Success rate dominates, transaction volume is
// a small bonus capped at 1000 transactions.
const (
	successWeight  = 0.4
	responseWeight = 0.2
	uptimeWeight   = 0.3
	volumeWeight   = 0.1
)

// ReputationScore computes the weighted 0-100 reputation score from raw
// metrics. Response times above 10s score zero on the response component;
// transaction counts above 1000 max out the volume component.
func ReputationScore(m ReputationMetrics) int {
	responseScore := math.Max(0, 100-(m.ResponseTime/1000)*10)
	volumeScore := math.Min(100, (float64(m.TransactionCount)/1000)*100)

	total := m.SuccessRate*successWeight +
		responseScore*responseWeight +
		m.Uptime*uptimeWeight +
		volumeScore*volumeWeight

	return int(math.Round(math.Max(0, math.Min(100, total))))
}

// MaskWallet shortens a wallet address for display: first 8 + "..." + last 8.
func MaskWallet(address string) string {
	if len(address) <= 16 {
		return address
	}
	return address[:8] + "..." + address[len(address)-8:]
}
