package store

import (
	"context"
	"errors"
	"fmt"
)

// Severity selects the enforcement sequence applied when a rule matches.
type Severity int

const (
	SeveritySilentDelete  Severity = 1 // delete the message, say nothing publicly
	SeverityWarnAndDelete Severity = 2 // delete and post a public warning
	SeverityKickAndDelete Severity = 3 // delete, DM the author, kick them
)

// Valid reports whether s is one of the accepted severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeveritySilentDelete, SeverityWarnAndDelete, SeverityKickAndDelete:
		return true
	default:
		return false
	}
}

func (s Severity) String() string {
	switch s {
	case SeveritySilentDelete:
		return "silent delete"
	case SeverityWarnAndDelete:
		return "warn"
	case SeverityKickAndDelete:
		return "kick"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Rule is one content rule: a case-insensitive regex pattern and the severity
// applied on match. Rules are immutable once created; there is no update
// operation, only create and delete.
type Rule struct {
	ID       int      `json:"id"`
	Pattern  string   `json:"pattern"`
	Severity Severity `json:"severity"`
}

var (
	ErrInvalidSeverity = errors.New("severity must be 1 (silent delete), 2 (warn), or 3 (kick)")
	ErrInvalidPattern  = errors.New("pattern does not compile")
	ErrRuleNotFound    = errors.New("rule not found")
)

// Store is the generic interface for the rule and trusted-sender storage.
// It allows for easy swapping of the real database with a mock in tests.
type Store interface {
	// CreateRule validates pattern and severity, assigns the next identifier
	// (current max + 1) and persists the rule. Fails with ErrInvalidSeverity
	// or ErrInvalidPattern; neither leaves any state behind.
	CreateRule(ctx context.Context, pattern string, severity Severity) (*Rule, error)
	// ListRules returns all rules in ascending-identifier order, which is
	// insertion order and therefore the matching order.
	ListRules(ctx context.Context) ([]Rule, error)
	// DeleteRule removes the rule with the given identifier, or returns
	// ErrRuleNotFound. Identifiers of deleted rules may leave gaps.
	DeleteRule(ctx context.Context, id int) error

	// IsTrusted reports whether userID is in the exemption set.
	IsTrusted(ctx context.Context, userID string) (bool, error)
	// AddTrusted adds userID to the exemption set. Returns false when the
	// user was already trusted; that is not an error.
	AddTrusted(ctx context.Context, userID string) (bool, error)
	// RemoveTrusted removes userID from the exemption set. Returns false
	// when the user was not trusted; that is not an error.
	RemoveTrusted(ctx context.Context, userID string) (bool, error)

	Close() error
}
