// policy/evaluator.go
package policy

import (
	"context"
	"log/slog"
	"runtime/debug"

	"modguard/matcher"
	"modguard/store"
)

// Evaluator decides, for one incoming message, whether and how to enforce.
// Rules and the trusted set are re-read from the store on every message, so
// an admin mutation takes effect on the very next message. Only compiled
// matchers are memoized, keyed by pattern text.
type Evaluator struct {
	store    store.Store
	enforcer *Enforcer
	matchers *matcher.Cache
}

func NewEvaluator(s store.Store, enforcer *Enforcer, matcherCacheSize int) (*Evaluator, error) {
	matchers, err := matcher.NewCache(matcherCacheSize)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		store:    s,
		enforcer: enforcer,
		matchers: matchers,
	}, nil
}

// HandleMessage evaluates one message and dispatches enforcement on the first
// matching rule. It never returns an error and never panics outward: message
// processing must survive anything a single message can throw at it.
func (e *Evaluator) HandleMessage(ctx context.Context, msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered in message evaluation",
				"panic", r, "message_id", msg.ID, "author_id", msg.AuthorID,
				"stack", string(debug.Stack()))
		}
	}()

	// Bot-authored messages are never evaluated. This also covers the
	// engine's own warnings and log notifications, preventing feedback loops.
	if msg.AuthorIsBot {
		return
	}

	trusted, err := e.store.IsTrusted(ctx, msg.AuthorID)
	if err != nil {
		// Fail-open: a store hiccup must not turn into wrongful enforcement.
		slog.Error("Failed to check trusted status, skipping message",
			"author_id", msg.AuthorID, "message_id", msg.ID, "error", err)
		return
	}
	if trusted {
		slog.Debug("Author is trusted, skipping evaluation",
			"author_id", msg.AuthorID, "message_id", msg.ID)
		return
	}

	rules, err := e.store.ListRules(ctx)
	if err != nil {
		// Fail-open here as well: treated as "no rules matched".
		slog.Error("Failed to fetch rules, skipping message",
			"message_id", msg.ID, "error", err)
		return
	}

	// First-match-wins, in ascending-identifier order. One message triggers
	// at most one enforcement sequence.
	for _, rule := range rules {
		m, err := e.matchers.Get(rule.Pattern)
		if err != nil {
			// Patterns are validated at creation time; a compile failure
			// here means a corrupt record. Skip the rule, not the message.
			slog.Error("Stored rule pattern no longer compiles, skipping rule",
				"rule_id", rule.ID, "pattern", rule.Pattern, "error", err)
			continue
		}
		if m.Matches(msg.Content) {
			slog.Info("Message matched content rule",
				"rule_id", rule.ID, "severity", rule.Severity.String(),
				"message_id", msg.ID, "author_id", msg.AuthorID)
			e.enforcer.Enforce(ctx, msg, rule)
			return
		}
	}
}
