// admin/handler.go
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"modguard/config"
	"modguard/store"
)

// Responses that don't depend on command arguments.
const (
	ResponsePermissionDenied = "You do not have permission to use this command."
	ResponseNoRules          = "No rules found."
	ResponseStoreFailure     = "Command failed, the rule store is unavailable. Try again later."
)

// Handler translates operator commands into Rule Store mutations. Every
// method returns a single user-visible text response; store faults never
// escape as errors.
type Handler struct {
	mu    sync.RWMutex
	store store.Store
	roles []string
}

func NewHandler(s store.Store, cfg *config.ModerationConfig) *Handler {
	return &Handler{
		store: s,
		roles: append([]string(nil), cfg.AdminRoles...),
	}
}

func (h *Handler) Name() string { return "AdminHandler" }

// UpdateConfig implements the config.Updatable interface for hot-reloading
// the privileged role list.
func (h *Handler) UpdateConfig(cfg *config.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roles = append([]string(nil), cfg.Moderation.AdminRoles...)
	return nil
}

// Authorized reports whether an invoker holding the given role names may run
// admin commands.
func (h *Handler) Authorized(roleNames []string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, held := range roleNames {
		for _, allowed := range h.roles {
			if held == allowed {
				return true
			}
		}
	}
	return false
}

// AddRule validates the severity before delegating to the store, so an
// invalid level is rejected without persisting anything.
func (h *Handler) AddRule(ctx context.Context, pattern string, severity int) string {
	if !store.Severity(severity).Valid() {
		return "Invalid severity level. Use 1 (silent delete), 2 (warn), or 3 (kick)."
	}

	rule, err := h.store.CreateRule(ctx, pattern, store.Severity(severity))
	if err != nil {
		if errors.Is(err, store.ErrInvalidPattern) {
			return fmt.Sprintf("Invalid pattern `%s`: it does not compile as a regular expression.", pattern)
		}
		slog.Error("Failed to create rule", "pattern", pattern, "severity", severity, "error", err)
		return ResponseStoreFailure
	}

	return fmt.Sprintf("Added rule #%d with pattern `%s`, severity level: %d (%s).",
		rule.ID, rule.Pattern, int(rule.Severity), rule.Severity)
}

// ListRules renders all rules, one per line, in matching order.
func (h *Handler) ListRules(ctx context.Context) string {
	rules, err := h.store.ListRules(ctx)
	if err != nil {
		slog.Error("Failed to list rules", "error", err)
		return ResponseStoreFailure
	}
	if len(rules) == 0 {
		return ResponseNoRules
	}

	lines := make([]string, 0, len(rules))
	for _, rule := range rules {
		lines = append(lines, fmt.Sprintf("ID: %d | Pattern: `%s` | Severity: %d",
			rule.ID, rule.Pattern, int(rule.Severity)))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) DeleteRule(ctx context.Context, id int) string {
	err := h.store.DeleteRule(ctx, id)
	if errors.Is(err, store.ErrRuleNotFound) {
		return fmt.Sprintf("No rule found with ID %d.", id)
	}
	if err != nil {
		slog.Error("Failed to delete rule", "id", id, "error", err)
		return ResponseStoreFailure
	}
	return fmt.Sprintf("Deleted rule with ID: %d.", id)
}

// AddTrusted exempts a user from all rule checks. Already-trusted is a
// distinct reported outcome, not an error.
func (h *Handler) AddTrusted(ctx context.Context, userID, displayName string) string {
	added, err := h.store.AddTrusted(ctx, userID)
	if err != nil {
		slog.Error("Failed to add trusted sender", "user_id", userID, "error", err)
		return ResponseStoreFailure
	}
	if !added {
		return fmt.Sprintf("%s is already trusted.", displayName)
	}
	return fmt.Sprintf("%s is now trusted and exempt from content rules.", displayName)
}

func (h *Handler) RemoveTrusted(ctx context.Context, userID, displayName string) string {
	removed, err := h.store.RemoveTrusted(ctx, userID)
	if err != nil {
		slog.Error("Failed to remove trusted sender", "user_id", userID, "error", err)
		return ResponseStoreFailure
	}
	if !removed {
		return fmt.Sprintf("%s is not trusted.", displayName)
	}
	return fmt.Sprintf("%s is no longer trusted and will be subject to content rules.", displayName)
}
