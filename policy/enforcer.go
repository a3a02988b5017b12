// policy/enforcer.go
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"modguard/config"
	"modguard/store"
)

// enforcerSettings is a snapshot of the hot-reloadable enforcement settings.
type enforcerSettings struct {
	logChannel  string
	warnMessage string
	dmMessage   string
	kickReason  string
}

// Enforcer performs the per-severity sequence of platform actions for a
// matched rule. Every platform call catches and logs its own failure; nothing
// an Enforcer does can abort message processing.
type Enforcer struct {
	mu       sync.RWMutex
	platform Platform
	settings *enforcerSettings
	dryRun   bool
}

func NewEnforcer(platform Platform, cfg *config.ModerationConfig, dryRun bool) *Enforcer {
	return &Enforcer{
		platform: platform,
		settings: settingsFromConfig(cfg),
		dryRun:   dryRun,
	}
}

func settingsFromConfig(cfg *config.ModerationConfig) *enforcerSettings {
	return &enforcerSettings{
		logChannel:  cfg.LogChannel,
		warnMessage: cfg.WarnMessage,
		dmMessage:   cfg.DMMessage,
		kickReason:  cfg.KickReason,
	}
}

func (e *Enforcer) Name() string { return "Enforcer" }

// UpdateConfig implements the config.Updatable interface for hot-reloading.
func (e *Enforcer) UpdateConfig(cfg *config.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = settingsFromConfig(&cfg.Moderation)
	return nil
}

func (e *Enforcer) currentSettings() *enforcerSettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// enforcementSequences is the dispatch table keyed by severity. It is
// exhaustive over the enum; adding a severity without a sequence here is a
// programming error caught by Enforce.
var enforcementSequences = map[store.Severity]func(*Enforcer, context.Context, *Message, store.Rule){
	store.SeveritySilentDelete:  (*Enforcer).silentDelete,
	store.SeverityWarnAndDelete: (*Enforcer).warnAndDelete,
	store.SeverityKickAndDelete: (*Enforcer).kickAndDelete,
}

// Enforce runs the action sequence for the rule's severity.
func (e *Enforcer) Enforce(ctx context.Context, msg *Message, rule store.Rule) {
	sequence, ok := enforcementSequences[rule.Severity]
	if !ok {
		slog.Error("No enforcement sequence for severity, skipping",
			"severity", int(rule.Severity), "rule_id", rule.ID, "message_id", msg.ID)
		return
	}

	if e.dryRun {
		slog.Info("Dry-run: enforcement skipped",
			"severity", rule.Severity.String(), "rule_id", rule.ID,
			"message_id", msg.ID, "author", msg.AuthorName)
		return
	}

	sequence(e, ctx, msg, rule)
}

// deleteMessage removes the offending message. A failed removal (the message
// may already be gone) is logged and tolerated.
func (e *Enforcer) deleteMessage(ctx context.Context, msg *Message) {
	if err := e.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		slog.Warn("Failed to delete message",
			"message_id", msg.ID, "channel_id", msg.ChannelID, "error", err)
	}
}

func (e *Enforcer) silentDelete(ctx context.Context, msg *Message, rule store.Rule) {
	e.deleteMessage(ctx, msg)
	e.notifyModLog(ctx, msg.GuildID,
		fmt.Sprintf("Message from %s deleted silently (rule #%d)", msg.AuthorName, rule.ID))
}

func (e *Enforcer) warnAndDelete(ctx context.Context, msg *Message, rule store.Rule) {
	settings := e.currentSettings()

	e.deleteMessage(ctx, msg)

	warning := fmt.Sprintf("<@%s>, %s", msg.AuthorID, settings.warnMessage)
	if err := e.platform.SendMessage(ctx, msg.ChannelID, warning); err != nil {
		slog.Warn("Failed to post public warning",
			"message_id", msg.ID, "channel_id", msg.ChannelID, "error", err)
	}

	e.notifyModLog(ctx, msg.GuildID,
		fmt.Sprintf("Message from %s deleted and author warned (rule #%d)", msg.AuthorName, rule.ID))
}

func (e *Enforcer) kickAndDelete(ctx context.Context, msg *Message, rule store.Rule) {
	settings := e.currentSettings()

	e.deleteMessage(ctx, msg)

	member, err := e.platform.ResolveMember(ctx, msg.GuildID, msg.AuthorID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			e.notifyModLog(ctx, msg.GuildID,
				fmt.Sprintf("User %s not found, no kick attempted (rule #%d)", msg.AuthorName, rule.ID))
		} else {
			slog.Error("Failed to resolve member for kick",
				"author_id", msg.AuthorID, "guild_id", msg.GuildID, "error", err)
		}
		return
	}

	// Best-effort: a blocked DM must not spare the author the kick.
	dm := fmt.Sprintf("%s %q", settings.dmMessage, msg.Content)
	if err := e.platform.DirectMessage(ctx, member.ID, dm); err != nil {
		slog.Warn("Failed to DM author before kick", "author_id", member.ID, "error", err)
	}

	if err := e.platform.KickMember(ctx, msg.GuildID, member.ID, settings.kickReason); err != nil {
		slog.Error("Failed to kick member",
			"author_id", member.ID, "guild_id", msg.GuildID, "error", err)
		e.notifyModLog(ctx, msg.GuildID,
			fmt.Sprintf("Failed to kick %s (rule #%d)", msg.AuthorName, rule.ID))
		return
	}

	e.notifyModLog(ctx, msg.GuildID,
		fmt.Sprintf("Message from %s deleted and author kicked (rule #%d)", msg.AuthorName, rule.ID))
}

// notifyModLog posts to the guild's moderation-log channel. Best-effort: a
// guild without the channel is skipped silently, failures are not retried.
func (e *Enforcer) notifyModLog(ctx context.Context, guildID, text string) {
	settings := e.currentSettings()
	if settings.logChannel == "" {
		return
	}
	channelID, ok := e.platform.FindChannelByName(ctx, guildID, settings.logChannel)
	if !ok {
		return
	}
	if err := e.platform.SendMessage(ctx, channelID, text); err != nil {
		slog.Warn("Failed to notify moderation log",
			"guild_id", guildID, "channel_id", channelID, "error", err)
	}
}
