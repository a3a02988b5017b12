// discord/bot.go
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"modguard/admin"
	"modguard/policy"
)

// Bot owns the gateway session and routes its two event streams: guild
// messages into the evaluator and slash-command interactions into the admin
// handler.
type Bot struct {
	session   *discordgo.Session
	evaluator *policy.Evaluator
	admin     *admin.Handler
	guildID   string
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "addrule",
		Description: "Add a new content rule",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "pattern",
				Description: "The regex pattern (matched case-insensitively)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "severity",
				Description: "1: Silent delete, 2: Warn, 3: Kick",
				Required:    true,
			},
		},
	},
	{
		Name:        "listrules",
		Description: "List all content rules",
	},
	{
		Name:        "deleterule",
		Description: "Delete a content rule",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "id",
				Description: "The ID of the rule",
				Required:    true,
			},
		},
	},
	{
		Name:        "addtrusted",
		Description: "Exempt a user from all content rules",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The user to trust",
				Required:    true,
			},
		},
	},
	{
		Name:        "removetrusted",
		Description: "Remove a user from the trusted list",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The user to remove",
				Required:    true,
			},
		},
	},
}

// NewBot wires handlers onto an unopened session. Events are dispatched
// synchronously so messages are evaluated one at a time in arrival order.
func NewBot(session *discordgo.Session, evaluator *policy.Evaluator, adminHandler *admin.Handler, guildID string) *Bot {
	b := &Bot{
		session:   session,
		evaluator: evaluator,
		admin:     adminHandler,
		guildID:   guildID,
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers
	session.SyncEvents = true

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)

	return b
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	<-ctx.Done()
	slog.Info("Closing gateway connection...")
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, b.guildID, commands); err != nil {
		slog.Error("Failed to register slash commands", "error", err)
		return
	}
	slog.Info("Bot is online", "user", r.User.Username, "guild_scope", b.guildID)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.GuildID == "" {
		return
	}
	msg := &policy.Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		AuthorIsBot: m.Author.Bot,
		Content:     m.Content,
	}
	b.evaluator.HandleMessage(context.Background(), msg)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()

	// Admin commands only make sense inside a guild, from a member whose
	// roles we can check.
	if i.Member == nil || !b.admin.Authorized(b.roleNames(i.GuildID, i.Member)) {
		b.respond(s, i, admin.ResponsePermissionDenied)
		return
	}

	data := i.ApplicationCommandData()
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}

	var response string
	switch data.Name {
	case "addrule":
		response = b.admin.AddRule(ctx, options["pattern"].StringValue(), int(options["severity"].IntValue()))
	case "listrules":
		response = b.admin.ListRules(ctx)
	case "deleterule":
		response = b.admin.DeleteRule(ctx, int(options["id"].IntValue()))
	case "addtrusted":
		user := options["user"].UserValue(s)
		response = b.admin.AddTrusted(ctx, user.ID, user.Username)
	case "removetrusted":
		user := options["user"].UserValue(s)
		response = b.admin.RemoveTrusted(ctx, user.ID, user.Username)
	default:
		slog.Warn("Unknown command interaction", "command", data.Name)
		return
	}

	b.respond(s, i, response)
}

// roleNames maps the invoker's role IDs to role names via session state,
// falling back to the REST API when the guild is not cached.
func (b *Bot) roleNames(guildID string, member *discordgo.Member) []string {
	var guildRoles []*discordgo.Role
	if guild, err := b.session.State.Guild(guildID); err == nil && len(guild.Roles) > 0 {
		guildRoles = guild.Roles
	} else {
		guildRoles, err = b.session.GuildRoles(guildID)
		if err != nil {
			slog.Error("Failed to fetch guild roles", "guild_id", guildID, "error", err)
			return nil
		}
	}

	byID := make(map[string]string, len(guildRoles))
	for _, role := range guildRoles {
		byID[role.ID] = role.Name
	}

	names := make([]string, 0, len(member.Roles))
	for _, id := range member.Roles {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("Failed to respond to interaction", "error", err)
	}
}
