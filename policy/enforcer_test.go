// policy/enforcer_test.go
package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"modguard/config"
	"modguard/policy"
	"modguard/store"
	"modguard/testutils"
)

const modLogChannelID = "modlog-chan"

func testModerationConfig() *config.ModerationConfig {
	return &config.ModerationConfig{
		LogChannel:  "moderator-log",
		AdminRoles:  []string{"Admin", "Moderator"},
		WarnMessage: "your message was deleted due to a violation of the server rules.",
		DMMessage:   "You have been kicked from the server for violating its rules. Offending message:",
		KickReason:  "Violated server rules.",
	}
}

func newTestEnforcer(t *testing.T, dryRun bool) (*policy.Enforcer, *testutils.MockPlatform) {
	t.Helper()
	platform := testutils.NewMockPlatform()
	platform.AddChannel(testutils.TestGuildID, "moderator-log", modLogChannelID)
	return policy.NewEnforcer(platform, testModerationConfig(), dryRun), platform
}

func TestEnforcer_SeverityDispatch(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name          string
		severity      store.Severity
		memberPresent bool
		wantDeletes   int
		wantReplies   int // public messages in the originating channel
		wantLogNotes  int
		wantDMs       int
		wantKicks     int
		wantResolves  int
	}{
		{
			name:         "silent delete: one delete, one log note, no reply",
			severity:     store.SeveritySilentDelete,
			wantDeletes:  1,
			wantLogNotes: 1,
		},
		{
			name:         "warn: one delete, one public reply, one log note",
			severity:     store.SeverityWarnAndDelete,
			wantDeletes:  1,
			wantReplies:  1,
			wantLogNotes: 1,
		},
		{
			name:          "kick: one delete, one resolution, one DM, one kick, one log note",
			severity:      store.SeverityKickAndDelete,
			memberPresent: true,
			wantDeletes:   1,
			wantLogNotes:  1,
			wantDMs:       1,
			wantKicks:     1,
			wantResolves:  1,
		},
		{
			name:         "kick with unresolvable member: no DM, no kick",
			severity:     store.SeverityKickAndDelete,
			wantDeletes:  1,
			wantLogNotes: 1,
			wantResolves: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			enforcer, platform := newTestEnforcer(t, false)
			msg := testutils.MakeMessage("author-1", "this has badword in it")
			if tc.memberPresent {
				platform.AddMember(msg.AuthorID, msg.AuthorName)
			}

			enforcer.Enforce(ctx, msg, store.Rule{ID: 7, Pattern: "badword", Severity: tc.severity})

			require.Len(t, platform.Deleted, tc.wantDeletes)
			require.Len(t, platform.SentTo(msg.ChannelID), tc.wantReplies)
			require.Len(t, platform.SentTo(modLogChannelID), tc.wantLogNotes)
			require.Len(t, platform.DMs, tc.wantDMs)
			require.Len(t, platform.Kicks, tc.wantKicks)
			require.Equal(t, tc.wantResolves, platform.ResolveCalls)
		})
	}
}

func TestEnforcer_WarnMentionsAuthor(t *testing.T) {
	enforcer, platform := newTestEnforcer(t, false)
	msg := testutils.MakeMessage("author-1", "badword")

	enforcer.Enforce(context.Background(), msg, store.Rule{ID: 1, Pattern: "badword", Severity: store.SeverityWarnAndDelete})

	replies := platform.SentTo(msg.ChannelID)
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "<@author-1>")
}

func TestEnforcer_DeleteFailureIsTolerated(t *testing.T) {
	enforcer, platform := newTestEnforcer(t, false)
	platform.DeleteErr = errors.New("message already gone")
	msg := testutils.MakeMessage("author-1", "badword")

	// The rest of the sequence must still run.
	enforcer.Enforce(context.Background(), msg, store.Rule{ID: 1, Pattern: "badword", Severity: store.SeverityWarnAndDelete})

	require.Len(t, platform.SentTo(msg.ChannelID), 1)
	require.Len(t, platform.SentTo(modLogChannelID), 1)
}

func TestEnforcer_DMFailureDoesNotSpareTheKick(t *testing.T) {
	enforcer, platform := newTestEnforcer(t, false)
	msg := testutils.MakeMessage("author-1", "badword")
	platform.AddMember(msg.AuthorID, msg.AuthorName)
	platform.DMErr = errors.New("DMs blocked by recipient")

	enforcer.Enforce(context.Background(), msg, store.Rule{ID: 1, Pattern: "badword", Severity: store.SeverityKickAndDelete})

	require.Empty(t, platform.DMs)
	require.Len(t, platform.Kicks, 1)
}

func TestEnforcer_KickFailureIsCaught(t *testing.T) {
	enforcer, platform := newTestEnforcer(t, false)
	msg := testutils.MakeMessage("author-1", "badword")
	platform.AddMember(msg.AuthorID, msg.AuthorName)
	platform.KickErr = errors.New("missing permissions")

	// Must not panic or propagate; the failure lands in the mod log.
	enforcer.Enforce(context.Background(), msg, store.Rule{ID: 1, Pattern: "badword", Severity: store.SeverityKickAndDelete})

	require.Empty(t, platform.Kicks)
	logNotes := platform.SentTo(modLogChannelID)
	require.Len(t, logNotes, 1)
	require.Contains(t, logNotes[0].Text, "Failed to kick")
}

func TestEnforcer_MissingLogChannelIsSkippedSilently(t *testing.T) {
	platform := testutils.NewMockPlatform() // no moderator-log channel registered
	enforcer := policy.NewEnforcer(platform, testModerationConfig(), false)
	msg := testutils.MakeMessage("author-1", "badword")

	enforcer.Enforce(context.Background(), msg, store.Rule{ID: 1, Pattern: "badword", Severity: store.SeveritySilentDelete})

	require.Len(t, platform.Deleted, 1)
	require.Empty(t, platform.Sent)
}

func TestEnforcer_DryRunTakesNoAction(t *testing.T) {
	enforcer, platform := newTestEnforcer(t, true)
	msg := testutils.MakeMessage("author-1", "badword")
	platform.AddMember(msg.AuthorID, msg.AuthorName)

	enforcer.Enforce(context.Background(), msg, store.Rule{ID: 1, Pattern: "badword", Severity: store.SeverityKickAndDelete})

	require.Empty(t, platform.Deleted)
	require.Empty(t, platform.Sent)
	require.Empty(t, platform.DMs)
	require.Empty(t, platform.Kicks)
}

func TestEnforcer_UpdateConfig(t *testing.T) {
	enforcer, platform := newTestEnforcer(t, false)

	newCfg := &config.Config{Moderation: *testModerationConfig()}
	newCfg.Moderation.WarnMessage = "please read the updated rules."
	require.NoError(t, enforcer.UpdateConfig(newCfg))

	msg := testutils.MakeMessage("author-1", "badword")
	enforcer.Enforce(context.Background(), msg, store.Rule{ID: 1, Pattern: "badword", Severity: store.SeverityWarnAndDelete})

	replies := platform.SentTo(msg.ChannelID)
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, "please read the updated rules.")
}
