// admin/handler_test.go
package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"modguard/config"
	"modguard/testutils"
)

func newTestHandler() (*Handler, *testutils.InMemoryStore) {
	db := testutils.NewInMemoryStore()
	cfg := &config.ModerationConfig{AdminRoles: []string{"Admin", "Moderator"}}
	return NewHandler(db, cfg), db
}

func TestHandler_Authorized(t *testing.T) {
	h, _ := newTestHandler()

	testCases := []struct {
		name  string
		roles []string
		want  bool
	}{
		{"admin role", []string{"Admin"}, true},
		{"moderator role", []string{"Moderator"}, true},
		{"privileged among others", []string{"Member", "Moderator"}, true},
		{"no privileged role", []string{"Member", "Booster"}, false},
		{"no roles at all", nil, false},
		{"case matters", []string{"admin"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, h.Authorized(tc.roles))
		})
	}
}

func TestHandler_AddRule(t *testing.T) {
	ctx := context.Background()

	t.Run("should confirm creation with the assigned identifier", func(t *testing.T) {
		h, db := newTestHandler()
		response := h.AddRule(ctx, "spam.*link", 1)
		require.Contains(t, response, "#1")
		require.Contains(t, response, "spam.*link")

		rules, err := db.ListRules(ctx)
		require.NoError(t, err)
		require.Len(t, rules, 1)

		// The add-rule / list-rules scenario: the new rule shows up in the list.
		require.Contains(t, h.ListRules(ctx), "spam.*link")
	})

	t.Run("should reject invalid severity without persisting", func(t *testing.T) {
		h, db := newTestHandler()
		response := h.AddRule(ctx, "badword", 5)
		require.Contains(t, response, "Invalid severity")

		rules, err := db.ListRules(ctx)
		require.NoError(t, err)
		require.Empty(t, rules)
	})

	t.Run("should reject a non-compiling pattern", func(t *testing.T) {
		h, db := newTestHandler()
		response := h.AddRule(ctx, `[`, 1)
		require.Contains(t, response, "Invalid pattern")

		rules, err := db.ListRules(ctx)
		require.NoError(t, err)
		require.Empty(t, rules)
	})

	t.Run("should report store failure", func(t *testing.T) {
		h, db := newTestHandler()
		db.SetError(errors.New("db down"))
		require.Equal(t, ResponseStoreFailure, h.AddRule(ctx, "badword", 1))
	})
}

func TestHandler_ListRules(t *testing.T) {
	ctx := context.Background()

	t.Run("should report an empty rule set explicitly", func(t *testing.T) {
		h, _ := newTestHandler()
		require.Equal(t, ResponseNoRules, h.ListRules(ctx))
	})

	t.Run("should render one line per rule in matching order", func(t *testing.T) {
		h, _ := newTestHandler()
		h.AddRule(ctx, "first", 1)
		h.AddRule(ctx, "second", 2)

		response := h.ListRules(ctx)
		require.Contains(t, response, "ID: 1 | Pattern: `first` | Severity: 1")
		require.Contains(t, response, "ID: 2 | Pattern: `second` | Severity: 2")
	})
}

func TestHandler_DeleteRule(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandler()

	require.Contains(t, h.DeleteRule(ctx, 42), "No rule found with ID 42")

	h.AddRule(ctx, "badword", 1)
	require.Contains(t, h.DeleteRule(ctx, 1), "Deleted rule with ID: 1")
	require.Equal(t, ResponseNoRules, h.ListRules(ctx))
}

func TestHandler_Trusted(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandler()
	const userID = "123456789012345678"

	require.Contains(t, h.RemoveTrusted(ctx, userID, "alice"), "alice is not trusted.")
	require.Contains(t, h.AddTrusted(ctx, userID, "alice"), "alice is now trusted")
	require.Contains(t, h.AddTrusted(ctx, userID, "alice"), "alice is already trusted.")
	require.Contains(t, h.RemoveTrusted(ctx, userID, "alice"), "alice is no longer trusted")
	require.Contains(t, h.RemoveTrusted(ctx, userID, "alice"), "alice is not trusted.")
}

func TestHandler_UpdateConfig(t *testing.T) {
	h, _ := newTestHandler()
	require.True(t, h.Authorized([]string{"Moderator"}))

	newCfg := &config.Config{
		Moderation: config.ModerationConfig{AdminRoles: []string{"Staff"}},
	}
	require.NoError(t, h.UpdateConfig(newCfg))

	require.False(t, h.Authorized([]string{"Moderator"}))
	require.True(t, h.Authorized([]string{"Staff"}))
}
