// matcher/matcher_test.go
package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("should compile a valid pattern", func(t *testing.T) {
		m, err := Compile(`spam.*link`)
		require.NoError(t, err)
		require.NotNil(t, m)
	})

	t.Run("should fail on an invalid pattern", func(t *testing.T) {
		_, err := Compile(`[`)
		require.Error(t, err)
	})
}

func TestMatcher_Matches(t *testing.T) {
	testCases := []struct {
		name    string
		pattern string
		text    string
		want    bool
	}{
		{"simple substring", "badword", "this has badword in it", true},
		{"case-insensitive by default", "badword", "THIS HAS BADWORD IN IT", true},
		{"mixed case pattern", "BadWord", "some badword here", true},
		{"regex syntax", `spam.*link`, "SPAM with a LINK", true},
		{"no match", "badword", "a perfectly clean message", false},
		{"empty text", "badword", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Compile(tc.pattern)
			require.NoError(t, err)
			require.Equal(t, tc.want, m.Matches(tc.text))
		})
	}
}

func TestCache(t *testing.T) {
	c, err := NewCache(0) // falls back to the default size
	require.NoError(t, err)

	m1, err := c.Get("badword")
	require.NoError(t, err)

	// Second lookup must return the memoized matcher, not a fresh compile.
	m2, err := c.Get("badword")
	require.NoError(t, err)
	require.Same(t, m1, m2)

	_, err = c.Get(`[`)
	require.Error(t, err, "invalid patterns must not be cached as matchers")
}
