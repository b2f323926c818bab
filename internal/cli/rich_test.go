package cli

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	t.Run("short strings pass through", func(t *testing.T) {
		assert.Equal(t, "hello", truncate("hello", 10))
		assert.Equal(t, "hello", truncate("hello", 5))
		assert.Equal(t, "", truncate("", 3))
	})

	t.Run("counts runes, not bytes", func(t *testing.T) {
		got := truncate("日本語のテキスト", 3)
		assert.Equal(t, "日本語", got)
		assert.True(t, utf8.ValidString(got))
	})

	t.Run("never splits a multi-byte rune", func(t *testing.T) {
		got := truncate("héllo wörld", 2)
		assert.Equal(t, "hé", got)
		assert.True(t, utf8.ValidString(got))
	})
}
