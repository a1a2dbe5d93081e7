package idempotency

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Key("Tim", "hello"), Key("Tim", "hello"))
	})

	t.Run("lowercase hex of a 256-bit digest", func(t *testing.T) {
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), Key("Tim", "hello"))
	})

	t.Run("boundary shifts between name and message produce distinct keys", func(t *testing.T) {
		// A bare concatenation would make these two pairs collide.
		assert.NotEqual(t, Key("Tim", "abc"), Key("Ti", "mabc"))
	})

	t.Run("distinct messages produce distinct keys", func(t *testing.T) {
		assert.NotEqual(t, Key("Tim", "issue one"), Key("Tim", "issue two"))
	})

	t.Run("distinct recipients produce distinct keys", func(t *testing.T) {
		assert.NotEqual(t, Key("Tim", "issue one"), Key("Tom", "issue one"))
	})
}
