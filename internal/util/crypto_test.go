package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlackSignature(t *testing.T) {
	t.Run("is deterministic and v0 prefixed", func(t *testing.T) {
		a := SlackSignature("secret", "1700000000", `{"a":1}`)
		b := SlackSignature("secret", "1700000000", `{"a":1}`)
		assert.Equal(t, a, b)
		assert.True(t, strings.HasPrefix(a, "v0="))
	})

	t.Run("changes when any input changes", func(t *testing.T) {
		base := SlackSignature("secret", "1700000000", `{"a":1}`)
		assert.NotEqual(t, base, SlackSignature("secret2", "1700000000", `{"a":1}`))
		assert.NotEqual(t, base, SlackSignature("secret", "1700000001", `{"a":1}`))
		assert.NotEqual(t, base, SlackSignature("secret", "1700000000", `{"a":2}`))
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
}
