package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "Hello_World", SanitizeTitle("Hello, World!", 60))
	assert.Equal(t, "a_b-c", SanitizeTitle("a b-c", 60))
	assert.Equal(t, "abcde", SanitizeTitle("abcdefgh", 5))
	assert.Equal(t, "", SanitizeTitle("!!!", 60))
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "abc123", SanitizeID("abc123"))
	assert.Equal(t, "a_b_c", SanitizeID("a/b\\c"))
}
