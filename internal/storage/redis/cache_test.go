package redis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	a := cacheKey("http://api.test/api/books/books/?page=1")
	b := cacheKey("http://api.test/api/books/books/?page=2")

	assert.True(t, strings.HasPrefix(a, keyPrefix))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cacheKey("http://api.test/api/books/books/?page=1"))
	assert.LessOrEqual(t, len(a), len(keyPrefix)+16)
}
