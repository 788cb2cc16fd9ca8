package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDeterministic(t *testing.T) {
	a, err := Resolve("甲科技股份有限公司")
	require.NoError(t, err)
	b, err := Resolve("甲科技股份有限公司")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestResolveTrimsWhitespace(t *testing.T) {
	a, _ := Resolve("  乙科技有限公司  ")
	b, _ := Resolve("乙科技有限公司")
	assert.Equal(t, a, b)
}

func TestResolveDistinctNames(t *testing.T) {
	a, _ := Resolve("甲科技股份有限公司")
	b, _ := Resolve("乙科技有限公司")
	assert.NotEqual(t, a, b)
}

func TestResolveRejectsEmptyAndPlaceholders(t *testing.T) {
	for _, name := range []string{"", "   ", "-", "--", "无", "不适用", "None", "null", "N/A"} {
		_, err := Resolve(name)
		assert.ErrorIs(t, err, ErrEmptyName, "Resolve(%q)", name)
	}
}
