package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Run("first page", func(t *testing.T) {
		info := Build(Pagination{Page: 1, Limit: 10}, 23)
		assert.Equal(t, 3, info.Pages)
		assert.Nil(t, info.Prev)
		require.NotNil(t, info.Next)
		assert.Equal(t, 2, *info.Next)
	})

	t.Run("last page", func(t *testing.T) {
		info := Build(Pagination{Page: 3, Limit: 10}, 23)
		assert.Nil(t, info.Next)
		require.NotNil(t, info.Prev)
		assert.Equal(t, 2, *info.Prev)
	})

	t.Run("empty", func(t *testing.T) {
		info := Build(Pagination{}, 0)
		assert.Equal(t, 0, info.Pages)
		assert.Equal(t, DefaultPage, info.Page)
		assert.Equal(t, DefaultLimit, info.Limit)
		assert.Nil(t, info.Prev)
		assert.Nil(t, info.Next)
	})
}

func TestNormalize(t *testing.T) {
	p := Pagination{Page: -2, Limit: 1000}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 20, Pagination{Page: 3, Limit: 10}.Offset())
}
