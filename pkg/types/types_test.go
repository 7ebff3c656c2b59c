package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryValid(t *testing.T) {
	for _, c := range AllCategories() {
		assert.True(t, c.Valid(), "category %d", c)
	}
	assert.False(t, Category(0).Valid())
	assert.False(t, Category(8).Valid())
}

func TestCategoryTable(t *testing.T) {
	table := DefaultCategoryTable()
	assert.Equal(t, "Phone Usage", table.Name(CategoryPhone))
	assert.Equal(t, "Other", table.Name(CategoryOther))
	assert.Equal(t, "Unknown", table.Name(Category(9)))
	assert.Len(t, table.Map(), CategoryCount)
}

func TestNewCategoryTableRejectsBadInput(t *testing.T) {
	_, err := NewCategoryTable([]string{"a", "b"})
	require.Error(t, err)

	_, err = NewCategoryTable([]string{"a", "b", "", "d", "e", "f", "g"})
	require.Error(t, err)

	table, err := NewCategoryTable([]string{"P", "W", "PW", "S", "E", "D", "O"})
	require.NoError(t, err)
	assert.Equal(t, "PW", table.Name(CategoryPhoneAndWork))
}
