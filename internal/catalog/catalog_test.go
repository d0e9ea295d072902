package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLabels(t *testing.T) {
	c := Default()

	tests := []struct {
		id   int
		want string
	}{
		{1, "Food"},
		{2, "Water"},
		{3, "Washroom"},
		{4, "Help"},
		{5, "Entertainment"},
		{6, "Air Control"},
		{0, Unknown},
		{7, Unknown},
		{255, Unknown},
		{-1, Unknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.LabelFor(tt.id), "id %d", tt.id)
	}
}

func TestNew_LastLabelWinsAndBlankSkipped(t *testing.T) {
	c := New([]Option{
		{ID: 2, Label: "Water"},
		{ID: 1, Label: " Tea "},
		{ID: 2, Label: "Juice"},
		{ID: 9, Label: "   "},
	})

	assert.Equal(t, "Tea", c.LabelFor(1))
	assert.Equal(t, "Juice", c.LabelFor(2))
	assert.False(t, c.Contains(9))
	assert.Equal(t, Unknown, c.LabelFor(9))
	assert.Equal(t, []Option{{ID: 1, Label: "Tea"}, {ID: 2, Label: "Juice"}}, c.Options())
	assert.Equal(t, 2, c.Len())
}

func TestOptionsReturnsCopy(t *testing.T) {
	c := Default()
	opts := c.Options()
	opts[0].Label = "changed"

	assert.Equal(t, "Food", c.LabelFor(1))
	assert.Equal(t, "Food", c.Options()[0].Label)
}
