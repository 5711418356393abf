package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdered_ReferentsFirst(t *testing.T) {
	ordered, err := Ordered(Registry())
	require.NoError(t, err)
	require.Len(t, ordered, len(Registry()))

	position := make(map[string]int, len(ordered))
	for i, s := range ordered {
		position[s.Name] = i
	}

	for _, s := range ordered {
		for _, dep := range s.DependsOn {
			assert.Less(t, position[dep], position[s.Name],
				"shape %s must sync after its referent %s", s.Name, dep)
		}
	}
}

func TestOrdered_DeclarationOrderIsStable(t *testing.T) {
	// Shapes with no dependencies keep their relative order.
	shapes := []Shape{
		{Name: "b"},
		{Name: "a"},
		{Name: "c", DependsOn: []string{"a"}},
	}

	ordered, err := Ordered(shapes)
	require.NoError(t, err)
	assert.Equal(t, "b", ordered[0].Name)
	assert.Equal(t, "a", ordered[1].Name)
	assert.Equal(t, "c", ordered[2].Name)
}

func TestOrdered_CycleDetected(t *testing.T) {
	shapes := []Shape{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}

	_, err := Ordered(shapes)
	assert.Error(t, err)
}

func TestRegistry_Policies(t *testing.T) {
	shapes := Registry()

	todos, ok := ByName(shapes, "todos")
	require.True(t, ok)
	assert.True(t, todos.LocalOrigin)
	require.NotNil(t, todos.SoftDelete)
	assert.Equal(t, "archived", todos.SoftDelete.Column)

	lists, ok := ByName(shapes, "lists")
	require.True(t, ok)
	assert.False(t, lists.LocalOrigin)
	assert.Nil(t, lists.SoftDelete)
}

func TestShape_ForeignKeys(t *testing.T) {
	todos, _ := ByName(Registry(), "todos")

	var names []string
	for _, fk := range todos.ForeignKeys() {
		names = append(names, fk.Name)
	}
	assert.Equal(t, []string{"list_id", "goal_id"}, names)
}
