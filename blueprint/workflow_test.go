package blueprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowValidate(t *testing.T) {
	w := simpleWorkflow([]string{"n1", "n2"}, nil)
	require.NoError(t, w.Validate())

	w.Nodes[1].ID = "n1"
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")

	w.Nodes[1].ID = ""
	err = w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing an id")
}

func TestBlueprintValidate(t *testing.T) {
	bp := sampleBlueprint()
	require.NoError(t, bp.Validate())

	bp.Nodes[2].ID = "n1"
	assert.Error(t, bp.Validate())
}

func TestEffectivePriority(t *testing.T) {
	n := &BlueprintNode{}
	assert.Equal(t, PriorityP3, n.EffectivePriority())

	n.Priority = PriorityP0
	assert.Equal(t, PriorityP0, n.EffectivePriority())
}

func TestBlueprintToWorkflow(t *testing.T) {
	bp := sampleBlueprint()
	w := bp.ToWorkflow()

	require.Len(t, w.Nodes, len(bp.Nodes))
	for i := range w.Nodes {
		assert.Equal(t, bp.Nodes[i].Node, w.Nodes[i])
	}
	assert.Equal(t, bp.Connections, w.Connections)
	assert.Equal(t, bp.Settings, w.Settings)
}
