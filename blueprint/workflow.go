// Package blueprint implements the product blueprint graph model together
// with the version diff engine and the export engine. Everything in this
// package is a pure in-memory transformation: no I/O, no goroutines, no
// retries. Persistence and AI generation live in their own packages and only
// exchange snapshots with this one.
package blueprint

import (
	"github.com/pkg/errors"
)

// PriorityLevel is the importance tier of a blueprint node.
type PriorityLevel string

const (
	// PriorityP0 marks must-have MVP features.
	PriorityP0 PriorityLevel = "P0"
	// PriorityP1 marks important features.
	PriorityP1 PriorityLevel = "P1"
	// PriorityP2 marks enhancement features.
	PriorityP2 PriorityLevel = "P2"
	// PriorityP3 marks future features. Nodes without an explicit priority
	// are treated as P3.
	PriorityP3 PriorityLevel = "P3"
)

// Connection is a directed link from one output slot of a source node to the
// input of a target node. Connections are stored keyed by source node id,
// grouped into output slots, so a single node can have several independent
// outputs each fanning out to multiple targets.
type Connection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// NodeOutputs holds all output slots of one source node.
type NodeOutputs struct {
	Main [][]Connection `json:"main"`
}

// Node is one step of a workflow graph. Parameters and credentials are opaque
// to this package: their vocabulary is owned by the external execution tool,
// so they are carried as dynamic JSON values and only ever compared
// structurally.
type Node struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Position    [2]float64     `json:"position"`
	Parameters  map[string]any `json:"parameters"`
	Credentials map[string]any `json:"credentials,omitempty"`
}

// Workflow is the execution-tool view of a graph: nodes, connections keyed by
// source node id, and passthrough settings.
type Workflow struct {
	Nodes       []Node                 `json:"nodes"`
	Connections map[string]NodeOutputs `json:"connections"`
	Settings    map[string]any         `json:"settings,omitempty"`
}

// BlueprintNode extends Node with product-planning metadata.
type BlueprintNode struct {
	Node

	Priority       PriorityLevel `json:"priority,omitempty"`
	GroupID        string        `json:"groupId,omitempty"`
	UserStoryIDs   []string      `json:"userStoryIds,omitempty"`
	TechnicalNotes string        `json:"technicalNotes,omitempty"`
}

// EffectivePriority returns the node priority, defaulting to P3 when absent.
func (n *BlueprintNode) EffectivePriority() PriorityLevel {
	if n.Priority == "" {
		return PriorityP3
	}
	return n.Priority
}

// NodeGroup is a named collection of node ids. Color is display-only.
type NodeGroup struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"`
	Color       string   `json:"color,omitempty"`
	NodeIDs     []string `json:"nodeIds,omitempty"`
}

// StickyNote is a free-form annotation on the canvas. Sticky notes never
// participate in connections or diffing.
type StickyNote struct {
	ID       string     `json:"id"`
	Content  string     `json:"content"`
	Color    string     `json:"color,omitempty"`
	Position [2]float64 `json:"position,omitempty"`
}

// Blueprint is the full product blueprint: a workflow whose nodes carry
// planning metadata, plus groups, sticky notes and optional sub-workflows.
type Blueprint struct {
	Nodes        []BlueprintNode        `json:"nodes"`
	Connections  map[string]NodeOutputs `json:"connections"`
	Settings     map[string]any         `json:"settings,omitempty"`
	Groups       []NodeGroup            `json:"groups,omitempty"`
	StickyNotes  []StickyNote           `json:"stickyNotes,omitempty"`
	SubWorkflows []Workflow             `json:"subWorkflows,omitempty"`
}

// ToWorkflow projects the blueprint onto the plain workflow model, dropping
// all planning metadata. Connections and settings are shared, not copied.
func (bp *Blueprint) ToWorkflow() *Workflow {
	nodes := make([]Node, len(bp.Nodes))
	for i, n := range bp.Nodes {
		nodes[i] = n.Node
	}
	return &Workflow{
		Nodes:       nodes,
		Connections: bp.Connections,
		Settings:    bp.Settings,
	}
}

// Validate checks the workflow invariants: every node has an id and ids are
// unique within the snapshot. Edge targets are deliberately not validated
// here; the diff engine tolerates dangling references and the export engine
// prunes them.
func (w *Workflow) Validate() error {
	seen := make(map[string]struct{}, len(w.Nodes))
	for i := range w.Nodes {
		if err := checkNodeID(w.Nodes[i].ID, seen); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the blueprint invariants, see Workflow.Validate.
func (bp *Blueprint) Validate() error {
	seen := make(map[string]struct{}, len(bp.Nodes))
	for i := range bp.Nodes {
		if err := checkNodeID(bp.Nodes[i].ID, seen); err != nil {
			return err
		}
	}
	return nil
}

func checkNodeID(id string, seen map[string]struct{}) error {
	if id == "" {
		return errors.New("node is missing an id")
	}
	if _, ok := seen[id]; ok {
		return errors.Errorf("duplicate node id: %s", id)
	}
	seen[id] = struct{}{}
	return nil
}
