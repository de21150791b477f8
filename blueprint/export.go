package blueprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
)

// Format selects the export encoding.
type Format string

const (
	// FormatN8n is the restricted execution-tool JSON: blueprint metadata is
	// stripped and the result imports directly into n8n.
	FormatN8n Format = "n8n"
	// FormatJSON is the full lossless blueprint dump.
	FormatJSON Format = "json"
	// FormatMarkdown is the human-readable blueprint document.
	FormatMarkdown Format = "markdown"
)

// ErrUnsupportedFormat is returned when the export format is not one of the
// declared constants. This is a programming error on the caller side, never
// a user-recoverable condition.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportConfig controls one export operation. IncludeNotes and IncludeGroups
// are opt-outs: when absent, the document renders every section its data
// supports.
type ExportConfig struct {
	Format         Format          `json:"format"`
	PriorityFilter []PriorityLevel `json:"priorityFilter,omitempty"`
	IncludeNotes   *bool           `json:"includeNotes,omitempty"`
	IncludeGroups  *bool           `json:"includeGroups,omitempty"`
}

func (c ExportConfig) notesIncluded() bool {
	return c.IncludeNotes == nil || *c.IncludeNotes
}

func (c ExportConfig) groupsIncluded() bool {
	return c.IncludeGroups == nil || *c.IncludeGroups
}

// Artifact is the result of an export: serialized content plus the file
// extension and MIME type the download layer should declare. Writing the file
// is the caller's concern.
type Artifact struct {
	Content  []byte `json:"content"`
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
}

// ExportPreview describes what an export would produce without running it.
type ExportPreview struct {
	NodeCount int    `json:"nodeCount"`
	Summary   string `json:"summary"`
}

// Export serializes the blueprint in the configured format. The name is used
// for the artifact filename and defaults to "blueprint".
func Export(bp *Blueprint, cfg ExportConfig, name string) (*Artifact, error) {
	if name == "" {
		name = "blueprint"
	}

	switch cfg.Format {
	case FormatN8n:
		workflow := ToExecutionWorkflow(bp, cfg)
		content, err := marshalIndent(workflow)
		if err != nil {
			return nil, err
		}
		return &Artifact{Content: content, Filename: name + ".json", MIME: "application/json"}, nil

	case FormatJSON:
		filtered := bp
		if len(cfg.PriorityFilter) > 0 {
			filtered = filterBlueprint(bp, cfg.PriorityFilter)
		}
		content, err := marshalIndent(filtered)
		if err != nil {
			return nil, err
		}
		return &Artifact{Content: content, Filename: name + ".json", MIME: "application/json"}, nil

	case FormatMarkdown:
		filtered := bp
		if len(cfg.PriorityFilter) > 0 {
			filtered = filterBlueprint(bp, cfg.PriorityFilter)
		}
		content := toMarkdown(filtered, cfg)
		return &Artifact{Content: content, Filename: name + ".md", MIME: "text/markdown"}, nil

	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", cfg.Format)
	}
}

// GetPreview returns the retained node count and a one-line summary of what
// Export would produce for the same config.
func GetPreview(bp *Blueprint, cfg ExportConfig) (*ExportPreview, error) {
	filtered := bp
	if len(cfg.PriorityFilter) > 0 {
		filtered = filterBlueprint(bp, cfg.PriorityFilter)
	}
	nodeCount := len(filtered.Nodes)

	filterEcho := "all"
	if len(cfg.PriorityFilter) > 0 {
		levels := make([]string, len(cfg.PriorityFilter))
		for i, p := range cfg.PriorityFilter {
			levels[i] = string(p)
		}
		filterEcho = strings.Join(levels, ", ")
	}

	var summary string
	switch cfg.Format {
	case FormatN8n:
		summary = fmt.Sprintf("will export an n8n workflow with %d nodes (priority: %s)", nodeCount, filterEcho)
	case FormatMarkdown:
		summary = fmt.Sprintf("will generate a Markdown document covering %d nodes (priority: %s)", nodeCount, filterEcho)
	case FormatJSON:
		summary = fmt.Sprintf("will export the full blueprint JSON with %d nodes (priority: %s)", nodeCount, filterEcho)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", cfg.Format)
	}

	return &ExportPreview{NodeCount: nodeCount, Summary: summary}, nil
}

// ToExecutionWorkflow converts a blueprint into the restricted n8n workflow
// form: nodes keep only their executable fields, the priority filter is
// applied, and every connection whose source or target fell out of the
// retained set is dropped. Output slots that end up empty are omitted
// entirely, so no empty arrays survive into the output.
func ToExecutionWorkflow(bp *Blueprint, cfg ExportConfig) *Workflow {
	nodes := bp.Nodes
	if len(cfg.PriorityFilter) > 0 {
		nodes = filterNodes(bp.Nodes, cfg.PriorityFilter)
	}

	plain := make([]Node, len(nodes))
	retained := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		plain[i] = n.Node
		retained[n.ID] = struct{}{}
	}

	return &Workflow{
		Nodes:       plain,
		Connections: pruneConnections(bp.Connections, retained),
		Settings:    bp.Settings,
	}
}

// filterBlueprint applies the priority filter to the blueprint itself,
// keeping planning metadata on the retained nodes and pruning connections
// the same way the execution conversion does.
func filterBlueprint(bp *Blueprint, filter []PriorityLevel) *Blueprint {
	nodes := filterNodes(bp.Nodes, filter)
	retained := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		retained[n.ID] = struct{}{}
	}

	return &Blueprint{
		Nodes:        nodes,
		Connections:  pruneConnections(bp.Connections, retained),
		Settings:     bp.Settings,
		Groups:       bp.Groups,
		StickyNotes:  bp.StickyNotes,
		SubWorkflows: bp.SubWorkflows,
	}
}

// filterNodes retains the nodes whose effective priority is in the filter
// set. Nodes without an explicit priority count as P3.
func filterNodes(nodes []BlueprintNode, filter []PriorityLevel) []BlueprintNode {
	allowed := make(map[PriorityLevel]struct{}, len(filter))
	for _, p := range filter {
		allowed[p] = struct{}{}
	}
	out := []BlueprintNode{}
	for _, n := range nodes {
		if _, ok := allowed[n.EffectivePriority()]; ok {
			out = append(out, n)
		}
	}
	return out
}

// pruneConnections keeps only connections whose source and target are both in
// the retained node set. Sources keyed by a filtered-out id vanish wholesale;
// slots whose fan-out list becomes empty are dropped, and a source left with
// no slots is omitted from the map.
func pruneConnections(connections map[string]NodeOutputs, retained map[string]struct{}) map[string]NodeOutputs {
	pruned := make(map[string]NodeOutputs, len(connections))
	for fromID, outputs := range connections {
		if _, ok := retained[fromID]; !ok {
			continue
		}
		main := [][]Connection{}
		for _, slot := range outputs.Main {
			kept := []Connection{}
			for _, conn := range slot {
				if _, ok := retained[conn.Node]; ok {
					kept = append(kept, conn)
				}
			}
			if len(kept) > 0 {
				main = append(main, kept)
			}
		}
		if len(main) > 0 {
			pruned[fromID] = NodeOutputs{Main: main}
		}
	}
	return pruned
}

// priorityLabels fixes the bucket order and display labels of the markdown
// document.
var priorityLabels = []struct {
	Level PriorityLevel
	Label string
}{
	{PriorityP0, "MVP Features"},
	{PriorityP1, "Important Features"},
	{PriorityP2, "Enhancement Features"},
	{PriorityP3, "Future Roadmap"},
}

// toMarkdown renders the blueprint document. Output is deterministic: the
// same blueprint and config always produce the same bytes.
func toMarkdown(bp *Blueprint, cfg ExportConfig) []byte {
	lines := []string{}

	lines = append(lines, "# Product Blueprint\n")

	counts := map[PriorityLevel]int{}
	for i := range bp.Nodes {
		counts[bp.Nodes[i].EffectivePriority()]++
	}

	lines = append(lines, "## Overview\n")
	lines = append(lines, fmt.Sprintf("- Total nodes: %d", len(bp.Nodes)))
	lines = append(lines, fmt.Sprintf("- MVP features (P0): %d", counts[PriorityP0]))
	lines = append(lines, fmt.Sprintf("- Important features (P1): %d", counts[PriorityP1]))
	lines = append(lines, fmt.Sprintf("- Enhancement features (P2): %d", counts[PriorityP2]))
	lines = append(lines, fmt.Sprintf("- Module groups: %d", len(bp.Groups)))
	lines = append(lines, fmt.Sprintf("- Design notes: %d\n", len(bp.StickyNotes)))

	if cfg.groupsIncluded() && len(bp.Groups) > 0 {
		lines = append(lines, "## Module Groups\n")
		for _, group := range bp.Groups {
			lines = append(lines, fmt.Sprintf("### %s", group.Name))
			if group.Description != "" {
				lines = append(lines, fmt.Sprintf("> %s\n", group.Description))
			}
			for i := range bp.Nodes {
				node := &bp.Nodes[i]
				if node.GroupID != group.ID {
					continue
				}
				lines = append(lines, fmt.Sprintf("- **%s** (%s)", node.Name, node.EffectivePriority()))
				if node.TechnicalNotes != "" {
					lines = append(lines, fmt.Sprintf("  - %s", node.TechnicalNotes))
				}
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, "## Feature Nodes\n")
	for _, bucket := range priorityLabels {
		nodes := []*BlueprintNode{}
		for i := range bp.Nodes {
			if bp.Nodes[i].EffectivePriority() == bucket.Level {
				nodes = append(nodes, &bp.Nodes[i])
			}
		}
		if len(nodes) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("### %s\n", bucket.Label))
		for _, node := range nodes {
			lines = append(lines, fmt.Sprintf("#### %s", node.Name))
			lines = append(lines, fmt.Sprintf("- **Type**: %s", node.Type))
			if node.TechnicalNotes != "" {
				lines = append(lines, fmt.Sprintf("- **Technical notes**: %s", node.TechnicalNotes))
			}
			if len(node.UserStoryIDs) > 0 {
				lines = append(lines, fmt.Sprintf("- **Linked stories**: %s", strings.Join(node.UserStoryIDs, ", ")))
			}
			lines = append(lines, "")
		}
	}

	if cfg.notesIncluded() && len(bp.StickyNotes) > 0 {
		lines = append(lines, "## Design Notes\n")
		for i, note := range bp.StickyNotes {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, note.Content))
		}
		lines = append(lines, "")
	}

	return []byte(strings.Join(lines, "\n"))
}

// RenderDocumentHTML converts an exported markdown document to HTML for the
// in-app export preview.
func RenderDocumentHTML(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(markdown, &buf); err != nil {
		return nil, errors.Wrap(err, "failed to render blueprint document")
	}
	return buf.Bytes(), nil
}

func marshalIndent(v any) ([]byte, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize export")
	}
	return content, nil
}
