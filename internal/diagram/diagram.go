// Package diagram inspects Mermaid diagram text: cleaning, frontmatter and
// diagram type detection.
package diagram

import (
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions (without dots) treated as Mermaid.
var Extensions = []string{"mmd", "mermaid", "md", "txt"}

const bom = "\ufeff"

// knownTypes are the diagram declarations Mermaid accepts as the first
// statement of a diagram.
var knownTypes = []string{
	"flowchart", "graph", "sequenceDiagram", "classDiagram", "classDiagram-v2",
	"stateDiagram", "stateDiagram-v2", "erDiagram", "journey", "gantt", "pie",
	"quadrantChart", "requirementDiagram", "gitGraph", "mindmap", "timeline",
	"C4Context", "C4Container", "C4Component", "C4Dynamic", "C4Deployment",
	"sankey-beta", "xychart-beta", "block-beta", "packet-beta",
	"architecture-beta", "kanban", "radar-beta", "treemap-beta",
}

// Clean trims surrounding whitespace and a leading byte-order mark.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, bom)
	return strings.TrimSpace(text)
}

// IsDiagramPath reports whether path has a Mermaid file extension.
func IsDiagramPath(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return ext != "" && slices.Contains(Extensions, ext)
}

// Info describes a diagram.
type Info struct {
	Title  string         `json:"title,omitempty"`
	Type   string         `json:"type,omitempty"`
	Config map[string]any `json:"config,omitempty"`
	Body   string         `json:"-"`
}

type frontmatter struct {
	Title  string         `yaml:"title"`
	Config map[string]any `yaml:"config"`
}

// Parse extracts the optional YAML frontmatter and detects the diagram type
// from the first statement of the body. Unknown types leave Type empty.
func Parse(text string) Info {
	fm, body := splitFrontmatter(Clean(text))
	return Info{
		Title:  strings.TrimSpace(fm.Title),
		Config: fm.Config,
		Type:   detectType(body),
		Body:   body,
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the diagram body. Without a closing delimiter, or with invalid YAML,
// the whole text is body.
func splitFrontmatter(text string) (frontmatter, string) {
	const delim = "---"
	if !strings.HasPrefix(text, delim) {
		return frontmatter{}, text
	}
	rest := text[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return frontmatter{}, text
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:idx]), &fm); err != nil {
		return frontmatter{}, text
	}
	body := rest[idx+1+len(delim):]
	return fm, strings.TrimLeft(body, "\r\n")
}

func detectType(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		word := line
		if i := strings.IndexAny(line, " \t;"); i >= 0 {
			word = line[:i]
		}
		for _, t := range knownTypes {
			if strings.EqualFold(word, t) {
				return t
			}
		}
		return ""
	}
	return ""
}
