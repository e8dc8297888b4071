package daemon

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/overhuman/agentrt/internal/observability"
)

// DocSection is one heading-delimited chunk of generated Markdown,
// possibly with nested subsections. Grounded on
// original_source/autonomous/docs_generator.rs's DocSection.
type DocSection struct {
	Title       string
	Body        string
	Level       uint8 // clamped to 1-6
	Subsections []DocSection
}

// NewDocSection creates a section, clamping level to the 1-6 range.
func NewDocSection(title, body string, level uint8) DocSection {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return DocSection{Title: title, Body: body, Level: level}
}

// WithSubsection appends a nested section.
func (s DocSection) WithSubsection(sub DocSection) DocSection {
	s.Subsections = append(s.Subsections, sub)
	return s
}

// ToMarkdown renders the section and every subsection recursively.
func (s DocSection) ToMarkdown() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("#", int(s.Level)))
	b.WriteString(" ")
	b.WriteString(s.Title)
	b.WriteString("\n\n")
	if s.Body != "" {
		b.WriteString(s.Body)
		b.WriteString("\n\n")
	}
	for _, sub := range s.Subsections {
		b.WriteString(sub.ToMarkdown())
	}
	return b.String()
}

// ModuleInfo describes one module for an architecture page.
type ModuleInfo struct {
	Name         string
	Description  string
	SourcePath   string
	Exports      []string
	Dependencies []string
}

// FeatureStatus is a feature's maturity, for feature-matrix tables.
type FeatureStatus string

const (
	FeatureWorking    FeatureStatus = "working"
	FeaturePartial    FeatureStatus = "partial"
	FeaturePlanned    FeatureStatus = "planned"
	FeatureDeprecated FeatureStatus = "deprecated"
)

func (s FeatureStatus) String() string {
	switch s {
	case FeatureWorking:
		return "WORKING"
	case FeaturePartial:
		return "PARTIAL"
	case FeaturePlanned:
		return "PLANNED"
	case FeatureDeprecated:
		return "DEPRECATED"
	default:
		return "UNKNOWN"
	}
}

func (s FeatureStatus) badge() string {
	switch s {
	case FeatureWorking:
		return "**WORKING**"
	case FeaturePartial:
		return "**PARTIAL**"
	case FeatureDeprecated:
		return "~~DEPRECATED~~"
	default:
		return "PLANNED"
	}
}

// FeatureEntry is one row of a feature matrix table.
type FeatureEntry struct {
	Name        string
	Status      FeatureStatus
	Description string
}

// DiagramType is the kind of Mermaid diagram being rendered.
type DiagramType string

const (
	DiagramFlowchart    DiagramType = "flowchart"
	DiagramSequence     DiagramType = "sequence"
	DiagramClass        DiagramType = "class"
	DiagramStateMachine DiagramType = "state"
)

// MermaidDiagram is a titled Mermaid diagram ready to render as a
// fenced Markdown code block.
type MermaidDiagram struct {
	Title       string
	DiagramType DiagramType
	Content     string
}

// NewMermaidDiagram builds a diagram.
func NewMermaidDiagram(title string, diagramType DiagramType, content string) MermaidDiagram {
	return MermaidDiagram{Title: title, DiagramType: diagramType, Content: content}
}

// ToMarkdown renders the diagram as a fenced ```mermaid block.
func (d MermaidDiagram) ToMarkdown() string {
	return fmt.Sprintf("### %s\n\n```mermaid\n%s\n```\n\n", d.Title, d.Content)
}

// DocGenResult is the record of one documentation generation call.
type DocGenResult struct {
	Content      string
	TargetPath   string
	GeneratedAt  string
	SectionCount int
}

// DocsGenerator produces Markdown documentation — feature matrices,
// architecture pages, Docusaurus pages, and Mermaid dependency
// diagrams — from structured inputs. Grounded on
// original_source/autonomous/docs_generator.rs's DocsGenerator.
type DocsGenerator struct {
	projectName string
	outputDir   string
	history     []DocGenResult
	logger      *observability.Logger
}

// NewDocsGenerator creates a generator writing under outputDir.
func NewDocsGenerator(projectName, outputDir string, logger *observability.Logger) *DocsGenerator {
	return &DocsGenerator{projectName: projectName, outputDir: outputDir, logger: logger}
}

// GenerateFeatureTable renders a Markdown feature matrix.
func (g *DocsGenerator) GenerateFeatureTable(features []FeatureEntry) string {
	var b strings.Builder
	b.WriteString("| # | Feature | Status | Description |\n")
	b.WriteString("|---|---------|--------|-------------|\n")
	for i, f := range features {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, f.Name, f.Status.badge(), f.Description)
	}
	return b.String()
}

// GenerateArchitecturePage renders a Markdown page describing each
// module's purpose, source, exports, and dependencies.
func (g *DocsGenerator) GenerateArchitecturePage(modules []ModuleInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Architecture\n\n", g.projectName)
	fmt.Fprintf(&b, "> Auto-generated on %s\n\n", time.Now().UTC().Format("2006-01-02"))

	for _, m := range modules {
		fmt.Fprintf(&b, "## %s\n\n", m.Name)
		fmt.Fprintf(&b, "%s\n\n", m.Description)
		fmt.Fprintf(&b, "**Source:** `%s`\n\n", m.SourcePath)

		if len(m.Exports) > 0 {
			b.WriteString("**Exports:**\n\n")
			for _, e := range m.Exports {
				fmt.Fprintf(&b, "- `%s`\n", e)
			}
			b.WriteString("\n")
		}

		if len(m.Dependencies) > 0 {
			quoted := make([]string, len(m.Dependencies))
			for i, d := range m.Dependencies {
				quoted[i] = fmt.Sprintf("`%s`", d)
			}
			fmt.Fprintf(&b, "**Dependencies:** %s\n\n", strings.Join(quoted, ", "))
		}
	}
	return b.String()
}

// GenerateDocusaurusPage wraps content in Docusaurus frontmatter.
func (g *DocsGenerator) GenerateDocusaurusPage(title, sidebarLabel string, sidebarPosition uint32, content string) string {
	return fmt.Sprintf("---\ntitle: \"%s\"\nsidebar_label: \"%s\"\nsidebar_position: %d\n---\n\n%s\n",
		title, sidebarLabel, sidebarPosition, content)
}

// GenerateDependencyDiagram builds a Mermaid flowchart from module
// dependency edges.
func (g *DocsGenerator) GenerateDependencyDiagram(modules []ModuleInfo) MermaidDiagram {
	lines := []string{"graph TD"}
	for _, m := range modules {
		nodeID := mermaidNodeID(m.Name)
		lines = append(lines, fmt.Sprintf("    %s[%s]", nodeID, m.Name))
		for _, dep := range m.Dependencies {
			depID := mermaidNodeID(dep)
			lines = append(lines, fmt.Sprintf("    %s --> %s", nodeID, depID))
		}
	}
	return NewMermaidDiagram(
		fmt.Sprintf("%s Module Dependencies", g.projectName),
		DiagramFlowchart,
		strings.Join(lines, "\n"),
	)
}

func mermaidNodeID(name string) string {
	id := strings.ReplaceAll(name, "-", "_")
	return strings.ReplaceAll(id, " ", "_")
}

// GeneratePage renders sections to Markdown, records the result in
// history, and returns it.
func (g *DocsGenerator) GeneratePage(filename string, sections []DocSection) DocGenResult {
	var content strings.Builder
	for _, s := range sections {
		content.WriteString(s.ToMarkdown())
	}

	result := DocGenResult{
		Content:      content.String(),
		TargetPath:   filepath.Join(g.outputDir, filename),
		GeneratedAt:  time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		SectionCount: len(sections),
	}

	if g.logger != nil {
		g.logger.Info("generated documentation page", "file", filename, "sections", result.SectionCount)
	}

	g.history = append(g.history, result)
	return result
}

// History returns every generated page, oldest first.
func (g *DocsGenerator) History() []DocGenResult { return g.history }
