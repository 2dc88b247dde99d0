package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/maestro/internal/models"
)

// MarkdownParser parses Markdown plan files.
//
// Expected structure: optional YAML frontmatter (name, task_id), then
// one "## Step <id>: <description>" section per step. Each section
// carries metadata bullets (Type, Path, Command, Depends on) and, for
// file operations, the payload in the first fenced code block.
type MarkdownParser struct {
	markdown goldmark.Markdown
}

// NewMarkdownParser creates a new Markdown plan parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

// planFrontmatter is the optional YAML frontmatter of a Markdown plan.
type planFrontmatter struct {
	Name   string `yaml:"name"`
	TaskID string `yaml:"task_id"`
}

var (
	stepHeadingRegex = regexp.MustCompile(`^Step\s+(\S+):\s+(.+)$`)
	metadataRegex    = regexp.MustCompile(`^[-*]\s+([A-Za-z ]+):\s*(.*)$`)
	fenceRegex       = regexp.MustCompile("^```")
)

// Parse reads Markdown content and returns the plan.
func (p *MarkdownParser) Parse(r io.Reader) (*models.TaskPlan, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	plan := &models.TaskPlan{}
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		var fm planFrontmatter
		if err := yaml.Unmarshal(frontmatter, &fm); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		plan.Name = fm.Name
		plan.TaskID = fm.TaskID
	}

	steps, err := p.extractSteps(content)
	if err != nil {
		return nil, err
	}
	plan.Steps = steps

	return plan, nil
}

// section is a step heading plus the byte range of its body.
type section struct {
	id          string
	description string
	start       int
	end         int
}

// extractSteps walks the goldmark AST to locate step headings, then
// parses each section body for metadata and payload.
func (p *MarkdownParser) extractSteps(source []byte) ([]models.TaskStep, error) {
	doc := p.markdown.Parser().Parse(text.NewReader(source))

	var sections []section
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 2 {
			return ast.WalkContinue, nil
		}

		// Close the previous section at this heading's start.
		lines := heading.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		seg := lines.At(0)
		if len(sections) > 0 {
			sections[len(sections)-1].end = seg.Start
		}

		headingText := extractText(heading, source)
		matches := stepHeadingRegex.FindStringSubmatch(headingText)
		if len(matches) == 3 {
			sections = append(sections, section{
				id:          matches[1],
				description: strings.TrimSpace(matches[2]),
				start:       seg.Stop,
				end:         len(source),
			})
		} else if len(sections) > 0 {
			// Non-step heading terminates the current step section.
			sections[len(sections)-1].end = seg.Start
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	steps := make([]models.TaskStep, 0, len(sections))
	for _, sec := range sections {
		step, err := parseStepSection(sec, source)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// parseStepSection parses one step body: metadata bullets outside code
// blocks, and the first fenced code block as the content payload.
func parseStepSection(sec section, source []byte) (models.TaskStep, error) {
	step := models.TaskStep{
		ID:          sec.id,
		Description: sec.description,
	}

	body := string(source[sec.start:sec.end])
	lines := strings.Split(body, "\n")

	var content strings.Builder
	inCodeBlock := false
	contentCaptured := false

	for _, line := range lines {
		if fenceRegex.MatchString(strings.TrimSpace(line)) {
			if inCodeBlock {
				contentCaptured = true
			}
			inCodeBlock = !inCodeBlock
			continue
		}

		if inCodeBlock {
			if !contentCaptured {
				content.WriteString(line)
				content.WriteString("\n")
			}
			continue
		}

		matches := metadataRegex.FindStringSubmatch(strings.TrimSpace(line))
		if len(matches) != 3 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(matches[1]))
		value := strings.TrimSpace(matches[2])
		switch key {
		case "type":
			step.Type = models.StepType(strings.ToLower(value))
		case "path", "file":
			step.TargetPath = value
		case "command":
			step.Command = value
		case "depends on", "depends":
			for _, dep := range strings.Split(value, ",") {
				if dep = strings.TrimSpace(dep); dep != "" {
					step.DependsOn = append(step.DependsOn, dep)
				}
			}
		}
	}

	if contentCaptured {
		// Drop the trailing newline the fence scan appended.
		step.Content = strings.TrimSuffix(content.String(), "\n")
	}

	if step.Type == "" {
		return step, fmt.Errorf("step %s: missing Type metadata", step.ID)
	}

	return step, nil
}

// extractText extracts plain text from an AST node.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

// extractFrontmatter splits optional YAML frontmatter (delimited by
// "---" lines at the very top) from the Markdown body. The closing
// delimiter must be a line of exactly "---"; lines merely starting
// with three dashes ("----", "---x") do not close the block.
func extractFrontmatter(content []byte) (body []byte, frontmatter []byte) {
	trimmed := bytes.TrimLeft(content, "\n")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) {
		return content, nil
	}

	rest := trimmed[len("---\n"):]
	if idx := bytes.Index(rest, []byte("\n---\n")); idx >= 0 {
		return rest[idx+len("\n---"):], rest[:idx]
	}
	if bytes.HasSuffix(rest, []byte("\n---")) {
		return nil, rest[:len(rest)-len("\n---")]
	}
	return content, nil
}
