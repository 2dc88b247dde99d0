package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/harrison/maestro/internal/models"
)

// YAMLParser parses YAML plan files.
//
// Expected structure:
//
//	name: Add greeting
//	task_id: t1
//	steps:
//	  - id: step1
//	    description: Create the greeting file
//	    type: file_create
//	    path: hello.txt
//	    content: hello
//	  - id: step2
//	    description: Rewrite the greeting
//	    type: file_modify
//	    path: hello.txt
//	    content: hello world
//	    depends_on: [step1]
type YAMLParser struct{}

// NewYAMLParser creates a new YAML plan parser.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Parse reads YAML content and returns the plan. Structural validation
// is left to TaskPlan.Validate so both parsers share one rule set.
func (p *YAMLParser) Parse(r io.Reader) (*models.TaskPlan, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var plan models.TaskPlan
	if err := yaml.Unmarshal(content, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &plan, nil
}
