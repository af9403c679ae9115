package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is a build plan: a named set of images to build, each from an
// existing base image or from another entry in the same plan.
type Plan struct {
	Name   string      `yaml:"name"`
	Images []ImageSpec `yaml:"images"`
}

// ImageSpec describes one image build. Exactly one of Base and ImageRef is
// set: Base names an existing image ID, ImageRef names another entry in the
// plan whose resultant image becomes the base.
type ImageSpec struct {
	Name          string   `yaml:"name"`
	Base          string   `yaml:"base,omitempty"`
	ImageRef      string   `yaml:"image_ref,omitempty"`
	Configuration string   `yaml:"configuration,omitempty"`
	TargetGroups  []string `yaml:"target_groups,omitempty"`
}

// Load reads a plan file and parses it.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	return p, nil
}

// Parse parses plan YAML and validates it against the plan schema.
func Parse(data []byte) (*Plan, error) {
	// Decode twice: once into a generic document for schema validation,
	// once into the typed plan.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed YAML: %w", err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("malformed YAML: %w", err)
	}
	return &p, nil
}
