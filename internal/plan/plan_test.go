package plan

import (
	"os"
	"path/filepath"
	"testing"
)

const validPlan = `
name: compute-rollout
images:
  - name: base
    base: img-stock
  - name: compute
    image_ref: base
    configuration: compute-config
    target_groups: [compute]
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(validPlan))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Name != "compute-rollout" {
		t.Errorf("plan name = %q, want 'compute-rollout'", p.Name)
	}
	if len(p.Images) != 2 {
		t.Fatalf("plan has %d images, want 2", len(p.Images))
	}

	base := p.Images[0]
	if base.Name != "base" || base.Base != "img-stock" {
		t.Errorf("first image = %+v, want base built from img-stock", base)
	}

	compute := p.Images[1]
	if compute.ImageRef != "base" {
		t.Errorf("compute image_ref = %q, want 'base'", compute.ImageRef)
	}
	if compute.Configuration != "compute-config" {
		t.Errorf("compute configuration = %q, want 'compute-config'", compute.Configuration)
	}
	if len(compute.TargetGroups) != 1 || compute.TargetGroups[0] != "compute" {
		t.Errorf("compute target_groups = %v, want [compute]", compute.TargetGroups)
	}
}

func TestParseRejectsInvalidPlans(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing plan name",
			yaml: `
images:
  - name: base
    base: img-stock
`,
		},
		{
			name: "no images",
			yaml: `
name: empty
images: []
`,
		},
		{
			name: "image without base or ref",
			yaml: `
name: p
images:
  - name: orphan
`,
		},
		{
			name: "image with both base and ref",
			yaml: `
name: p
images:
  - name: both
    base: img-stock
    image_ref: other
`,
		},
		{
			name: "unknown field",
			yaml: `
name: p
images:
  - name: base
    base: img-stock
    flavor: spicy
`,
		},
		{
			name: "wrong type for images",
			yaml: `
name: p
images: just-a-string
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Parse() = nil error, want schema violation")
			}
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("name: [unterminated")); err == nil {
		t.Fatal("expected YAML error, got nil")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(validPlan), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Name != "compute-rollout" {
		t.Errorf("plan name = %q, want 'compute-rollout'", p.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
