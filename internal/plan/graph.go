package plan

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"
)

// Graph holds a plan's images and the dependency edges implied by their
// image_ref fields.
type Graph struct {
	images map[string]ImageSpec
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{images: make(map[string]ImageSpec)}
}

// BuildGraph builds a graph from every image in the plan.
func BuildGraph(p *Plan) (*Graph, error) {
	g := NewGraph()
	for _, img := range p.Images {
		if err := g.AddImage(img); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddImage adds an image to the graph. Returns an error if the name is
// already taken.
func (g *Graph) AddImage(img ImageSpec) error {
	if _, exists := g.images[img.Name]; exists {
		return fmt.Errorf("image %q appears twice in the plan", img.Name)
	}
	g.images[img.Name] = img
	return nil
}

// Order returns image names in build order: every image after the entry its
// image_ref names. It rejects refs to images the plan does not define and
// reference cycles.
func (g *Graph) Order() ([]string, error) {
	for name, img := range g.images {
		if img.ImageRef == "" {
			continue
		}
		if _, exists := g.images[img.ImageRef]; !exists {
			return nil, fmt.Errorf("image %q references unknown image %q", name, img.ImageRef)
		}
	}

	var edges []toposort.Edge
	for name, img := range g.images {
		if img.ImageRef == "" {
			// No inbound edge; anchor from nil so the sort still emits it.
			edges = append(edges, toposort.Edge{nil, name})
		} else {
			// Edge (ref, name) means ref builds before name.
			edges = append(edges, toposort.Edge{img.ImageRef, name})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("plan contains an image_ref cycle: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for _, name := range sorted {
		if name != nil {
			order = append(order, name.(string))
		}
	}

	if len(order) != len(g.images) {
		missing := []string{}
		found := make(map[string]bool)
		for _, name := range order {
			found[name] = true
		}
		for name := range g.images {
			if !found[name] {
				missing = append(missing, name)
			}
		}
		return nil, fmt.Errorf("build order lost %d images: %s", len(missing), strings.Join(missing, ", "))
	}

	return order, nil
}
