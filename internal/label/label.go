// Package label maps output tensor element indices to class labels,
// loaded from per-output label files (one label per line).
package label

import (
	"bufio"
	"fmt"
	"os"
)

// Provider holds the ordered label lists of a model's outputs.
type Provider struct {
	labels map[string][]string
}

// NewProvider returns an empty provider.
func NewProvider() *Provider {
	return &Provider{labels: make(map[string][]string)}
}

// SetLabels installs the ordered label list for a named output,
// replacing any previous list.
func (p *Provider) SetLabels(name string, labels []string) {
	p.labels[name] = labels
}

// GetLabel returns the label of element idx of the named output, or ""
// when the output has no labels or idx is out of range.
func (p *Provider) GetLabel(name string, idx int) string {
	l, ok := p.labels[name]
	if !ok || idx < 0 || idx >= len(l) {
		return ""
	}
	return l[idx]
}

// AddFromFile reads a label file (one label per line, indexed by line
// position) and installs it for the named output.
func (p *Provider) AddFromFile(name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open label file for output %q: %w", name, err)
	}
	defer f.Close()
	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		labels = append(labels, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read label file for output %q: %w", name, err)
	}
	p.SetLabels(name, labels)
	return nil
}
