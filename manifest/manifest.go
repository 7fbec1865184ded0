// Package manifest holds the in-memory package.json being assembled and
// renders it in canonical form.
//
// Mutations never fail: any string is accepted for any field and validation
// is left to whoever consumes the rendered output (see Lint).
package manifest

import (
	"bytes"
	"encoding/json"
)

// Default values for a new manifest.
const (
	DefaultName        = "my-awesome-project"
	DefaultVersion     = "1.0.0"
	DefaultDescription = "A fantastic new project."
	DefaultMain        = "index.js"
	DefaultLicense     = "ISC"
	DefaultTestScript  = `echo "Error: no test specified" && exit 1`
)

// Manifest is a package.json under construction. Field order is render order.
type Manifest struct {
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	Description     string       `json:"description"`
	Main            string       `json:"main"`
	Scripts         Scripts      `json:"scripts"`
	Keywords        []string     `json:"keywords"`
	Author          string       `json:"author"`
	License         string       `json:"license"`
	Dependencies    Dependencies `json:"dependencies"`
	DevDependencies Dependencies `json:"devDependencies"`
}

// Option customizes a new Manifest.
type Option func(*Manifest)

// WithAuthor sets the author field.
func WithAuthor(author string) Option {
	return func(m *Manifest) {
		m.Author = author
	}
}

// WithLicense sets the license field.
func WithLicense(license string) Option {
	return func(m *Manifest) {
		m.License = license
	}
}

// New returns a manifest populated with the default values.
func New(opts ...Option) *Manifest {
	m := &Manifest{
		Name:        DefaultName,
		Version:     DefaultVersion,
		Description: DefaultDescription,
		Main:        DefaultMain,
		Keywords:    []string{},
		License:     DefaultLicense,
	}
	m.Scripts.Set("test", DefaultTestScript)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetProjectDetails overwrites name, version and description.
func (m *Manifest) SetProjectDetails(name, version, description string) {
	m.Name = name
	m.Version = version
	m.Description = description
}

// CaretRange returns the caret range accepting version and anything newer
// with the same major version.
func CaretRange(version string) string {
	return "^" + version
}

// AddDependency records name at ^version in dependencies, or in
// devDependencies when dev is set, removing it from the other map first.
// Repeating the same call leaves the manifest unchanged.
func (m *Manifest) AddDependency(name, version string, dev bool) {
	target, other := &m.Dependencies, &m.DevDependencies
	if dev {
		target, other = other, target
	}
	other.Delete(name)
	target.Set(name, CaretRange(version))
}

// RemoveDependency removes name from whichever map holds it and reports
// whether anything was removed.
func (m *Manifest) RemoveDependency(name string) bool {
	removedDeps := m.Dependencies.Delete(name)
	removedDev := m.DevDependencies.Delete(name)
	return removedDeps || removedDev
}

// Range returns the range selected for name and whether it is a dev dependency.
func (m *Manifest) Range(name string) (rng string, dev bool, ok bool) {
	if rng, ok := m.Dependencies.Get(name); ok {
		return rng, false, true
	}
	if rng, ok := m.DevDependencies.Get(name); ok {
		return rng, true, true
	}
	return "", false, false
}

// Selected returns every selected package name: dependencies first, then
// devDependencies, each in the order they were added.
func (m *Manifest) Selected() []string {
	return append(m.Dependencies.Names(), m.DevDependencies.Names()...)
}

// SelectedRanges returns the combined name to range map of both dependency maps.
func (m *Manifest) SelectedRanges() map[string]string {
	ranges := m.Dependencies.Map()
	for name, rng := range m.DevDependencies.Map() {
		ranges[name] = rng
	}
	return ranges
}

// Clone returns a deep copy.
func (m *Manifest) Clone() *Manifest {
	cp := *m
	cp.Scripts = Scripts{m.Scripts.clone()}
	cp.Keywords = append([]string{}, m.Keywords...)
	cp.Dependencies = Dependencies{m.Dependencies.clone()}
	cp.DevDependencies = Dependencies{m.DevDependencies.clone()}
	return &cp
}

// Render returns the canonical text of m: two-space indented JSON with fields
// in manifest order and dependency keys sorted.
func Render(m *Manifest) ([]byte, error) {
	out := *m
	if out.Keywords == nil {
		out.Keywords = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// String returns the rendered manifest.
func (m *Manifest) String() string {
	data, err := Render(m)
	if err != nil {
		return ""
	}
	return string(data)
}
