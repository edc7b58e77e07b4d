// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package prompt

import (
	"fmt"
	"slices"
	"strings"
)

// Template is one version of the answer prompt.
type Template struct {
	Version   string
	Date      string
	Changelog string
	// System is rendered with {context} and, when present, {language}.
	System string
	// Human is rendered with {question}.
	Human string
}

// UsesLanguage reports whether the system template asks for {language}.
func (t Template) UsesLanguage() bool {
	return strings.Contains(t.System, "{language}")
}

func (t Template) validate() error {
	if t.Version == "" {
		return fmt.Errorf("%w: empty version", ErrInvalidTemplate)
	}
	if !strings.Contains(t.System, "{context}") {
		return fmt.Errorf("%w: %s system template has no {context}", ErrInvalidTemplate, t.Version)
	}
	if !strings.Contains(t.Human, "{question}") {
		return fmt.Errorf("%w: %s human template has no {question}", ErrInvalidTemplate, t.Version)
	}
	return nil
}

// VersionInfo describes a registered template.
type VersionInfo struct {
	Version   string `json:"version"`
	Date      string `json:"date"`
	Changelog string `json:"changelog"`
	Active    bool   `json:"is_active"`
}

// Registry is an immutable set of prompt templates with one active version.
type Registry struct {
	templates map[string]Template
	order     []string
	active    string
}

// NewRegistry builds a registry from templates. active must name one of them.
func NewRegistry(active string, templates ...Template) (*Registry, error) {
	r := &Registry{
		templates: make(map[string]Template, len(templates)),
		active:    active,
	}
	for _, t := range templates {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.templates[t.Version]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVersion, t.Version)
		}
		r.templates[t.Version] = t
		r.order = append(r.order, t.Version)
	}
	slices.Sort(r.order)

	if _, ok := r.templates[active]; !ok {
		return nil, fmt.Errorf("%w: active version %q", ErrUnknownVersion, active)
	}
	return r, nil
}

// Get returns the template for version. An empty version means the active one.
func (r *Registry) Get(version string) (Template, error) {
	if version == "" {
		version = r.active
	}
	t, ok := r.templates[version]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownVersion, version, strings.Join(r.order, ", "))
	}
	return t, nil
}

// Active returns the active template.
func (r *Registry) Active() Template {
	return r.templates[r.active]
}

// Versions lists every template, oldest version first.
func (r *Registry) Versions() []VersionInfo {
	out := make([]VersionInfo, 0, len(r.order))
	for _, v := range r.order {
		t := r.templates[v]
		out = append(out, VersionInfo{
			Version:   t.Version,
			Date:      t.Date,
			Changelog: t.Changelog,
			Active:    v == r.active,
		})
	}
	return out
}
