/*
 * Copyright (C) 2021 IBM, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package config holds the raw YAML shape of a json-exporter configuration
// file, before any path/value expression is compiled or any default is
// resolved. See pkg/compile for the immutable, compiled form.
package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// Config is the top-level document.
type Config struct {
	Namespace    string         `yaml:"namespace"`
	GlobalLabels []GlobalLabels `yaml:"global_labels"`
	Endpoints    []Endpoint     `yaml:"endpoints"`
}

// GlobalLabels is one entry of the top-level global_labels list: a
// mini-endpoint whose JSON response is used only to resolve label values.
type GlobalLabels struct {
	URL    string  `yaml:"url"`
	Labels []Label `yaml:"labels"`
}

// Label is a (name, value-expression) pair. Value is compiled by pkg/pathexpr.
type Label struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Endpoint describes one upstream URL and the metric tree extracted from it.
type Endpoint struct {
	ID       string   `yaml:"id"`
	URL      string   `yaml:"url"`
	URLParts URLParts `yaml:"url_parts"`
	Metrics  []Metric `yaml:"metrics"`
}

// URLParts flattens into a template substitution table at compile time.
type URLParts struct {
	Paths  map[string]string     `yaml:"paths"`
	Params map[string]QueryParam `yaml:"params"`
}

// QueryParam is a named query-string fragment with an optional default.
type QueryParam struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// MetricType enumerates the type hint a node may carry, inherited by
// descendants when unset.
type MetricType string

const (
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeCounter MetricType = "counter"
)

// Modifier is a tagged scalar transform: {name, args}. args is kept generic
// (decoded per-modifier via mapstructure in pkg/modifier) because each
// modifier kind has its own argument shape.
type Modifier struct {
	Name string                 `yaml:"name"`
	Args map[string]interface{} `yaml:"args"`
}

// Metric is one node of the recursive extraction tree. A node with no
// Metrics is a leaf and emits samples; all others are pure scopes.
//
// Name is a pointer so three states are distinguishable: unset (nil, the
// name is derived from the last path segment), explicitly empty (the join
// is skipped at this level but accumulation continues from children), and
// explicitly set.
//
// The bare-scalar shorthand ("metrics: [foo, bar.baz]") is handled by
// UnmarshalYAML below.
type Metric struct {
	Path      string     `yaml:"path"`
	Name      *string    `yaml:"name"`
	Type      MetricType `yaml:"type"`
	Labels    []Label    `yaml:"labels"`
	Modifiers []Modifier `yaml:"modifiers"`
	Metrics   []Metric   `yaml:"metrics"`
}

// UnmarshalYAML accepts either a mapping (full Metric shape) or a bare
// scalar string, in which case it is treated as {path: <string>}.
func (m *Metric) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var path string
	if err := unmarshal(&path); err == nil {
		*m = Metric{Path: path}
		return nil
	}

	type metricAlias Metric
	var alias metricAlias
	if err := unmarshal(&alias); err != nil {
		return fmt.Errorf("metric node must be a path string or a mapping: %w", err)
	}
	*m = Metric(alias)
	return nil
}

// Load parses a YAML document into a raw Config. YAML anchors/aliases are
// expanded by the parser itself: the returned tree never shares subgraphs.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("configuration error: namespace is required")
	}
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("configuration error: endpoints is required and must be non-empty")
	}
	for i, ep := range cfg.Endpoints {
		if ep.URL == "" {
			return nil, fmt.Errorf("configuration error: endpoints[%d].url is required", i)
		}
		if len(ep.Metrics) == 0 {
			return nil, fmt.Errorf("configuration error: endpoints[%d].metrics is required and must be non-empty", i)
		}
	}
	return &cfg, nil
}
