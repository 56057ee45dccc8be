// Package config handles application configuration loading and validation.
//
// Configuration is read from a YAML file, completed with defaults and
// validated using struct tags.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"kuanb/indoor-router/matching"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort             = 8080
	DefaultMetricsIntervalS = 30
	DefaultSessionTTLS      = 1800
	DefaultSelfProbability  = 0.9
	DefaultMaxStep          = 1.0
)

// Load reads, completes and validates the configuration at path
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated configuration
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MetricsIntervalS == 0 {
		c.Server.MetricsIntervalS = DefaultMetricsIntervalS
	}
	if c.Server.SessionTTLS == 0 {
		c.Server.SessionTTLS = DefaultSessionTTLS
	}
	if c.Building.Format == "" {
		c.Building.Format = FormatFromPath(c.Building.Path)
	}

	def := matching.DefaultOptions()
	m := &c.Matcher
	if m.CandidateRadius == 0 {
		m.CandidateRadius = def.CandidateRadius
	}
	if m.InitialRadius == 0 {
		m.InitialRadius = def.InitialRadius
	}
	if m.MaxRadiusDoublings == nil {
		m.MaxRadiusDoublings = ptr(def.MaxRadiusDoublings)
	}
	if m.MaxHistory == nil {
		m.MaxHistory = ptr(def.MaxHistory)
	}
	if m.FallbackToDirect == nil {
		m.FallbackToDirect = ptr(def.FallbackToDirect)
	}
	if m.Transition.Strategy == "" {
		m.Transition.Strategy = "topology"
	}
	if m.Transition.Strategy == "static" && m.Transition.SelfProbability == nil {
		m.Transition.SelfProbability = ptr(DefaultSelfProbability)
	}
	if m.Emission.Strategy == "" {
		m.Emission.Strategy = "cell"
	}
	if m.Emission.Radius == 0 {
		m.Emission.Radius = 1.0
	}

	if c.Routing.MaxStep == 0 {
		c.Routing.MaxStep = DefaultMaxStep
	}
}

func ptr[T any](v T) *T {
	return &v
}

// FormatFromPath guesses the building format from the file extension
func FormatFromPath(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".pbf") {
		return "osm"
	}
	return "geojson"
}

// Options converts the matcher section into matcher options
func (m MatcherConfig) Options() matching.Options {
	opts := matching.DefaultOptions()
	opts.CandidateRadius = m.CandidateRadius
	opts.InitialRadius = m.InitialRadius
	if m.MaxRadiusDoublings != nil {
		opts.MaxRadiusDoublings = *m.MaxRadiusDoublings
	}
	if m.MaxHistory != nil {
		opts.MaxHistory = *m.MaxHistory
	}
	if m.FallbackToDirect != nil {
		opts.FallbackToDirect = *m.FallbackToDirect
	}

	switch m.Transition.Strategy {
	case "static":
		sigma := DefaultSelfProbability
		if m.Transition.SelfProbability != nil {
			sigma = *m.Transition.SelfProbability
		}
		opts.Transition = matching.StaticTransition{SelfProbability: sigma}
	case "distance":
		opts.Transition = matching.GraphDistanceTransition{Normalize: m.Transition.Normalize}
	case "topology", "":
		opts.Transition = matching.TopologyTransition{}
	default:
		log.Printf("[config] unknown transition strategy %q, using topology", m.Transition.Strategy)
		opts.Transition = matching.TopologyTransition{}
	}

	switch m.Emission.Strategy {
	case "circle":
		opts.Emission = matching.CircleBufferEmission{Radius: m.Emission.Radius, Window: m.Emission.Window}
	case "cell", "":
		opts.Emission = matching.CellBufferEmission{Radius: m.Emission.Radius}
	default:
		log.Printf("[config] unknown emission strategy %q, using cell", m.Emission.Strategy)
		opts.Emission = matching.CellBufferEmission{Radius: m.Emission.Radius}
	}
	return opts
}
