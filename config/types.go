package config

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int      `yaml:"port" validate:"gt=0,lte=65535"`
	AllowedOrigins   []string `yaml:"allowedOrigins" validate:"dive,required"`
	MetricsIntervalS int      `yaml:"metricsIntervalS" validate:"gte=0"` // runtime metrics log period
	SessionTTLS      int      `yaml:"sessionTTLS" validate:"gte=0"`      // idle time before a session is closed
}

// BuildingConfig selects the building model file
type BuildingConfig struct {
	Path          string  `yaml:"path" validate:"required"`
	Format        string  `yaml:"format" validate:"oneof=geojson osm"`
	DoorTolerance float64 `yaml:"doorTolerance" validate:"gte=0"`
}

// TransitionConfig selects the transition matrix strategy
type TransitionConfig struct {
	Strategy        string   `yaml:"strategy" validate:"oneof=topology static distance"`
	SelfProbability *float64 `yaml:"selfProbability" validate:"omitempty,gte=0,lte=1"`
	Normalize       bool     `yaml:"normalize"`
}

// EmissionConfig selects the emission matrix strategy
type EmissionConfig struct {
	Strategy string  `yaml:"strategy" validate:"oneof=cell circle"`
	Radius   float64 `yaml:"radius" validate:"gt=0"`
	Window   int     `yaml:"window" validate:"gte=0"`
}

// MatcherConfig contains HMM matcher configuration
type MatcherConfig struct {
	CandidateRadius    float64          `yaml:"candidateRadius" validate:"gt=0"`
	InitialRadius      float64          `yaml:"initialRadius" validate:"gt=0"`
	MaxRadiusDoublings *int             `yaml:"maxRadiusDoublings" validate:"omitempty,gte=0,lte=30"`
	MaxHistory         *int             `yaml:"maxHistory" validate:"omitempty,gte=0"` // 0 keeps the whole history
	FallbackToDirect   *bool            `yaml:"fallbackToDirect"`
	Transition         TransitionConfig `yaml:"transition"`
	Emission           EmissionConfig   `yaml:"emission"`
}

// RoutingConfig contains router and resampling configuration
type RoutingConfig struct {
	MaxStep float64 `yaml:"maxStep" validate:"gt=0"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Building BuildingConfig `yaml:"building"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Routing  RoutingConfig  `yaml:"routing"`
}
