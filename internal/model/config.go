package model

import "time"

// Config is the complete entorg configuration
type Config struct {
	Organisations OrganisationConfig `yaml:"organisations" mapstructure:"organisations"`
	Lookup        LookupConfig       `yaml:"lookup" mapstructure:"lookup"`
	Fingerprint   FingerprintConfig  `yaml:"fingerprint" mapstructure:"fingerprint"`
	Reporting     ReportingConfig    `yaml:"reporting" mapstructure:"reporting"`
	HTTP          HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache         CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency   ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting  RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Log           LogConfig          `yaml:"log" mapstructure:"log"`
}

// OrganisationConfig drives organisation normalisation and the resolution policy
type OrganisationConfig struct {
	GovernmentPrefix     string            `yaml:"government_prefix" mapstructure:"government_prefix"`
	LocalAuthorityPrefix string            `yaml:"local_authority_prefix" mapstructure:"local_authority_prefix"`
	IgnoredAuthority     string            `yaml:"ignored_authority" mapstructure:"ignored_authority"`         // Dropped when another LA claims the entity
	GovernmentPreference []string          `yaml:"government_preference" mapstructure:"government_preference"` // Highest priority first
	Placeholders         []string          `yaml:"placeholders" mapstructure:"placeholders"`                   // Compared case-insensitively
	Aliases              map[string]string `yaml:"aliases,omitempty" mapstructure:"aliases"`                   // old -> current identifier
	Kinds                map[string]string `yaml:"kinds,omitempty" mapstructure:"kinds"`                       // Explicit kind per identifier, overrides prefixes
}

// LookupConfig names the per-pipeline files read and written by the range builder
type LookupConfig struct {
	FileName      string   `yaml:"file_name" mapstructure:"file_name"`
	OutputName    string   `yaml:"output_name" mapstructure:"output_name"`
	OverlapName   string   `yaml:"overlap_name" mapstructure:"overlap_name"`
	ConflictName  string   `yaml:"conflict_name" mapstructure:"conflict_name"`
	Datasets      []string `yaml:"datasets,omitempty" mapstructure:"datasets"` // Empty keeps every dataset
	DecisionsFile string   `yaml:"decisions_file,omitempty" mapstructure:"decisions_file"`
}

// FingerprintConfig controls which fields are compared and how values are normalised
type FingerprintConfig struct {
	VolatileFields      []string `yaml:"volatile_fields" mapstructure:"volatile_fields"`
	TrimSpace           bool     `yaml:"trim_space" mapstructure:"trim_space"`
	CollapseSpace       bool     `yaml:"collapse_space" mapstructure:"collapse_space"`
	CoordinatePrecision int      `yaml:"coordinate_precision" mapstructure:"coordinate_precision"` // -1 disables rounding
}

// ReportingConfig locates the remote reporting tables and transformed snapshots
type ReportingConfig struct {
	HistoricEndpointsURL string `yaml:"historic_endpoints_url" mapstructure:"historic_endpoints_url"`
	TransformedURL       string `yaml:"transformed_url" mapstructure:"transformed_url"` // {collection} {dataset} {resource} placeholders
	IssueSummaryURL      string `yaml:"issue_summary_url" mapstructure:"issue_summary_url"`
}

// HTTPConfig holds settings for downloading reporting tables
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig holds download cache settings
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig limits requests per reporting host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LogConfig selects the logger mode ("dev" or "prod")
type LogConfig struct {
	Mode  string `yaml:"mode" mapstructure:"mode"`
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the configuration used when no file or env overrides exist
func DefaultConfig() *Config {
	return &Config{
		Organisations: OrganisationConfig{
			GovernmentPrefix:     "government-organisation:",
			LocalAuthorityPrefix: "local-authority:",
			IgnoredAuthority:     "local-authority:GLA",
			GovernmentPreference: []string{
				"government-organisation:PB1164",
				"government-organisation:D1342",
			},
			Placeholders: []string{"", "nan", "none"},
		},
		Lookup: LookupConfig{
			FileName:     "lookup.csv",
			OutputName:   "entity-organisation.csv",
			OverlapName:  "entity-organisation-overlaps.csv",
			ConflictName: "entity-organisation-conflicts.csv",
		},
		Fingerprint: FingerprintConfig{
			VolatileFields:      []string{"reference", "entry-date"},
			CoordinatePrecision: -1,
		},
		Reporting: ReportingConfig{
			HistoricEndpointsURL: "https://datasette.planning.data.gov.uk/performance/reporting_historic_endpoints.csv",
			TransformedURL:       "https://files.planning.data.gov.uk/{collection}-collection/transformed/{dataset}/{resource}.csv",
			IssueSummaryURL:      "https://datasette.planning.data.gov.uk/performance/endpoint_dataset_issue_type_summary.csv?_sort=rowid&issue_type__exact=unknown+entity&_size=max",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "entorg/0.1 (+https://github.com/ppiankov/entorg)",
			MaxBodyBytes: 512 << 20,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".entorg-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Log: LogConfig{
			Mode:  "dev",
			Level: "info",
		},
	}
}
