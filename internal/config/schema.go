package config

// Config holds scanpress configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Provider ProviderCfg `mapstructure:"provider" yaml:"provider"`
	Pipeline PipelineCfg `mapstructure:"pipeline" yaml:"pipeline"`
	Output   OutputCfg   `mapstructure:"output" yaml:"output"`
	Server   ServerCfg   `mapstructure:"server" yaml:"server"`
}

// ProviderCfg configures the vision provider used for OCR.
type ProviderCfg struct {
	Type   string `mapstructure:"type" yaml:"type"`       // "gemini", "openai"
	Model  string `mapstructure:"model" yaml:"model"`     // Model name
	APIKey string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
}

// PipelineCfg tunes the page-processing pipeline.
type PipelineCfg struct {
	MaxRetries       int `mapstructure:"max_retries" yaml:"max_retries"`             // Attempts per page on transient errors
	BaseDelaySeconds int `mapstructure:"base_delay_seconds" yaml:"base_delay_seconds"` // Backoff base, doubled per attempt
	PageDelaySeconds int `mapstructure:"page_delay_seconds" yaml:"page_delay_seconds"` // Pause between page requests
	CheckpointEvery  int `mapstructure:"checkpoint_every" yaml:"checkpoint_every"`   // Pages between checkpoint writes
	SweepAttempts    int `mapstructure:"sweep_attempts" yaml:"sweep_attempts"`       // Extra passes per failed page
	DPI              int `mapstructure:"dpi" yaml:"dpi"`                             // Rasterization resolution
}

// OutputCfg controls where and how results are written.
type OutputCfg struct {
	Dir     string   `mapstructure:"dir" yaml:"dir"`         // Output directory (empty: {home}/output)
	Formats []string `mapstructure:"formats" yaml:"formats"` // "docx", "txt", "html"
}

// ServerCfg configures the control server.
type ServerCfg struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderCfg{
			Type:   "gemini",
			Model:  "gemini-2.5-flash",
			APIKey: "${GEMINI_API_KEY}",
		},
		Pipeline: PipelineCfg{
			MaxRetries:       5,
			BaseDelaySeconds: 6,
			PageDelaySeconds: 6,
			CheckpointEvery:  10,
			SweepAttempts:    1,
			DPI:              300,
		},
		Output: OutputCfg{
			Formats: []string{"docx"},
		},
		Server: ServerCfg{
			Addr: "localhost:8585",
		},
	}
}
