// Package config handles pipeline configuration loading and management.
package config

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/instancemesh/internal/instancemesh"
)

// Config holds all pipeline settings.
type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline" toml:"pipeline"`
	Import     ImportConfig     `yaml:"import" toml:"import"`
	Export     ExportConfig     `yaml:"export" toml:"export"`
	GPU        GPUConfig        `yaml:"gpu" toml:"gpu"`
	Attributes AttributesConfig `yaml:"attributes" toml:"attributes"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// PipelineConfig holds instance mesh build settings.
type PipelineConfig struct {
	Split         bool       `yaml:"split" toml:"split"`                   // Partition by explicit object id
	Gravity       [3]float32 `yaml:"gravity" toml:"gravity"`               // Engine gravity direction
	NativeGravity [3]float32 `yaml:"native_gravity" toml:"native_gravity"` // Asset gravity direction
}

// ImportConfig holds asset lookup settings.
type ImportConfig struct {
	SearchPaths []string `yaml:"search_paths" toml:"search_paths"` // Later entries win
}

// ExportConfig holds glTF export settings.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" toml:"output_dir"`
	Binary    bool   `yaml:"binary" toml:"binary"` // .glb instead of .gltf
}

// GPUConfig holds upload context settings.
type GPUConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Width   int  `yaml:"width" toml:"width"`
	Height  int  `yaml:"height" toml:"height"`
	Visible bool `yaml:"visible" toml:"visible"`
}

// AttributesConfig holds semantic asset configuration settings.
type AttributesConfig struct {
	Dir   string `yaml:"dir" toml:"dir"`
	Watch bool   `yaml:"watch" toml:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
	JSON    bool   `yaml:"json" toml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Split:         true,
			Gravity:       [3]float32{0, -1, 0},
			NativeGravity: [3]float32{0, 0, -1},
		},
		Import: ImportConfig{
			SearchPaths: []string{"."},
		},
		Export: ExportConfig{
			OutputDir: "out",
			Binary:    true,
		},
		GPU: GPUConfig{
			Enabled: false,
			Width:   640,
			Height:  480,
		},
		Attributes: AttributesConfig{
			Dir:   "",
			Watch: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// PipelineOptions converts the pipeline section to instance mesh options.
func (c *Config) PipelineOptions() instancemesh.Options {
	opts := instancemesh.DefaultOptions()
	opts.Split = c.Pipeline.Split
	opts.Gravity = mgl32.Vec3(c.Pipeline.Gravity)
	opts.NativeGravity = mgl32.Vec3(c.Pipeline.NativeGravity)
	return opts
}
