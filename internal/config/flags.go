package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagSplit   = flag.Bool("split", false, "Split meshes by object id")
	flagNoSplit = flag.Bool("no-split", false, "Keep each asset as one mesh")
	flagOut     = flag.String("out", "", "Export output directory")
	flagGLTF    = flag.Bool("gltf", false, "Export JSON .gltf instead of .glb")
	flagGPU     = flag.Bool("gpu", false, "Upload meshes to a GL context")
	flagWidth   = flag.Int("width", 0, "GL surface width")
	flagHeight  = flag.Int("height", 0, "GL surface height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSplit {
		cfg.Pipeline.Split = true
	}
	if *flagNoSplit {
		cfg.Pipeline.Split = false
	}
	if *flagOut != "" {
		cfg.Export.OutputDir = *flagOut
	}
	if *flagGLTF {
		cfg.Export.Binary = false
	}
	if *flagGPU {
		cfg.GPU.Enabled = true
	}
	if *flagWidth > 0 {
		cfg.GPU.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.GPU.Height = *flagHeight
	}
}
