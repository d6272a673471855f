// instancemesh builds per-object meshes from semantic scene assets.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/config"
	"github.com/Faultbox/instancemesh/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.JSON = cfg.Logging.JSON
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	command, rest := args[0], args[1:]
	switch command {
	case "info":
		err = cmdInfo(cfg, rest)
	case "export":
		err = cmdExport(cfg, rest)
	case "build":
		err = cmdBuild(cfg, rest)
	case "upload":
		err = cmdUpload(cfg, rest)
	case "attrs":
		err = cmdAttrs(cfg, rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`instancemesh - semantic instance mesh pipeline

Usage:
  instancemesh [flags] <command> [options]

Commands:
  info <asset> [descriptor.json]     Show per-object mesh statistics
  export <asset> [output]            Write meshes as glTF
  build <name.semantic_config.json>  Build and export from a semantic asset config
  upload <asset>                     Upload meshes to a GL context and render ids
  attrs <dir> [pattern]              List semantic asset configs

Flags:
  -config <file>   Config file (.yaml or .toml)
  -debug           Debug logging
  -split/-no-split Partition by explicit object id
  -out <dir>       Export directory
  -gltf            Export JSON .gltf instead of .glb
  -gpu             Enable GL upload during build
  -width/-height   GL surface size

Examples:
  instancemesh info mesh_semantic.ply info_semantic.json
  instancemesh -no-split export mesh_semantic.ply scene.glb
  instancemesh upload -shot ids.png mesh_semantic.ply
  instancemesh attrs ./configs "*apartment*"`)
}
