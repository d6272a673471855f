package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/instancemesh/internal/assets"
	"github.com/Faultbox/instancemesh/internal/attributes"
	"github.com/Faultbox/instancemesh/internal/config"
	"github.com/Faultbox/instancemesh/internal/export"
	"github.com/Faultbox/instancemesh/internal/gpu"
	"github.com/Faultbox/instancemesh/internal/instancemesh"
	"github.com/Faultbox/instancemesh/internal/logger"
	"github.com/Faultbox/instancemesh/internal/semantic"
	pkgmath "github.com/Faultbox/instancemesh/pkg/math"
)

var errUsage = errors.New("invalid arguments")

func newAssetManager(cfg *config.Config) *assets.Manager {
	mgr := assets.NewManager(cfg.PipelineOptions())
	for _, dir := range cfg.Import.SearchPaths {
		if err := mgr.AddSearchPath(dir); err != nil {
			logger.Warn("skipping search path", zap.String("dir", dir), zap.Error(err))
		}
	}
	return mgr
}

func loadDescriptor(path string, opts instancemesh.Options) (*semantic.Scene, error) {
	world := instancemesh.NewFrameNormalizerWithFront(opts.NativeGravity, opts.NativeFront, opts.Gravity, opts.Front).Rotation()
	return semantic.LoadFile(path, world)
}

func cmdInfo(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: instancemesh info <asset> [descriptor.json]")
		return errUsage
	}

	mgr := newAssetManager(cfg)
	defer mgr.Close()

	meshes, err := mgr.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	var scene *semantic.Scene
	if fs.NArg() > 1 {
		if scene, err = loadDescriptor(fs.Arg(1), cfg.PipelineOptions()); err != nil {
			return err
		}
	}

	fmt.Printf("Asset:  %s\n", fs.Arg(0))
	fmt.Printf("Result: %s\n", instancemesh.Summarize(meshes))
	fmt.Println()
	fmt.Printf("  %-8s %-10s %-10s %-24s %s\n", "object", "vertices", "triangles", "size", "category")
	for i, m := range meshes {
		label := fmt.Sprintf("#%d", i)
		category := "-"
		if id, ok := m.ObjectID(); ok {
			label = fmt.Sprintf("%d", id)
			if scene != nil {
				if name, ok := scene.Category(int(id)); ok {
					category = name
				}
			}
		}
		size := m.Bounds().Size()
		fmt.Printf("  %-8s %-10d %-10d %-24s %s\n", label, m.VertexCount(), m.TriangleCount(),
			fmt.Sprintf("%.2f x %.2f x %.2f", size[0], size[1], size[2]), category)
	}
	return nil
}

func cmdExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: instancemesh export <asset> [output]")
		return errUsage
	}

	mgr := newAssetManager(cfg)
	defer mgr.Close()

	meshes, err := mgr.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	out := export.OutputPath(cfg.Export.OutputDir, fs.Arg(0), cfg.Export.Binary)
	if fs.NArg() > 1 {
		out = fs.Arg(1)
	}
	return writeExport(meshes, out, cfg.Export.Binary)
}

func writeExport(meshes []*instancemesh.InstanceMesh, out string, binary bool) error {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := export.Write(meshes, out, binary); err != nil {
		return err
	}
	fmt.Printf("Wrote %d meshes to %s\n", len(meshes), out)
	return nil
}

func cmdBuild(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: instancemesh build <name.semantic_config.json>")
		return errUsage
	}

	lib := attributes.NewManager()
	attrs, err := lib.LoadByPath(fs.Arg(0))
	if err != nil {
		return err
	}
	asset := attrs.InstanceAsset()
	if asset == "" {
		return fmt.Errorf("%s: neither semantic_asset nor render_asset set", attrs.Handle)
	}

	opts := attrs.Options(cfg.PipelineOptions())
	assetPath := resolveRelative(attrs.FileDirectory, asset)
	meshes, err := instancemesh.Load(assetPath, opts)
	if err != nil {
		return err
	}

	if attrs.SemanticDescriptor != "" {
		scene, err := loadDescriptor(resolveRelative(attrs.FileDirectory, attrs.SemanticDescriptor), opts)
		if err != nil {
			return err
		}
		logger.Info("semantic descriptor loaded",
			zap.Int("categories", scene.CategoryCount()),
			zap.Int("objects", scene.ObjectCount()))
	}

	out := export.OutputPath(cfg.Export.OutputDir, assetPath, cfg.Export.Binary)
	if err := writeExport(meshes, out, cfg.Export.Binary); err != nil {
		return err
	}

	if cfg.GPU.Enabled {
		return uploadAndRender(cfg, meshes, opts.Gravity, "")
	}
	return nil
}

func resolveRelative(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

func cmdUpload(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	shot := fs.String("shot", "", "Save the object id render to a .png or .bmp file")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: instancemesh upload [-shot file] <asset>")
		return errUsage
	}

	mgr := newAssetManager(cfg)
	defer mgr.Close()

	meshes, err := mgr.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	return uploadAndRender(cfg, meshes, cfg.PipelineOptions().Gravity, *shot)
}

func uploadAndRender(cfg *config.Config, meshes []*instancemesh.InstanceMesh, gravity mgl32.Vec3, shot string) error {
	ctx, err := gpu.NewContext(gpu.ContextConfig{
		Title:   "instancemesh",
		Width:   cfg.GPU.Width,
		Height:  cfg.GPU.Height,
		Visible: cfg.GPU.Visible,
	})
	if err != nil {
		return err
	}
	defer ctx.Close()

	backend := gpu.NewBackend()
	defer backend.Destroy()

	// The second pass must not create new GL objects.
	for pass := 0; pass < 2; pass++ {
		for _, m := range meshes {
			if err := m.Upload(backend, false); err != nil {
				return err
			}
		}
	}
	fmt.Printf("Uploaded %d meshes (%d GL meshes live)\n", len(meshes), backend.Len())

	idPass, err := gpu.NewIDPass()
	if err != nil {
		return err
	}
	defer idPass.Destroy()

	bounds := pkgmath.EmptyBounds()
	for _, m := range meshes {
		b := m.Bounds()
		if !b.IsEmpty() {
			bounds.Extend(b.Min)
			bounds.Extend(b.Max)
		}
	}

	width, height := ctx.Size()
	pixels, err := idPass.Render(backend, meshes, gpu.FitViewProj(bounds, gravity), width, height)
	if err != nil {
		return err
	}
	counts := gpu.CountIDs(pixels)
	fmt.Printf("Visible object ids: %d\n", len(counts))

	if shot != "" {
		if err := gpu.SaveImage(shot, pixels, width, height); err != nil {
			return err
		}
		fmt.Printf("Saved id render to %s\n", shot)
	}
	for _, m := range meshes {
		m.Release()
	}
	return nil
}

func cmdAttrs(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("attrs", flag.ExitOnError)
	save := fs.String("save", "", "Save a copy of the config with this handle")
	overwrite := fs.Bool("overwrite", false, "Overwrite instead of writing a numbered copy")
	watch := fs.Bool("watch", cfg.Attributes.Watch, "Reload configs as they change until interrupted")
	fs.Parse(args)

	dir := cfg.Attributes.Dir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Usage: instancemesh attrs <dir> [pattern]")
		return errUsage
	}

	lib := attributes.NewManager()
	n, err := lib.LoadDirectory(dir)
	if err != nil {
		return err
	}

	pattern := ""
	if fs.NArg() > 1 {
		pattern = filepath.Join(dir, fs.Arg(1))
	}
	handles, err := lib.Handles(pattern)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d configs from %s\n", n, dir)
	for _, h := range handles {
		a, _ := lib.Get(h)
		fmt.Printf("  %-40s %s (split=%v)\n", h, a.SemanticAsset, a.SplitInstanceMesh)
	}

	if *save != "" {
		path, err := lib.SaveByHandle(*save, *overwrite)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
	}

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := lib.Watch(ctx, dir, func(h string) { fmt.Printf("Reloaded %s\n", h) }); err != nil {
			return err
		}
		fmt.Println("Watching for changes, Ctrl+C to stop")
		<-ctx.Done()
	}
	return nil
}
