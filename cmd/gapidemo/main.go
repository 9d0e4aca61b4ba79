// Command gapidemo draws a rotating triangle through a gapi backend chosen
// at runtime.
package main

import (
	"context"
	_ "embed"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/backend"
	"github.com/gogpu/gapi/backend/native"
	"github.com/gogpu/gapi/param"
	"github.com/gogpu/gapi/renderer"
)

//go:embed triangle.wgsl
var triangleSource string

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		backendArg = flag.String("backend", "", "backend name (default: best available)")
		width      = flag.Uint("width", 800, "target width")
		height     = flag.Uint("height", 600, "target height")
		frames     = flag.Int("frames", 120, "frames to render, 0 until interrupted")
		effectPath = flag.String("effect", "", "WGSL effect file")
		watch      = flag.Bool("watch", false, "reload the effect file when it changes")
		debug      = flag.Bool("debug", false, "debug logging")
		list       = flag.Bool("list", false, "list backends and exit")
		window     = flag.Bool("window", false, "render with the device of a gogpu window")
	)
	flag.Parse()

	if *list {
		for _, name := range backend.Available() {
			fmt.Println(name)
		}
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backendArg
		case "width":
			cfg.Width = uint32(*width)
		case "height":
			cfg.Height = uint32(*height)
		case "frames":
			cfg.Frames = *frames
		case "effect":
			cfg.Effect = *effectPath
		case "watch":
			cfg.Watch = *watch
		case "debug":
			cfg.Debug = *debug
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	gapi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runFn := run
	if *window {
		runFn = runWindow
	}
	if err := runFn(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

// openBackend initializes the configured backend. The native backend gets
// the configured size; other backends use their defaults.
func openBackend(cfg Config) (gapi.GAPI, error) {
	switch cfg.Backend {
	case "":
		return backend.InitDefault()
	case backend.NameNative:
		g := native.NewStandalone(native.WithSize(cfg.Width, cfg.Height), native.WithLabel("gapidemo"))
		if err := g.Initialize(); err != nil {
			return nil, err
		}
		return g, nil
	}
	return backend.Init(cfg.Backend)
}

func run(ctx context.Context, cfg Config) error {
	g, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer g.Destroy()

	d, err := newDemo(ctx, g, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	for frame := 0; cfg.Frames == 0 || frame < cfg.Frames; frame++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := d.frame(frame); err != nil {
			return err
		}
	}
	d.report()
	return nil
}

// demo draws the scene on one backend.
type demo struct {
	g      gapi.GAPI
	r      *renderer.Renderer
	cfg    Config
	effect *renderer.Effect
	scene  *scene
	reload <-chan string
	aspect mat4
}

func newDemo(ctx context.Context, g gapi.GAPI, cfg Config) (*demo, error) {
	r, err := renderer.New(g)
	if err != nil {
		return nil, err
	}
	d := &demo{g: g, r: r, cfg: cfg, aspect: aspectScale(cfg.Width, cfg.Height)}

	source := triangleSource
	if cfg.Effect != "" {
		b, err := os.ReadFile(cfg.Effect)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("gapidemo: read effect: %w", err)
		}
		source = string(b)
	}
	if d.effect, err = r.NewEffect("triangle", "vs_main", "fs_main", source); err != nil {
		r.Close()
		return nil, err
	}
	if d.scene, err = newScene(r, d.effect, cfg); err != nil {
		d.effect.Destroy()
		r.Close()
		return nil, err
	}
	if cfg.Watch {
		if d.reload, err = watchEffect(ctx, cfg.Effect); err != nil {
			d.close()
			return nil, err
		}
	}
	return d, nil
}

// frame renders frame n, first swapping in a reloaded effect if one is
// pending.
func (d *demo) frame(n int) error {
	select {
	case src := <-d.reload:
		d.swapEffect(src)
	default:
	}

	wvp := multiply(d.aspect, rotationZ(float32(n)*d.cfg.Speed))
	if err := d.scene.wvp.SetFloats(wvp[:]...); err != nil {
		return err
	}
	if !d.r.BeginFrame() {
		return nil
	}
	c := d.cfg.Clear
	d.g.Clear(gapi.ClearColor|gapi.ClearDepth, gapi.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}, 1, 0)
	if err := d.r.Render(d.scene.element, nil); err != nil {
		gapi.Logger().Warn("gapidemo: render failed", "err", err)
	}
	d.r.EndFrame()
	return nil
}

func (d *demo) swapEffect(src string) {
	next, err := d.r.NewEffect("triangle", "vs_main", "fs_main", src)
	if err != nil {
		gapi.Logger().Warn("gapidemo: effect reload failed", "err", err)
		return
	}
	d.scene.material.SetEffect(next)
	d.effect.Destroy()
	d.effect = next
	gapi.Logger().Info("gapidemo: effect reloaded", "path", d.cfg.Effect)
}

func (d *demo) report() {
	s := d.g.Stats()
	gapi.Logger().Info("gapidemo: done", "draws", s.DrawCalls, "submits", s.Submits, "resets", s.Resets)
}

func (d *demo) close() {
	d.scene.destroy()
	d.effect.Destroy()
	d.r.Close()
}

// scene is one triangle and the params that drive it.
type scene struct {
	vertices *renderer.Buffer
	bank     *renderer.StreamBank
	material *renderer.Material
	element  *renderer.DrawElement
	wvp      *param.Param
}

func newScene(r *renderer.Renderer, effect *renderer.Effect, cfg Config) (*scene, error) {
	positions := []float32{
		0, 0.8, 0,
		-0.7, -0.6, 0,
		0.7, -0.6, 0,
	}
	data := make([]byte, 0, 4*len(positions))
	for _, f := range positions {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
	}

	sc := &scene{}
	var err error
	if sc.vertices, err = r.NewVertexBuffer(data, 0); err != nil {
		return nil, err
	}
	sc.bank, err = r.NewStreamBank("triangle", renderer.Stream{
		Buffer:   sc.vertices,
		Stride:   12,
		Type:     gapi.VertexFloat3,
		Semantic: gapi.SemanticPosition,
	})
	if err != nil {
		sc.vertices.Destroy()
		return nil, err
	}

	sc.material = r.NewMaterial("triangle", effect)
	tint, err := sc.material.CreateParam("tint", param.TypeFloat4)
	if err != nil {
		sc.destroy()
		return nil, err
	}
	if err := tint.SetFloats(cfg.Tint[:]...); err != nil {
		sc.destroy()
		return nil, err
	}

	prim := r.NewPrimitive("triangle", sc.bank, gapi.PrimitiveTriangles, 1, 3)
	sc.element = r.NewDrawElement("triangle", prim, sc.material)
	if sc.wvp, err = sc.element.CreateParam("transform", param.TypeMatrix4); err != nil {
		sc.destroy()
		return nil, err
	}
	sc.wvp.SetSemantic("WorldViewProjection")
	return sc, nil
}

func (sc *scene) destroy() {
	if sc.bank != nil {
		sc.bank.Destroy()
	}
	if sc.vertices != nil {
		sc.vertices.Destroy()
	}
}
