package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/faiface/beep/wav"
	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/filter"
	"github.com/gogpu/camfx/gpu"
	"github.com/gogpu/camfx/internal/config"
	"github.com/gogpu/camfx/source"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Run executes the render loop.
func Run(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if audio := ctx.String("audio"); audio != "" {
		cfg.Audio.Path = audio
	}
	outDir := ctx.String("out")
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if outDir == "" {
		outDir = filepath.Join("runs", uuid.NewString())
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, stream, err := openSource(runCtx, cfg)
	if err != nil {
		return err
	}

	writer, err := newFrameWriter(outDir, cfg.Output.Format, cfg.Output.Quality, cfg.Output.Every)
	if err != nil {
		return err
	}

	c := camfx.New(
		camfx.WithDefaultSize(cfg.Canvas.Width, cfg.Canvas.Height),
		camfx.WithRefreshRate(cfg.Canvas.RefreshRate),
		camfx.WithTickTimeout(cfg.TickTimeout()),
		camfx.WithSink(writer),
	)
	defer c.Close()

	backend, err := gpu.Open(cfg.GPU.Backend)
	if err != nil {
		return err
	}
	deps := config.Deps{
		Detector: filter.DetectorFunc(skinDetector),
		Backend:  backend,
	}
	if cfg.NeedsAudio() {
		if cfg.Audio.Path == "" {
			return config.ErrNoAudio
		}
		f, err := os.Open(cfg.Audio.Path)
		if err != nil {
			return fmt.Errorf("open audio: %w", err)
		}
		streamer, format, err := wav.Decode(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("decode audio %s: %w", cfg.Audio.Path, err)
		}
		defer streamer.Close()
		deps.Audio, deps.Rate = streamer, format.SampleRate
	}

	chain, err := cfg.Build(runCtx, c, deps)
	defer chain.Close()
	if err != nil {
		return err
	}
	if err := c.AttachSource(src); err != nil {
		return err
	}
	logger.Info("camfx: running", "compositor", c.ID(), "filters", chain.Names, "out", outDir)

	if err := loop(runCtx, c, cfg.Canvas.RefreshRate, ctx.Int("ticks")); err != nil &&
		!errors.Is(err, context.Canceled) {
		return err
	}
	if err := c.Wait(context.Background()); err != nil {
		return err
	}

	displayStats(c.Stats(), stream, writer)
	return nil
}

// openSource creates the configured source. Directory sources are started
// on ctx and returned with their stream for statistics.
func openSource(ctx context.Context, cfg *config.Config) (camfx.Source, *source.Stream, error) {
	switch cfg.Source.Kind {
	case config.SourceStill:
		s, err := source.LoadStill(cfg.Source.Path)
		return s, nil, err
	case config.SourceDir:
		d := source.NewDir(cfg.Source.Path)
		go func() {
			if err := d.Run(ctx); err != nil {
				logger.Error("camfx: directory source stopped", "path", d.Path(), "err", err)
			}
		}()
		return d, d.Stream, nil
	default:
		return source.NewStill(source.TestPattern(cfg.Canvas.Width, cfg.Canvas.Height)), nil, nil
	}
}

// loop ticks the compositor n times, or until ctx is done when n is zero.
func loop(ctx context.Context, c *camfx.Compositor, hz float64, n int) error {
	if n <= 0 {
		return c.Run(ctx)
	}
	clock := camfx.NewRefreshClock(hz)
	defer clock.Stop()

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.C():
		}
		if err := c.Tick(ctx); err != nil {
			if errors.Is(err, camfx.ErrSourceNotBound) {
				continue
			}
			return err
		}
	}
	return nil
}

func displayStats(stats camfx.Stats, stream *source.Stream, writer *frameWriter) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"Counter", "Value"})
	table.Append([]string{"ticks", fmt.Sprintf("%d", stats.Ticks)})
	table.Append([]string{"composites", fmt.Sprintf("%d", stats.Composites)})
	table.Append([]string{"commits", fmt.Sprintf("%d", stats.Commits)})
	table.Append([]string{"dropped ticks", fmt.Sprintf("%d", stats.Dropped)})
	table.Append([]string{"failed ticks", fmt.Sprintf("%d", stats.Failed)})
	if stream != nil {
		frames, dropped := stream.Stats()
		table.Append([]string{"source frames", fmt.Sprintf("%d", frames)})
		table.Append([]string{"source drops", fmt.Sprintf("%d", dropped)})
	}
	table.Append([]string{"frames written", fmt.Sprintf("%d", writer.written.Load())})
	table.SetFooter([]string{"last composite", stats.LastComposite.String()})
	table.Render()

	fmt.Printf("output: %s\n%s", writer.dir, buf.String())
}
