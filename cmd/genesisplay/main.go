// Command genesisplay is a headless driver for the VGM/GEP interpreters:
// it decodes a stream at sample-accurate timing against a ChipBus, prints
// track metadata, or indexes a directory of tracks. It never produces
// audio output; WriteDAC/WriteYM/WritePSG calls land on a NullBus (or a
// LoggingBus wrapping one), since rendering samples to a sound device is
// out of scope.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/dewi-tim/genesisplay/internal/bus"
	"github.com/dewi-tim/genesisplay/internal/catalog"
	"github.com/dewi-tim/genesisplay/internal/engine"
	"github.com/dewi-tim/genesisplay/internal/gep"
	"github.com/dewi-tim/genesisplay/internal/pcm"
	"github.com/dewi-tim/genesisplay/internal/source"
	"github.com/dewi-tim/genesisplay/internal/vgm"
)

func main() {
	app := cli.NewApp()
	app.Name = "genesisplay"
	app.Usage = "decode and drive VGM/GEP command streams for the Genesis YM2612/SN76489 pair"
	app.Commands = []cli.Command{
		playCommand(),
		infoCommand(),
		scanCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "genesisplay:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openSource(path string, log *slog.Logger) (source.Source, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".vgz"):
		return source.NewGzipStreamSource(path, log), nil
	default:
		return source.NewFileSource(path), nil
	}
}

func playCommand() cli.Command {
	return cli.Command{
		Name:      "play",
		Usage:     "run a stream's timed interpreter loop against a (silent) ChipBus until it finishes",
		ArgsUsage: "<file.vgm|file.vgz|file.gep>",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "loop", Usage: "seek to the declared loop point instead of stopping"},
			cli.BoolFlag{Name: "verbose", Usage: "log every mute/reset and loop event"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.NewExitError("genesisplay play: missing file argument", 1)
			}
			log := newLogger(c.Bool("verbose"))

			chipBus := bus.NewLoggingBus(bus.NewNullBus(false), log)
			player, err := buildPlayer(path, chipBus, engine.Options{Looping: c.Bool("loop"), PCM: pcm.Options{}}, log)
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}

			player.Play()
			for player.State() == engine.StatePlaying {
				player.Tick()
				time.Sleep(time.Millisecond)
			}

			status := player.StatusSnapshot()
			fmt.Printf("finished: state=%s samples=%d/%d loops=%d\n",
				status.State, status.CurrentSample, status.TotalSamples, status.LoopCount)
			return nil
		},
	}
}

func infoCommand() cli.Command {
	return cli.Command{
		Name:      "info",
		Usage:     "print a track's header and GD3 metadata without playing it",
		ArgsUsage: "<file.vgm|file.vgz|file.gep>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.NewExitError("genesisplay info: missing file argument", 1)
			}
			return printInfo(path)
		},
	}
}

func scanCommand() cli.Command {
	return cli.Command{
		Name:      "scan",
		Usage:     "index a directory of VGM/GEP files and print the resulting system/game/track tree",
		ArgsUsage: "<directory>",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "verbose", Usage: "log unreadable files encountered during the scan"},
		},
		Action: func(c *cli.Context) error {
			dir := c.Args().First()
			if dir == "" {
				dir = "."
			}
			log := newLogger(c.Bool("verbose"))
			cat := catalog.New(dir, log)
			n, err := cat.Scan()
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			fmt.Printf("indexed %d tracks under %s\n", n, dir)
			for _, sys := range cat.Systems() {
				fmt.Printf("%s\n", sys)
				for _, game := range cat.Games(sys) {
					g := cat.GetGame(sys, game)
					fmt.Printf("  %s\n", game)
					for _, t := range g.Tracks {
						fmt.Printf("    [%s] %s\n", t.Format, t.Title)
					}
				}
			}
			return nil
		},
	}
}

func printInfo(path string) error {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gep") {
		src := source.NewFileSource(path)
		if err := src.Open(); err != nil {
			return err
		}
		defer src.Close()
		h, err := gep.ParseHeader(src)
		if err != nil {
			return err
		}
		fmt.Printf("format: GEP\ntotal_samples: %d\nhas_loop: %t\nhas_ym2612: %t\nhas_psg: %t\nhas_dac: %t\nmulti_chunk: %t\n",
			h.TotalSamples, h.HasLoop(), h.HasYM2612(), h.HasPSG(), h.HasDAC(), h.MultiChunk())
		return nil
	}

	src, err := openSource(path, nil)
	if err != nil {
		return err
	}
	if err := src.Open(); err != nil {
		return err
	}
	defer src.Close()

	h, err := vgm.ParseHeader(src)
	if err != nil {
		return err
	}
	fmt.Printf("format: VGM\nversion: 0x%03x\ntotal_samples: %d\nhas_loop: %t\nhas_ym2612: %t\nhas_psg: %t\n",
		h.Version, h.TotalSamples, h.HasLoop(), h.HasYM2612, h.HasPSG)

	if meta, gd3Err := vgm.ParseGD3(src, h); gd3Err == nil {
		fmt.Printf("title: %s\ngame: %s\nsystem: %s\ncomposer: %s\n", meta.TitleEn, meta.GameEn, meta.SystemEn, meta.ComposerEn)
	}
	return nil
}

// buildPlayer opens path, parses its header, and wires a ready-to-play
// engine.Player bound to chipBus. Format is chosen by file extension, the
// only place dynamic dispatch over VGM/GEP happens per the engine
// package's player-boundary design.
func buildPlayer(path string, chipBus bus.ChipBus, opts engine.Options, log *slog.Logger) (*engine.Player, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gep") {
		return buildGEPPlayer(path, chipBus, opts, log)
	}
	return buildVGMPlayer(path, chipBus, opts, log)
}

func buildVGMPlayer(path string, chipBus bus.ChipBus, opts engine.Options, log *slog.Logger) (*engine.Player, error) {
	src, err := openSource(path, log)
	if err != nil {
		return nil, err
	}
	if err := src.Open(); err != nil {
		return nil, err
	}
	h, err := vgm.ParseHeader(src)
	if err != nil {
		return nil, err
	}
	if gz, ok := src.(*source.GzipStreamSource); ok && h.HasLoop() {
		gz.SetLoopOffset(h.LoopOffset - h.DataOffset)
	}
	bank := pcm.New(opts.PCM, log)
	interp := vgm.New(src, chipBus, bank, h, log)
	return engine.NewPlayer(interp, chipBus, nil, opts, log), nil
}

func buildGEPPlayer(path string, chipBus bus.ChipBus, opts engine.Options, log *slog.Logger) (*engine.Player, error) {
	src := source.NewFileSource(path)
	if err := src.Open(); err != nil {
		return nil, err
	}
	h, err := gep.ParseHeader(src)
	if err != nil {
		return nil, err
	}
	dictCount := h.DictCount
	dict, err := gep.ParseDictionary(src, dictCount)
	if err != nil {
		return nil, err
	}
	var samples []gep.SampleEntry
	if h.HasSamples() {
		samples, err = gep.ParseSampleTable(src, int(h.PCMBlockCount))
		if err != nil {
			return nil, err
		}
	}

	// The PCM region has no canonical single-file placement in the
	// embedded original, where header/dict/commands/PCM/samples are five
	// independently addressed PROGMEM arrays passed straight to
	// GEPPlayer::play(). A file container needs one: immediately after
	// the sample table comes a 4-byte little-endian PCM byte count, then
	// that many PCM bytes, then the command stream runs to EOF (or to
	// the per-chunk boundary, in multi-chunk mode).
	var pcmRegion *gep.PCMRegion
	if h.HasDAC() || h.HasSamples() {
		pcmLen, ok := source.ReadUint32LE(src)
		if !ok {
			return nil, fmt.Errorf("genesisplay: truncated gep pcm length")
		}
		raw := make([]byte, pcmLen)
		if n := src.ReadInto(raw); uint32(n) != pcmLen {
			return nil, fmt.Errorf("genesisplay: truncated gep pcm region")
		}
		pcmRegion = gep.NewPCMRegion(raw, h.HasDPCM())
	}
	src.SetDataStart(src.Position())

	interp := gep.New(src, chipBus, h, dict, samples, pcmRegion, log)
	return engine.NewPlayer(interp, chipBus, nil, opts, log), nil
}
