// Command camfx runs the webcam effects pipeline over a directory of
// frames, a still image or a synthetic test pattern.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "camfx"
	app.Usage = "composite video frames through a chain of effects"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "run the render loop and export committed frames",
			Description: `
Open the configured source, build the filter chain and drive the compositor
from a refresh clock. Every committed frame (or every Nth, see output.every)
is written to the output directory as PNG or JPEG.

Without --config the synthetic test pattern is tinted red.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config, c",
					Usage: "YAML or TOML configuration file",
				},
				cli.IntFlag{
					Name:  "ticks, n",
					Value: 120,
					Usage: "number of refresh ticks to run; 0 runs until interrupted",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output directory (default: runs/<uuid>)",
				},
				cli.StringFlag{
					Name:  "audio, a",
					Usage: "WAV file feeding the volume meter",
				},
			},
			Action: Run,
		},
		{
			Name:      "shader",
			Usage:     "compile the built-in WGSL programs and report SPIR-V sizes",
			ArgsUsage: "[file.wgsl ...]",
			Action:    Shader,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "camfx: %v\n", err)
		os.Exit(1)
	}
}
