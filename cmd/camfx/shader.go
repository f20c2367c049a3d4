package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/camfx/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Shader compiles WGSL programs and creates a module for each on the noop
// HAL device, reporting the SPIR-V size.
func Shader(ctx *cli.Context) error {
	setupLogging(ctx)

	programs := []*gpu.Program{gpu.SpriteProgram(), gpu.DistortionProgram(gpu.DefaultDistortionOffset)}
	for i := 0; i < ctx.NArg(); i++ {
		path := ctx.Args().Get(i)
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		programs = append(programs, gpu.NewProgram(filepath.Base(path), string(src), nil))
	}

	device, release, err := openNoopDevice()
	if err != nil {
		return err
	}
	defer release()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Program", "WGSL bytes", "SPIR-V words", "Module"})

	var failed int
	for _, p := range programs {
		words, err := p.Compile()
		if err != nil {
			failed++
			logger.Error("camfx: compile failed", "program", p.Label, "err", err)
			table.Append([]string{p.Label, fmt.Sprintf("%d", len(p.Source)), "-", "error"})
			continue
		}
		status := "ok"
		module, err := p.CreateModule(device)
		if err != nil {
			status = err.Error()
		} else {
			device.DestroyShaderModule(module)
		}
		table.Append([]string{p.Label, fmt.Sprintf("%d", len(p.Source)), fmt.Sprintf("%d", len(words)), status})
	}
	table.Render()
	fmt.Print(buf.String())

	if failed > 0 {
		return fmt.Errorf("%d of %d programs failed to compile", failed, len(programs))
	}
	return nil
}

func openNoopDevice() (hal.Device, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, fmt.Errorf("no noop adapter")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, err
	}
	return open.Device, func() {
		open.Device.Destroy()
		instance.Destroy()
	}, nil
}
