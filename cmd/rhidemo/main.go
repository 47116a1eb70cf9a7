// Command rhidemo records and submits a buffer upload and copy through a
// command-list backend running on the headless noop HAL.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
	_ "github.com/gogpu/rhi/backend/metal"
	_ "github.com/gogpu/rhi/backend/vulkan"
	"github.com/gogpu/rhi/haldevice"
)

func main() {
	var (
		name    = flag.String("backend", "", "command-list backend (empty selects the default)")
		size    = flag.Uint64("size", 1024, "buffer size in bytes")
		src     = flag.Uint64("src", 0, "copy read offset")
		dst     = flag.Uint64("dst", 0, "copy write offset")
		length  = flag.Uint64("len", 256, "copy length")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		rhi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if err := run(*name, *size, rhi.BufferCopyCommand{ReadOffset: *src, WriteOffset: *dst, Length: *length}); err != nil {
		log.Fatalf("rhidemo: %v", err)
	}
}

func run(name string, size uint64, region rhi.BufferCopyCommand) error {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return err
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return err
	}
	defer open.Device.Destroy()

	dev, err := haldevice.New(open.Device, open.Queue, haldevice.WithLabel("rhidemo"))
	if err != nil {
		return err
	}
	defer dev.Close()

	cl, err := backend.NewCommandList(name, dev, rhi.WithName("demo"))
	if err != nil {
		return err
	}
	defer cl.Dispose()

	a, err := dev.NewBuffer(size, rhi.BufferUsageStructuredReadOnly)
	if err != nil {
		return err
	}
	defer a.Dispose()
	b, err := dev.NewBuffer(size, rhi.BufferUsageStructuredReadWrite)
	if err != nil {
		return err
	}
	defer b.Dispose()

	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}

	start := time.Now()
	if err := cl.Begin(); err != nil {
		return err
	}
	if err := cl.UpdateBuffer(a, 0, payload); err != nil {
		return err
	}
	if err := cl.CopyBuffer(a, b, region); err != nil {
		return err
	}
	if err := cl.End(); err != nil {
		return err
	}
	recorded := time.Since(start)

	fence := rhi.NewFence(false)
	if err := dev.SubmitCommands(cl, fence); err != nil {
		return err
	}
	if !dev.WaitForFence(fence, time.Second) {
		return fmt.Errorf("fence not signalled")
	}

	path := "native copy"
	if !region.Aligned() {
		path = "copy kernel"
	}
	log.Printf("%d bytes at %d -> %d via %s: recorded in %v, retired in %v",
		region.Length, region.ReadOffset, region.WriteOffset, path,
		recorded.Round(time.Microsecond), time.Since(start).Round(time.Microsecond))
	return nil
}
