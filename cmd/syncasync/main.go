// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command syncasync runs the three-stage pipeline sequentially and
// overlapped across two queues, then verifies that both produce the same
// result.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/LynnColeArt/gudaflow"
	"github.com/LynnColeArt/gudaflow/engine"
)

func main() {
	def := engine.DefaultConfig()
	var (
		n           = flag.Int("n", def.N, "Elements per buffer")
		iterations  = flag.Int("iterations", def.Iterations, "Pipeline passes")
		tol         = flag.Float64("tol", float64(def.Tolerance), "Maximum per-element absolute difference")
		block       = flag.Int("block", def.BlockSize, "Elements per kernel block")
		warmup      = flag.Bool("warmup", def.Warmup, "Drain one no-op kernel before the overlapped loop")
		jsonOut     = flag.String("json", "", "Write a JSON run report to this file")
		verbose     = flag.Bool("v", false, "Log runtime activity to stderr")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		v, _ := gudaflow.Version()
		if v == "" {
			v = "(devel)"
		}
		fmt.Println("syncasync", v)
		return
	}

	if *verbose {
		gudaflow.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := engine.Config{
		N:          *n,
		Iterations: *iterations,
		Tolerance:  float32(*tol),
		BlockSize:  *block,
		Warmup:     *warmup,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	os.Exit(run(cfg, *jsonOut))
}

func run(cfg engine.Config, jsonOut string) int {
	p := message.NewPrinter(language.English)
	dev := gudaflow.GetDevice()

	p.Printf("Async vs Sync Comparison (N = %d, ITERATIONS = %d)\n", cfg.N, cfg.Iterations)
	p.Printf("Device: %s, %d cores, %d MB, %s\n", dev.Name, dev.NumCores, dev.TotalMem>>20, dev.Features)

	bufs, err := engine.NewBuffers(cfg.N)
	if err != nil {
		fmt.Printf("Memory allocation failed: %v\n", err)
		return 1
	}
	bufs.Initialize()

	ctx := gudaflow.NewContext(engine.Q1, engine.Q2)
	defer ctx.Destroy()

	seq := engine.NewSequential(ctx, cfg)
	ovl := engine.NewOverlapped(ctx, cfg)

	report := gudaflow.NewRunReport(cfg.N, cfg.Iterations)
	out, err := engine.Compare(seq, ovl, bufs, cfg.Tolerance)
	for i, e := range []engine.Engine{seq, ovl} {
		d := out.Durations[i]
		if d == 0 {
			if err != nil {
				report.AddEngine(e.Name(), 0, err)
			}
			break
		}
		report.AddEngine(e.Name(), d, nil)
		fmt.Printf("\n--- Running %s version ---\n", e.Name())
		fmt.Printf("%s version time: %.4f s\n", e.Name(), d.Seconds())
	}
	if err != nil {
		fmt.Printf("Run aborted: %v\n", err)
		writeReport(jsonOut, report)
		return 1
	}

	fmt.Printf("\n--- Verifying results ---\n")
	if out.Verify.OK {
		fmt.Println("✓ Sync and Async results match.")
	} else {
		for _, m := range out.Verify.Mismatches {
			fmt.Printf("Mismatch at %d: ref=%.6f, test=%.6f\n", m.Index, m.Reference, m.Candidate)
		}
		p.Printf("✗ Results differ between Sync and Async versions (%d mismatches).\n", out.Verify.MismatchCount)
	}
	if s := report.Speedup(); s > 0 {
		fmt.Printf("Speedup (sequential / overlapped): %.2fx\n", s)
	}

	fmt.Printf("\nSample output (first 5 elements):\n")
	for i := 0; i < 5 && i < cfg.N; i++ {
		fmt.Printf("Index %d: Sync = %.6f, Async = %.6f\n", i, out.Reference.C.Data[i], out.Candidate.C.Data[i])
	}

	report.Verification = &out.Verify
	writeReport(jsonOut, report)
	return 0
}

func writeReport(path string, r *gudaflow.RunReport) {
	if path == "" {
		return
	}
	if err := gudaflow.WriteReport(path, r); err != nil {
		fmt.Printf("Failed to write report: %v\n", err)
		return
	}
	fmt.Printf("\nReport written to %s\n", path)
}
