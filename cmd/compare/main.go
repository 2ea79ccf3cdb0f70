// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command compare checks a syncasync JSON report against a baseline report
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/LynnColeArt/gudaflow"
)

type ComparisonResult struct {
	Engine string
	Status string // "PASS", "FAIL", "SLOWER", "FASTER"

	BaselineDuration time.Duration
	CurrentDuration  time.Duration
	SpeedupFactor    float64

	Message string
}

func main() {
	var (
		baselineFile = flag.String("baseline", "baseline.json", "Baseline report file")
		currentFile  = flag.String("current", "current.json", "Current report file")
		perfRegress  = flag.Float64("perf-regress", 1.1, "Performance regression threshold (1.1 = 10% slower)")
	)
	flag.Parse()

	baseline, err := gudaflow.ReadReport(*baselineFile)
	if err != nil {
		log.Fatalf("Failed to load baseline: %v", err)
	}
	current, err := gudaflow.ReadReport(*currentFile)
	if err != nil {
		log.Fatalf("Failed to load current report: %v", err)
	}
	if baseline.N != current.N || baseline.Iterations != current.Iterations {
		fmt.Printf("Warning: problem size differs (baseline N=%d x%d, current N=%d x%d)\n",
			baseline.N, baseline.Iterations, current.N, current.Iterations)
	}

	comparisons := compareReports(baseline, current, *perfRegress)
	printSummary(baseline, current, comparisons)

	for _, comp := range comparisons {
		if comp.Status == "FAIL" {
			os.Exit(1)
		}
	}
}

// compareReports matches engines by name. A failed or missing engine, or a
// current run whose verification failed, is a FAIL.
func compareReports(baseline, current *gudaflow.RunReport, perfRegress float64) []ComparisonResult {
	currentMap := make(map[string]gudaflow.EngineResult)
	for _, e := range current.Engines {
		currentMap[e.Name] = e
	}
	verifyFailed := current.Verification != nil && !current.Verification.OK

	comparisons := make([]ComparisonResult, 0, len(baseline.Engines))
	for _, base := range baseline.Engines {
		comp := ComparisonResult{
			Engine:           base.Name,
			BaselineDuration: base.Duration,
		}

		curr, exists := currentMap[base.Name]
		switch {
		case !exists:
			comp.Status = "FAIL"
			comp.Message = "Engine missing in current report"
		case curr.Status != "pass":
			comp.Status = "FAIL"
			comp.Message = "Engine failed: " + curr.Error
		case verifyFailed:
			comp.CurrentDuration = curr.Duration
			comp.Status = "FAIL"
			comp.Message = fmt.Sprintf("Verification failed: %d mismatches", current.Verification.MismatchCount)
		default:
			comp.CurrentDuration = curr.Duration
			if base.Duration > 0 && curr.Duration > 0 {
				comp.SpeedupFactor = float64(base.Duration) / float64(curr.Duration)
			}
			if comp.SpeedupFactor > 0 && comp.SpeedupFactor < 1.0/perfRegress {
				comp.Status = "SLOWER"
				comp.Message = fmt.Sprintf("Performance regression: %.2fx slower", 1.0/comp.SpeedupFactor)
			} else if comp.SpeedupFactor > 1.2 {
				comp.Status = "FASTER"
				comp.Message = fmt.Sprintf("Performance improvement: %.2fx faster", comp.SpeedupFactor)
			} else {
				comp.Status = "PASS"
			}
		}
		comparisons = append(comparisons, comp)
	}
	return comparisons
}

func printSummary(baseline, current *gudaflow.RunReport, comparisons []ComparisonResult) {
	fmt.Println("=== Sync/Async Report Comparison ===")
	fmt.Println()

	statusCount := make(map[string]int)
	for _, comp := range comparisons {
		statusCount[comp.Status]++
	}

	fmt.Printf("Engines: %d\n", len(comparisons))
	fmt.Printf("  PASS:   %d\n", statusCount["PASS"])
	fmt.Printf("  FAIL:   %d\n", statusCount["FAIL"])
	fmt.Printf("  SLOWER: %d\n", statusCount["SLOWER"])
	fmt.Printf("  FASTER: %d\n", statusCount["FASTER"])
	fmt.Println()

	if statusCount["FAIL"] > 0 {
		fmt.Println("FAILURES:")
		for _, comp := range comparisons {
			if comp.Status == "FAIL" {
				fmt.Printf("  %s: %s\n", comp.Engine, comp.Message)
			}
		}
		fmt.Println()
	}

	fmt.Printf("Overlap speedup: %.2fx -> %.2fx\n\n", baseline.Speedup(), current.Speedup())

	fmt.Println("DETAILED RESULTS:")
	fmt.Printf("%-20s %-6s %10s %10s %8s\n", "Engine", "Status", "Baseline", "Current", "Speedup")
	fmt.Println(strings.Repeat("-", 60))
	for _, comp := range comparisons {
		fmt.Printf("%-20s %-6s %10.1f %10.1f %8.2f\n",
			comp.Engine,
			comp.Status,
			float64(comp.BaselineDuration)/1e6, // ms
			float64(comp.CurrentDuration)/1e6,
			comp.SpeedupFactor)
	}
}
