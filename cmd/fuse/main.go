package main

import (
	"flag"
	"fmt"
	"os"

	"wse-engine-go/flight"
	"wse-engine-go/fusion"
	"wse-engine-go/tracklog"
	"wse-engine-go/wind"
)

func main() {
	trackPath := flag.String("track", "", "Input track CSV (FlySight or recorder format, .gz ok)")
	outPath := flag.String("out", "fused.csv", "Output CSV path")
	settingsXML := flag.String("settings", "", "Optional settings.xml with filter tuning")
	polarXML := flag.String("polar", "", "Optional polar.xml overriding the built-in polar")
	windSplit := flag.Float64("wind-split", 0, "Split altitude for a second wind layer (0 = single layer)")
	flag.Parse()

	if *trackPath == "" {
		fmt.Println("--track required")
		os.Exit(1)
	}

	fixes, err := tracklog.Read(*trackPath)
	if err != nil {
		fmt.Printf("read track failed: %v\n", err)
		os.Exit(1)
	}
	if len(fixes) == 0 {
		fmt.Println("no fixes in track")
		os.Exit(1)
	}

	cfg := fusion.DefaultConfig()
	if *settingsXML != "" {
		cfg = fusion.ParseConfig(*settingsXML)
	}
	if *polarXML != "" {
		if polar := fusion.ParsePolar(*polarXML); polar != nil {
			cfg.Polar = polar
		}
	}

	modes := flight.NewComputer()
	pipeline := fusion.NewFusionPipeline(cfg, modes)

	writer, err := tracklog.NewWriter(*outPath)
	if err != nil {
		fmt.Printf("create output failed: %v\n", err)
		os.Exit(1)
	}

	windMgr := wind.NewManager()
	pipeline.Subscribe(func(r fusion.FusionResult) {
		if err := writer.WriteResult(&r); err != nil {
			fmt.Printf("write failed: %v\n", err)
			os.Exit(1)
		}
		if r.FlightMode == flight.ModeWingsuit {
			windMgr.AddDataPoint(wind.PointFromResult(r))
		}
	})

	for i := range fixes {
		if _, err := pipeline.Process(&fixes[i]); err != nil {
			fmt.Printf("fusion failed at fix %d: %v\n", i, err)
			break
		}
	}
	if err := writer.Close(); err != nil {
		fmt.Printf("close output failed: %v\n", err)
		os.Exit(1)
	}

	durationSec := float64(fixes[len(fixes)-1].Millis-fixes[0].Millis) / 1000
	fmt.Printf("Fused %d fixes (%.1f s) -> %s\n", pipeline.NumFixes(), durationSec, *outPath)

	if *windSplit > 0 && windMgr.HasLayers() {
		windMgr.SaveActiveLayer(*windSplit)
	}
	printWindSummary(windMgr)
}

func printWindSummary(mgr *wind.Manager) {
	if !mgr.HasLayers() {
		fmt.Println("No wingsuit flight found, wind not estimated")
		return
	}
	for _, l := range mgr.Layers() {
		fit := l.SustainedFit
		if fit.PointCount < 3 {
			fit = l.GPSFit
		}
		if fit.PointCount < 3 {
			fmt.Printf("%s: %.0f-%.0f m, not enough points\n", l.Name, l.MinAltitude, l.MaxAltitude)
			continue
		}
		fmt.Printf("%s: %.0f-%.0f m, wind %.1f m/s from %.0f deg (r2=%.2f, n=%d)\n",
			l.Name, l.MinAltitude, l.MaxAltitude,
			fit.WindMagnitude(), fit.WindDirection(), fit.RSquared, fit.PointCount)
	}
}
