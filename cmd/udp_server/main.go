package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"wse-engine-go/flight"
	"wse-engine-go/fusion"
	"wse-engine-go/server"
	"wse-engine-go/telemetry"
	"wse-engine-go/tracklog"
	"wse-engine-go/web"
)

func main() {
	port := flag.Int("port", server.DefaultPort, "UDP port to listen on for NMEA")
	httpPort := flag.Int("http", 0, "HTTP/WebSocket port (e.g. 8080). 0 to disable.")
	settingsXML := flag.String("settings", "settings.xml", "Path to settings.xml")
	polarXML := flag.String("polar", "", "Optional polar.xml overriding the built-in polar")
	distDir := flag.String("dist", "", "Static frontend directory (optional)")
	trackOut := flag.String("track-out", "", "Directory or file for the fused track log (optional)")
	flag.Parse()

	// Load configuration
	log.Println("Loading configuration...")
	cfg := fusion.ParseConfig(*settingsXML)
	if *polarXML != "" {
		if polar := fusion.ParsePolar(*polarXML); polar != nil {
			cfg.Polar = polar
		}
	}

	modes := flight.NewComputer()
	pipeline := fusion.NewFusionPipeline(cfg, modes)

	udpSvr, err := server.NewUdpServer(*port, pipeline)
	if err != nil {
		log.Fatalf("Failed to create UDP server: %v", err)
	}

	// Configure Web Server
	if *httpPort > 0 {
		webSvr := web.NewServer()
		configDir := filepath.Dir(*settingsXML)
		go webSvr.Start(*httpPort, *distDir, configDir)
		udpSvr.SetWebHub(webSvr.Hub)
	}

	// Configure telemetry fanout
	senderConfigs := fusion.ParseTelemetrySenders(*settingsXML)
	if len(senderConfigs) > 0 {
		sender := telemetry.NewSender()
		for _, sc := range senderConfigs {
			fullAddr := fmt.Sprintf("%s:%d", sc.Addr, sc.Port)
			if sc.Type == "TCP" {
				sender.AddTCPTarget(fullAddr, sc.Mask)
				log.Printf("Added TCP telemetry target: %s (mask %x)", fullAddr, sc.Mask)
			} else {
				if err := sender.AddUDPTarget(fullAddr, sc.Mask); err != nil {
					log.Printf("Bad UDP telemetry target %s: %v", fullAddr, err)
					continue
				}
				log.Printf("Added UDP telemetry target: %s (mask %x)", fullAddr, sc.Mask)
			}
		}
		if err := sender.Start(); err != nil {
			log.Fatalf("Failed to start telemetry sender: %v", err)
		}
		udpSvr.SetSender(sender)
		defer sender.Stop()
	}

	if *trackOut != "" {
		// Auto-generate name if directory
		path := *trackOut
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			path = filepath.Join(path, fmt.Sprintf("TRACK_%s.csv", time.Now().Format("20060102150405")))
		}

		tw, err := tracklog.NewWriter(path)
		if err != nil {
			log.Fatalf("Failed to create track writer: %v", err)
		}
		udpSvr.SetTrackWriter(tw)
		log.Printf("Logging fused track to %s", path)
	}

	// Start Server in a goroutine
	go udpSvr.Start()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	udpSvr.Stop()
}
