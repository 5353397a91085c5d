package main

import (
	"flag"
	"log"
	"net"
	"time"

	"wse-engine-go/server"
	"wse-engine-go/tracklog"
)

func main() {
	trackPath := flag.String("track", "", "Input track CSV (FlySight or recorder format, .gz ok)")
	destAddr := flag.String("dest", "127.0.0.1:5554", "Destination UDP address")
	speed := flag.Float64("speed", 1.0, "Replay speed multiplier (0 for max speed)")
	flag.Parse()

	if *trackPath == "" {
		log.Fatal("--track required")
	}

	raddr, err := net.ResolveUDPAddr("udp", *destAddr)
	if err != nil {
		log.Fatalf("Invalid dest address: %v", err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	fixes, err := tracklog.Read(*trackPath)
	if err != nil {
		log.Fatalf("Read track failed: %v", err)
	}

	log.Printf("Replaying %s to %s...", *trackPath, *destAddr)

	var firstMillis int64
	startReal := time.Now()

	count := 0
	for i := range fixes {
		fix := &fixes[i]

		if firstMillis == 0 {
			firstMillis = fix.Millis
			startReal = time.Now()
		} else if *speed > 0 {
			targetDelay := time.Duration(float64(fix.Millis-firstMillis) / *speed * float64(time.Millisecond))
			elapsed := time.Since(startReal)
			if targetDelay > elapsed {
				time.Sleep(targetDelay - elapsed)
			}
		}

		// One datagram per fix, GGA first so the altitude lands before
		// the RMC completes the fix
		packet := server.FormatGGA(fix) + "\r\n" + server.FormatRMC(fix) + "\r\n"
		if _, err := conn.Write([]byte(packet)); err != nil {
			log.Fatalf("Send failed: %v", err)
		}
		count++
	}
	log.Printf("Sent %d fixes", count)
}
