package server

import (
	"log"
	"time"

	"wse-engine-go/tracklog"
)

// Replay feeds a recorded track file through the pipeline at the given
// speed multiplier (0 for max speed), publishing results as live fixes.
func (s *UdpServer) Replay(path string, speed float64) error {
	fixes, err := tracklog.Read(path)
	if err != nil {
		return err
	}

	s.running = true
	log.Printf("Replaying %s at %.1fx speed...", path, speed)

	var firstMillis int64
	startReal := time.Now()

	count := 0
	for i := range fixes {
		if !s.running {
			break
		}
		fix := &fixes[i]

		if firstMillis == 0 {
			firstMillis = fix.Millis
			startReal = time.Now()
		} else if speed > 0 {
			targetDelay := time.Duration(float64(fix.Millis-firstMillis) / speed * float64(time.Millisecond))
			elapsed := time.Since(startReal)
			if targetDelay > elapsed {
				time.Sleep(targetDelay - elapsed)
			}
		}

		s.processFix(fix)
		count++
	}
	log.Printf("Replay loop ended. Total Fixes: %d", count)
	return nil
}
