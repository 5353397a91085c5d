// Package server ingests live position data over UDP and feeds it
// through the fusion pipeline, fanning results out to the web hub,
// telemetry senders, and track log.
package server

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"wse-engine-go/fusion"
)

const knots = 0.514444 // m/s per knot

// NMEAParser assembles position fixes from a stream of NMEA sentences.
// GGA carries the altitude, RMC carries position, speed, and date; a fix
// is emitted on each valid RMC.
type NMEAParser struct {
	altitude   float64 // last GGA altitude
	hasAlt     bool
	lastMillis int64
	lastAlt    float64
}

func NewNMEAParser() *NMEAParser {
	return &NMEAParser{}
}

// Sentence parses one NMEA sentence. Returns a fix and true when the
// sentence completes one.
func (p *NMEAParser) Sentence(line string) (*fusion.PositionFix, bool) {
	nmea := cleanNMEA(line)
	if !validNMEA(nmea) {
		return nil, false
	}
	split := splitNMEA(nmea)

	switch {
	case strings.HasSuffix(split[0], "GGA"):
		if len(split) > 9 {
			if alt, err := strconv.ParseFloat(split[9], 64); err == nil {
				p.altitude = alt
				p.hasAlt = true
			}
		}
	case strings.HasSuffix(split[0], "RMC"):
		return p.parseRMC(split)
	}
	return nil, false
}

func (p *NMEAParser) parseRMC(split []string) (*fusion.PositionFix, bool) {
	if len(split) < 10 || split[2] != "A" {
		return nil, false
	}
	lat := parseDegreesMinutes(split[3], split[4])
	lng := parseDegreesMinutes(split[5], split[6])
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return nil, false
	}
	date := parseDate(split[9])
	tod := parseTime(split[1])
	if date == 0 {
		return nil, false
	}
	millis := date + tod

	speed := 0.0
	if v, err := strconv.ParseFloat(split[7], 64); err == nil {
		speed = v * knots
	}
	track := 0.0
	if v, err := strconv.ParseFloat(split[8], 64); err == nil {
		track = v * math.Pi / 180
	}

	fix := &fusion.PositionFix{
		Millis: millis,
		Lat:    lat,
		Lng:    lng,
		Alt:    p.altitude,
		VN:     speed * math.Cos(track),
		VE:     speed * math.Sin(track),
	}
	// Climb from GGA altitude deltas
	if p.hasAlt && p.lastMillis > 0 && millis > p.lastMillis {
		dt := float64(millis-p.lastMillis) * 0.001
		fix.Climb = (p.altitude - p.lastAlt) / dt
	}
	p.lastMillis = millis
	p.lastAlt = p.altitude
	return fix, true
}

// validNMEA checks framing and checksum.
func validNMEA(nmea string) bool {
	starIndex := strings.LastIndexByte(nmea, '*')
	length := len(nmea)
	if length < 8 || nmea[0] != '$' || starIndex != length-3 {
		return false
	}
	var checksum byte
	for i := 1; i < starIndex; i++ {
		checksum ^= nmea[i]
	}
	want, err := strconv.ParseUint(nmea[starIndex+1:], 16, 8)
	if err != nil {
		return false
	}
	if checksum != byte(want) {
		log.Printf("Invalid NMEA checksum: %02X != %02X for sentence: %s", checksum, want, nmea)
		return false
	}
	return true
}

// cleanNMEA removes junk before the sentence start and trims whitespace.
func cleanNMEA(nmea string) string {
	if i := strings.IndexByte(nmea, '$'); i > 0 {
		nmea = nmea[i:]
	}
	return strings.TrimSpace(nmea)
}

// splitNMEA strips the checksum and splits on commas, preserving empty
// trailing columns.
func splitNMEA(nmea string) []string {
	if i := strings.LastIndexByte(nmea, '*'); i > 0 {
		nmea = nmea[:i]
	}
	return strings.Split(nmea, ",")
}

// parseDegreesMinutes converts DDDMM.MMMM with an N/S/E/W modifier into
// decimal degrees. Returns NaN on malformed input.
func parseDegreesMinutes(dm, nsew string) float64 {
	if dm == "" {
		return math.NaN()
	}
	index := strings.IndexByte(dm, '.') - 2
	if index < 0 {
		return math.NaN()
	}
	m, err := strconv.ParseFloat(dm[index:], 64)
	if err != nil {
		return math.NaN()
	}
	d := 0
	if index > 0 {
		d, err = strconv.Atoi(dm[:index])
		if err != nil {
			return math.NaN()
		}
	}
	degrees := float64(d) + m/60.0
	if strings.EqualFold(nsew, "S") || strings.EqualFold(nsew, "W") {
		return -degrees
	}
	return degrees
}

// parseDate converts DDMMYY into epoch millis at UTC midnight.
func parseDate(date string) int64 {
	if len(date) != 6 {
		return 0
	}
	day, err1 := strconv.Atoi(date[0:2])
	month, err2 := strconv.Atoi(date[2:4])
	year, err3 := strconv.Atoi(date[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	year += 1900
	if year < 1970 {
		year += 100
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).UnixMilli()
}

// parseTime converts HHMMSS.SS into millis since midnight.
func parseTime(t string) int64 {
	if len(t) < 6 {
		return 0
	}
	hour, err1 := strconv.ParseInt(t[0:2], 10, 64)
	min, err2 := strconv.ParseInt(t[2:4], 10, 64)
	sec, err3 := strconv.ParseInt(t[4:6], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	var ms int64
	if len(t) > 6 {
		if frac, err := strconv.ParseFloat(t[6:], 64); err == nil {
			ms = int64(1000 * frac)
		}
	}
	return hour*3600000 + min*60000 + sec*1000 + ms
}

// FormatGGA renders a fix as a GGA sentence with checksum.
func FormatGGA(fix *fusion.PositionFix) string {
	body := fmt.Sprintf("GPGGA,%s,%s,1,10,1.0,%.1f,M,0.0,M,,",
		formatTime(fix.Millis), formatLatLng(fix.Lat, fix.Lng), fix.Alt)
	return wrapNMEA(body)
}

// FormatRMC renders a fix as an RMC sentence with checksum.
func FormatRMC(fix *fusion.PositionFix) string {
	speed := math.Hypot(fix.VN, fix.VE) / knots
	track := math.Atan2(fix.VE, fix.VN) * 180 / math.Pi
	if track < 0 {
		track += 360
	}
	t := time.UnixMilli(fix.Millis).UTC()
	body := fmt.Sprintf("GPRMC,%s,A,%s,%.2f,%.2f,%s,,",
		formatTime(fix.Millis), formatLatLng(fix.Lat, fix.Lng),
		speed, track, t.Format("020106"))
	return wrapNMEA(body)
}

func formatTime(millis int64) string {
	t := time.UnixMilli(millis).UTC()
	return fmt.Sprintf("%02d%02d%05.2f", t.Hour(), t.Minute(),
		float64(t.Second())+float64(t.Nanosecond())/1e9)
}

func formatLatLng(lat, lng float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
		lat = -lat
	}
	if lng < 0 {
		ew = "W"
		lng = -lng
	}
	latD := math.Floor(lat)
	lngD := math.Floor(lng)
	return fmt.Sprintf("%02.0f%07.4f,%s,%03.0f%07.4f,%s",
		latD, (lat-latD)*60, ns, lngD, (lng-lngD)*60, ew)
}

func wrapNMEA(body string) string {
	var checksum byte
	for i := 0; i < len(body); i++ {
		checksum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, checksum)
}
