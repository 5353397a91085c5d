// Package tracklog reads and writes GPS track files. The reader accepts
// FlySight TRACK.CSV files (plain or gzipped) as well as the older
// recorder format that tags each row with a sensor column.
package tracklog

import (
	"bufio"
	"compress/gzip"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"wse-engine-go/fusion"
)

// columns maps a CSV column name to its index in the header row.
type columns map[string]int

func parseHeader(line string) columns {
	cols := make(columns)
	for i, name := range strings.Split(line, ",") {
		cols[strings.TrimSpace(name)] = i
	}
	// Aliases for files that predate FlySight column names
	cols.alias("timeMillis", "millis")
	cols.alias("latitude", "lat")
	cols.alias("longitude", "lon")
	cols.alias("altitude_gps", "hMSL")
	return cols
}

func (c columns) alias(from, to string) {
	if i, ok := c[from]; ok {
		if _, exists := c[to]; !exists {
			c[to] = i
		}
	}
}

func (c columns) double(row []string, name string) float64 {
	i, ok := c[name]
	if !ok || i >= len(row) || row[i] == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(row[i], 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (c columns) long(row []string, name string) int64 {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return 0
	}
	v, err := strconv.ParseInt(row[i], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// date parses an ISO8601 timestamp column into millis since epoch, 0 on error.
func (c columns) date(row []string, name string) int64 {
	i, ok := c[name]
	if !ok || i >= len(row) || row[i] == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, row[i])
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// Read loads a track file into position fixes. Files ending in .gz are
// decompressed on the fly.
func Read(path string) ([]fusion.PositionFix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return Parse(r)
}

// finiteOrZero treats a missing or unparseable velocity column as zero;
// a NaN component would poison the filter state downstream.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Parse reads CSV track data from r. Rows with missing or unparseable
// coordinates or altitude are skipped; missing velocity columns read as
// zero.
func Parse(r io.Reader) ([]fusion.PositionFix, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, scanner.Err()
	}
	cols := parseHeader(scanner.Text())

	var fixes []fusion.PositionFix
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		row := strings.Split(line, ",")
		// FlySight files carry a units row under the header
		if len(row) > 0 && (row[0] == "" || strings.HasPrefix(row[0], "(")) {
			continue
		}

		if si, ok := cols["sensor"]; ok && si < len(row) {
			// Sensor-tagged recorder format: only gps rows carry a fix
			if row[si] != "gps" {
				continue
			}
			fix := fusion.PositionFix{
				Millis: cols.long(row, "millis"),
				Lat:    cols.double(row, "lat"),
				Lng:    cols.double(row, "lon"),
				Alt:    cols.double(row, "hMSL"),
				VN:     finiteOrZero(cols.double(row, "velN")),
				VE:     finiteOrZero(cols.double(row, "velE")),
				Climb:  -finiteOrZero(cols.double(row, "velD")),
			}
			if fix.Millis > 0 && !math.IsNaN(fix.Lat) && !math.IsNaN(fix.Lng) && !math.IsNaN(fix.Alt) {
				fixes = append(fixes, fix)
			}
			continue
		}

		millis := cols.date(row, "time")
		if millis <= 0 {
			millis = cols.long(row, "millis")
		}
		if millis <= 0 {
			continue
		}
		lat := cols.double(row, "lat")
		lng := cols.double(row, "lon")
		alt := cols.double(row, "hMSL")
		if math.IsNaN(lat) || math.IsNaN(lng) || math.IsNaN(alt) {
			continue
		}
		fixes = append(fixes, fusion.PositionFix{
			Millis: millis,
			Lat:    lat,
			Lng:    lng,
			Alt:    alt,
			VN:     finiteOrZero(cols.double(row, "velN")),
			VE:     finiteOrZero(cols.double(row, "velE")),
			Climb:  -finiteOrZero(cols.double(row, "velD")),
		})
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Track read error: %v", err)
		return fixes, err
	}
	return fixes, nil
}
