package tracklog

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"time"

	"wse-engine-go/fusion"
)

var fusedHeader = []string{
	"time", "lat", "lon", "hMSL", "velE", "velUp", "velN",
	"kl", "kd", "roll", "windE", "windUp", "windN", "aoa", "ld", "mode",
}

// Writer streams fused results to a CSV file.
type Writer struct {
	f *os.File
	w *csv.Writer
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(fusedHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{f: f, w: w}, nil
}

func (w *Writer) WriteResult(r *fusion.FusionResult) error {
	ld := r.LD
	if math.IsNaN(ld) || math.IsInf(ld, 0) {
		ld = 0
	}
	row := []string{
		time.UnixMilli(r.TimestampMs).UTC().Format("2006-01-02T15:04:05.000Z"),
		fmtF(r.Lat, 7),
		fmtF(r.Lng, 7),
		fmtF(r.Alt, 2),
		fmtF(r.Velocity.X, 2),
		fmtF(r.Velocity.Y, 2),
		fmtF(r.Velocity.Z, 2),
		fmtF(r.Kl, 6),
		fmtF(r.Kd, 6),
		fmtF(r.Roll, 4),
		fmtF(r.Wind.X, 2),
		fmtF(r.Wind.Y, 2),
		fmtF(r.Wind.Z, 2),
		fmtF(r.Aoa, 2),
		fmtF(ld, 3),
		strconv.Itoa(r.FlightMode),
	}
	return w.w.Write(row)
}

func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func fmtF(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
