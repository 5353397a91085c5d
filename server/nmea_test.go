package server

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wse-engine-go/fusion"
)

func TestValidNMEA(t *testing.T) {
	assert.True(t, validNMEA(wrapNMEA("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,,")))
	// Corrupted checksum
	assert.False(t, validNMEA("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,,*FF"))
	// No frame
	assert.False(t, validNMEA("GPRMC,123519,A"))
	assert.False(t, validNMEA(""))
}

func TestCleanNMEA(t *testing.T) {
	assert.Equal(t, "$GPGGA,1", cleanNMEA("junk$GPGGA,1"))
	assert.Equal(t, "$GPGGA,1", cleanNMEA("$GPGGA,1\r\n"))
}

func TestParseDegreesMinutes(t *testing.T) {
	// 48 deg 7.038 min
	assert.InDelta(t, 48.1173, parseDegreesMinutes("4807.038", "N"), 1e-6)
	assert.InDelta(t, -48.1173, parseDegreesMinutes("4807.038", "S"), 1e-6)
	assert.InDelta(t, 11.516666, parseDegreesMinutes("01131.000", "E"), 1e-5)
	assert.InDelta(t, -11.516666, parseDegreesMinutes("01131.000", "W"), 1e-5)
	assert.True(t, math.IsNaN(parseDegreesMinutes("", "N")))
	assert.True(t, math.IsNaN(parseDegreesMinutes("12", "N")))
}

func TestParseTimeAndDate(t *testing.T) {
	assert.Equal(t, int64(12*3600000+35*60000+19*1000), parseTime("123519"))
	assert.Equal(t, int64(12*3600000+35*60000+19*1000+500), parseTime("123519.50"))
	assert.Equal(t, int64(0), parseTime(""))

	// 23 March 1994 UTC
	assert.Equal(t, int64(764380800000), parseDate("230394"))
	// Two-digit years below 70 are 20xx
	assert.Equal(t, int64(1684713600000), parseDate("220523"))
	assert.Equal(t, int64(0), parseDate("2305"))
}

func TestSentenceAssembly(t *testing.T) {
	p := NewNMEAParser()

	// GGA alone carries no complete fix
	fix, ok := p.Sentence(wrapNMEA("GPGGA,123519.00,4807.0380,N,01131.0000,E,1,10,1.0,545.4,M,0.0,M,,"))
	assert.False(t, ok)
	assert.Nil(t, fix)

	fix, ok = p.Sentence(wrapNMEA("GPRMC,123519.00,A,4807.0380,N,01131.0000,E,022.40,084.40,230394,,"))
	require.True(t, ok)
	require.NotNil(t, fix)
	assert.InDelta(t, 48.1173, fix.Lat, 1e-6)
	assert.InDelta(t, 11.516666, fix.Lng, 1e-5)
	assert.InDelta(t, 545.4, fix.Alt, 1e-9)

	speed := 22.4 * knots
	track := 84.4 * math.Pi / 180
	assert.InDelta(t, speed*math.Cos(track), fix.VN, 1e-6)
	assert.InDelta(t, speed*math.Sin(track), fix.VE, 1e-6)

	// Date + time of day
	assert.Equal(t, int64(764380800000)+12*3600000+35*60000+19*1000, fix.Millis)
}

func TestSentenceRejectsVoidFix(t *testing.T) {
	p := NewNMEAParser()
	_, ok := p.Sentence(wrapNMEA("GPRMC,123519.00,V,4807.0380,N,01131.0000,E,022.40,084.40,230394,,"))
	assert.False(t, ok)
}

func TestClimbFromAltitudeDeltas(t *testing.T) {
	p := NewNMEAParser()

	p.Sentence(wrapNMEA("GPGGA,120000.00,4807.0380,N,01131.0000,E,1,10,1.0,2000.0,M,0.0,M,,"))
	_, ok := p.Sentence(wrapNMEA("GPRMC,120000.00,A,4807.0380,N,01131.0000,E,050.00,000.00,010623,,"))
	require.True(t, ok)

	// One second later, 40 m lower
	p.Sentence(wrapNMEA("GPGGA,120001.00,4807.0380,N,01131.0000,E,1,10,1.0,1960.0,M,0.0,M,,"))
	fix, ok := p.Sentence(wrapNMEA("GPRMC,120001.00,A,4807.0380,N,01131.0000,E,050.00,000.00,010623,,"))
	require.True(t, ok)
	assert.InDelta(t, -40.0, fix.Climb, 1e-6)
}

func TestFormatRoundTrip(t *testing.T) {
	orig := fusion.PositionFix{
		Millis: 1685620800200,
		Lat:    46.5,
		Lng:    -7.25,
		Alt:    2500.0,
		VN:     30.0,
		VE:     -5.0,
	}

	gga := FormatGGA(&orig)
	rmc := FormatRMC(&orig)
	assert.True(t, validNMEA(gga))
	assert.True(t, validNMEA(rmc))

	p := NewNMEAParser()
	_, ok := p.Sentence(gga)
	assert.False(t, ok)
	fix, ok := p.Sentence(rmc)
	require.True(t, ok)

	assert.InDelta(t, orig.Lat, fix.Lat, 1e-5)
	assert.InDelta(t, orig.Lng, fix.Lng, 1e-5)
	assert.InDelta(t, orig.Alt, fix.Alt, 0.1)
	assert.InDelta(t, orig.VN, fix.VN, 0.05)
	assert.InDelta(t, orig.VE, fix.VE, 0.05)
	// Time survives at centisecond resolution
	assert.InDelta(t, float64(orig.Millis), float64(fix.Millis), 10.0)
}
