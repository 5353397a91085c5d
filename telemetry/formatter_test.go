package telemetry

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wse-engine-go/fusion"
)

func sampleResult() fusion.FusionResult {
	return fusion.FusionResult{
		TimestampMs: 1700000000000,
		Lat:         46.1234567,
		Lng:         7.7654321,
		Alt:         2500.5,
		Velocity:    fusion.Vector3{X: 5, Y: -12, Z: 30},
		Kl:          0.012345,
		Kd:          0.006789,
		Roll:        0.2,
		Wind:        fusion.Vector3{X: 3, Y: 0, Z: -1},
		Aoa:         12.3,
		LD:          2.5,
		FlightMode:  3,
	}
}

func TestFormatFusedState(t *testing.T) {
	line := string(FormatFusedState(sampleResult()))
	assert.True(t, strings.HasPrefix(line, "fused,"))
	assert.True(t, strings.HasSuffix(line, "\r\n"))

	fields := strings.Split(strings.TrimSuffix(line, "\r\n"), ",")
	require.Len(t, fields, 17)
	assert.Equal(t, "46.1234567", fields[2])
	assert.Equal(t, "2500.5", fields[4])
	assert.Equal(t, "3", fields[16])
}

func TestFormatFusedStateNaNLD(t *testing.T) {
	r := sampleResult()
	r.LD = math.NaN()
	line := string(FormatFusedState(r))
	assert.NotContains(t, line, "NaN")
}

func TestFormatWind(t *testing.T) {
	line := string(FormatWind(1700000000000, 2500, fusion.Vector3{X: 3, Y: 0, Z: -1}))
	assert.True(t, strings.HasPrefix(line, "wind,"))
	fields := strings.Split(strings.TrimSuffix(line, "\r\n"), ",")
	require.Len(t, fields, 6)
	assert.Equal(t, "2500.0", fields[2])
}

func TestFlagsForResult(t *testing.T) {
	r := sampleResult()
	flags := FlagsForResult(r)
	assert.NotZero(t, flags&FlagPosition)
	assert.NotZero(t, flags&FlagAero)
	assert.NotZero(t, flags&FlagWind)
	assert.NotZero(t, flags&FlagMode)

	empty := fusion.FusionResult{}
	flags = FlagsForResult(empty)
	assert.NotZero(t, flags&FlagPosition)
	assert.Zero(t, flags&FlagWind)
	assert.Zero(t, flags&FlagMode)
}

func TestSenderMaskFiltering(t *testing.T) {
	s := NewSender()
	require.NoError(t, s.AddUDPTarget("127.0.0.1:0", FlagPosition|FlagVelocity))
	s.AddTCPTarget("127.0.0.1:1", FlagPosition|FlagVelocity|FlagWind)
	require.NoError(t, s.Start())
	defer s.Stop()

	// Send with flags beyond the UDP target's mask: only the TCP queue
	// should accept it. This exercises the mask logic without a live
	// endpoint.
	s.Send([]byte("x"), FlagPosition|FlagWind)
	require.Len(t, s.tcpClients, 1)
}

func TestSenderHeader(t *testing.T) {
	s := NewSender()
	s.SetHeader("wse")
	assert.Equal(t, []byte("wse:"), s.header)
	s.SetHeader("")
	assert.Nil(t, s.header)
}
