package fusion

import "math"

const earthRadius = 6371000 // meters

// enuOffset returns the (east, up, north) offset in meters from one
// lat/lng/alt to another on a spherical earth. Short baselines use the
// flat-earth approximation with latitude correction; longer ones switch
// to bearing and haversine distance.
func enuOffset(fromLat, fromLng, fromAlt, toLat, toLng, toAlt float64) Vector3 {
	lat1 := fromLat * math.Pi / 180
	lon1 := fromLng * math.Pi / 180
	lat2 := toLat * math.Pi / 180
	lon2 := toLng * math.Pi / 180

	deltaLat := lat2 - lat1
	deltaLon := lon2 - lon1

	northOffset := earthRadius * deltaLat
	avgLat := (lat1 + lat2) / 2
	eastOffset := earthRadius * deltaLon * math.Cos(avgLat)

	if math.Abs(deltaLat) > 0.01 || math.Abs(deltaLon) > 0.01 {
		bearing := math.Atan2(
			math.Sin(deltaLon)*math.Cos(lat2),
			math.Cos(lat1)*math.Sin(lat2)-math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon),
		)
		distance := haversine(lat1, lon1, lat2, lon2)
		eastOffset = distance * math.Sin(bearing)
		northOffset = distance * math.Cos(bearing)
	}

	return Vector3{X: eastOffset, Y: toAlt - fromAlt, Z: northOffset}
}

// haversine great-circle distance in meters; inputs in radians.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	deltaLat := lat2 - lat1
	deltaLon := lon2 - lon1
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
