// Package geo provides the small set of geodesy helpers the controllers
// need: great-circle distance, initial bearing, and a flat-earth local
// tangent plane projection for nearby offsets.
package geo

import "math"

const (
	earthRadiusM = 6371000.0

	// Meters per degree of latitude, constant to first order.
	metersPerDegLat = 111320.0
)

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// Distance returns the great-circle distance in meters between two
// lat/lon points (degrees), using the Haversine formula on a spherical
// earth. Symmetric in its two point arguments.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLam := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLam/2)*math.Sin(dLam/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Bearing returns the initial bearing in radians from point 1 to point 2,
// in [-pi, pi]. 0 = north, positive clockwise (east).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dLam := radians(lon2 - lon1)

	x := math.Sin(dLam) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLam)
	return math.Atan2(x, y)
}

// ToLocalTangentPlane projects a lat/lon point (degrees) into north/east
// meters relative to an origin. Flat-earth approximation, valid for
// offsets up to a few kilometers from the origin.
func ToLocalTangentPlane(originLat, originLon, lat, lon float64) (north, east float64) {
	north = (lat - originLat) * metersPerDegLat
	east = (lon - originLon) * metersPerDegLat * math.Cos(radians(originLat))
	return north, east
}

// FromLocalTangentPlane is the inverse of ToLocalTangentPlane to the same
// approximation order: round-tripping an offset under ~5 km reproduces the
// point to well under a meter.
func FromLocalTangentPlane(originLat, originLon, north, east float64) (lat, lon float64) {
	lat = originLat + north/metersPerDegLat
	lon = originLon + east/(metersPerDegLat*math.Cos(radians(originLat)))
	return lat, lon
}

// WrapPi wraps an angle in radians into [-pi, pi].
func WrapPi(rad float64) float64 {
	for rad > math.Pi {
		rad -= 2 * math.Pi
	}
	for rad < -math.Pi {
		rad += 2 * math.Pi
	}
	return rad
}

// Degrees converts radians to degrees. Exported for the telemetry path,
// which reports headings in degrees.
func Degrees(rad float64) float64 { return degrees(rad) }

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return radians(deg) }
