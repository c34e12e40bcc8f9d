package geo

import "math"

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// Location is a WGS 84 coordinate in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude" mapstructure:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" mapstructure:"longitude" validate:"longitude"`
}

// Distance returns the haversine distance between a and b in kilometres,
// rounded to two decimal places.
func Distance(a, b Location) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dlat := lat2 - lat1
	dlon := toRadians(b.Longitude) - toRadians(a.Longitude)

	sinDlat := math.Sin(dlat / 2)
	sinDlon := math.Sin(dlon / 2)
	h := sinDlat*sinDlat + math.Cos(lat1)*math.Cos(lat2)*sinDlon*sinDlon
	c := 2 * math.Asin(math.Sqrt(h))

	return round2(EarthRadiusKM * c)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
