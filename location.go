package main

import "math/rand/v2"

// The playable area is a fixed polygon approximating Germany's outline.
// Vertices are (lat, lng) pairs ordered along the border.
var playableBoundary = []Coordinate{
	{54.9, 8.6}, {54.8, 9.9}, {54.4, 11.0}, {54.1, 12.1}, {53.9, 14.2},
	{52.9, 14.15}, {51.9, 14.7}, {51.0, 15.0}, {50.6, 14.6}, {50.3, 12.4},
	{49.7, 12.5}, {48.8, 13.8}, {48.3, 13.4}, {47.6, 13.0}, {47.5, 11.3},
	{47.55, 9.7}, {47.6, 8.6}, {47.55, 7.6}, {48.9, 8.2}, {49.5, 6.4},
	{50.3, 6.0}, {51.0, 5.9}, {51.9, 6.7}, {52.5, 7.0}, {53.3, 7.2},
	{53.7, 7.1}, {54.0, 8.4},
}

// fallbackLocation must lie inside playableBoundary. Used when rejection
// sampling exhausts its attempt budget.
var fallbackLocation = Coordinate{51.0, 9.5}

type hotspot struct {
	name   string
	center Coordinate
}

var hotspots = []hotspot{
	{"Berlin", Coordinate{52.52, 13.41}},
	{"Hamburg", Coordinate{53.55, 9.99}},
	{"München", Coordinate{48.14, 11.58}},
	{"Köln", Coordinate{50.94, 6.96}},
	{"Frankfurt", Coordinate{50.11, 8.68}},
	{"Stuttgart", Coordinate{48.78, 9.18}},
	{"Dresden", Coordinate{51.05, 13.74}},
	{"Leipzig", Coordinate{51.34, 12.37}},
	{"Hannover", Coordinate{52.37, 9.73}},
	{"Nürnberg", Coordinate{49.45, 11.08}},
}

const (
	hotspotJitter     = 0.25 // degrees in each axis
	maxSampleAttempts = 64
)

// GeoSampler draws round locations from the playable boundary.
type GeoSampler struct {
	boundary []Coordinate
	spots    []hotspot
}

func newGeoSampler() *GeoSampler {
	return &GeoSampler{
		boundary: playableBoundary,
		spots:    hotspots,
	}
}

// NextLocation returns a coordinate inside the playable boundary. Hotspot
// mode jitters around a random named point; random mode samples uniformly
// over the boundary's bounding box. Both reject points outside the polygon
// and retry, falling back to a known-inside point after a bounded number
// of attempts rather than looping on a degenerate boundary.
func (s *GeoSampler) NextLocation(mode Mode) Coordinate {
	switch mode {
	case ModeHotspot:
		spot := s.spots[rand.IntN(len(s.spots))]
		for range maxSampleAttempts {
			c := Coordinate{
				Lat: spot.center.Lat + (rand.Float64()*2-1)*hotspotJitter,
				Lng: spot.center.Lng + (rand.Float64()*2-1)*hotspotJitter,
			}
			if pointInPolygon(c, s.boundary) {
				return c
			}
		}
		return spot.center
	default:
		minLat, maxLat, minLng, maxLng := boundingBox(s.boundary)
		for range maxSampleAttempts {
			c := Coordinate{
				Lat: minLat + rand.Float64()*(maxLat-minLat),
				Lng: minLng + rand.Float64()*(maxLng-minLng),
			}
			if pointInPolygon(c, s.boundary) {
				return c
			}
		}
		return fallbackLocation
	}
}

func boundingBox(ring []Coordinate) (minLat, maxLat, minLng, maxLng float64) {
	minLat, maxLat = ring[0].Lat, ring[0].Lat
	minLng, maxLng = ring[0].Lng, ring[0].Lng
	for _, v := range ring[1:] {
		minLat = min(minLat, v.Lat)
		maxLat = max(maxLat, v.Lat)
		minLng = min(minLng, v.Lng)
		maxLng = max(maxLng, v.Lng)
	}
	return
}

// pointInPolygon uses even-odd ray casting on the (lat, lng) plane.
func pointInPolygon(c Coordinate, ring []Coordinate) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lng > c.Lng) != (b.Lng > c.Lng) &&
			c.Lat < (b.Lat-a.Lat)*(c.Lng-a.Lng)/(b.Lng-a.Lng)+a.Lat {
			inside = !inside
		}
	}
	return inside
}
