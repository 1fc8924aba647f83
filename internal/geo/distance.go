// Package geo computes great-circle distances and orders things by proximity.
package geo

import (
	"math"
	"sort"
	"strconv"
)

const (
	EarthRadiusMiles = 3959.0
	EarthRadiusKm    = 6371.0
)

// Coordinate is a WGS84 point. A nil *Coordinate means "location unknown".
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Locatable is anything that may carry a coordinate.
type Locatable interface {
	Coordinates() *Coordinate
}

// Ranked pairs an item with its distance from some origin.
type Ranked[T any] struct {
	Item     T
	Distance *float64
}

func haversine(a, b Coordinate, radius float64) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push h just past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return radius * 2 * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CalculateDistance returns the distance in miles rounded to one decimal,
// or nil when either side is unknown.
func CalculateDistance(a, b *Coordinate) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := round1(haversine(*a, *b, EarthRadiusMiles))
	return &d
}

// CalculateDistanceKm is CalculateDistance in kilometres.
func CalculateDistanceKm(a, b *Coordinate) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := round1(haversine(*a, *b, EarthRadiusKm))
	return &d
}

// FormatDistance renders a distance in miles for display.
func FormatDistance(distance *float64) string {
	if distance == nil {
		return "Distance unknown"
	}

	d := *distance
	switch {
	case d < 1:
		return "Less than 1 mile away"
	case d == 1:
		return "1 mile away"
	default:
		return strconv.FormatFloat(d, 'f', -1, 64) + " miles away"
	}
}

// SortByDistance annotates every item with its distance in miles from origin
// and orders them nearest first. Items without a distance go last; ties keep
// their input order. The input slice is left untouched.
func SortByDistance[T Locatable](items []T, origin *Coordinate) []Ranked[T] {
	ranked := make([]Ranked[T], len(items))
	for i, item := range items {
		ranked[i] = Ranked[T]{
			Item:     item,
			Distance: CalculateDistance(origin, item.Coordinates()),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := ranked[i].Distance, ranked[j].Distance
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})

	return ranked
}
