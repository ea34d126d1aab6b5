// Package scoring derives the simplified WWS points score and the maximum legal
// rent for a rental listing.
//
// The weights below are placeholder constants, not a faithful rendition of the
// national Woningwaarderingsstelsel. They must stay bit-for-bit as they are.
package scoring

import (
	"fmt"
	"math"
)

// DefaultEurPerPoint is the euros-per-point rate used to derive the maximum legal rent.
const DefaultEurPerPoint = 5.56

const (
	sizePointsPerM2    = 0.8
	wozEurPerPoint     = 20000
	kitchenPointsEach  = 2
	kitchenPointsCap   = 15
	bathroomPointsEach = 3
	bathroomPointsCap  = 15
	outdoorPointsPerM2 = 1.5
	roomPointsEach     = 2
)

// energyLabelPoints maps an energy label to its contribution. Unknown labels score 0.
var energyLabelPoints = map[string]int{
	"A++++": 40,
	"A+++":  35,
	"A++":   30,
	"A+":    25,
	"A":     20,
	"B":     15,
	"C":     10,
	"D":     5,
	"E":     0,
	"F":     -5,
	"G":     -10,
}

// EnergyLabels lists the recognised labels from best to worst.
var EnergyLabels = []string{"A++++", "A+++", "A++", "A+", "A", "B", "C", "D", "E", "F", "G"}

// EnergyLabelPoints returns the points for label and whether the label is known.
func EnergyLabelPoints(label string) (int, bool) {
	p, ok := energyLabelPoints[label]
	return p, ok
}

// Input holds the listing attributes that contribute to the score.
// NaN or infinite numbers count as zero.
type Input struct {
	Size              float64
	EnergyLabel       string
	WOZ               float64
	KitchenAmenities  []string
	BathroomAmenities []string
	OutdoorSpaceSize  float64
	Rooms             int
}

// Term is one line of the score breakdown.
type Term struct {
	Item   string `json:"item"`
	Points int    `json:"points"`
}

// Result is the outcome of scoring a listing.
type Result struct {
	Points       int
	MaxLegalRent float64
	Terms        []Term
}

// Calculator scores listings at a fixed euros-per-point rate.
type Calculator struct {
	eurPerPoint float64
}

// NewCalculator returns a Calculator for the given rate. A non-positive or NaN
// rate falls back to DefaultEurPerPoint.
func NewCalculator(eurPerPoint float64) *Calculator {
	if math.IsNaN(eurPerPoint) || math.IsInf(eurPerPoint, 0) || eurPerPoint <= 0 {
		eurPerPoint = DefaultEurPerPoint
	}
	return &Calculator{eurPerPoint: eurPerPoint}
}

// EurPerPoint reports the rate in use.
func (c *Calculator) EurPerPoint() float64 { return c.eurPerPoint }

// Compute scores in at the default rate.
func Compute(in Input) Result {
	return NewCalculator(DefaultEurPerPoint).Compute(in)
}

// Compute applies the seven additive terms in their fixed order, clamps the
// total at zero and derives the maximum legal rent from the clamped total.
func (c *Calculator) Compute(in Input) Result {
	terms := Breakdown(in)

	total := 0
	for _, t := range terms {
		total += t.Points
	}
	if total < 0 {
		total = 0
	}

	return Result{
		Points:       total,
		MaxLegalRent: MaxLegalRent(total, c.eurPerPoint),
		Terms:        terms,
	}
}

// MaxLegalRent returns round(points * eurPerPoint, 2).
func MaxLegalRent(points int, eurPerPoint float64) float64 {
	return roundCents(float64(points) * eurPerPoint)
}

// Breakdown returns the individual terms, unclamped, in application order.
func Breakdown(in Input) []Term {
	size := finite(in.Size)
	woz := finite(in.WOZ)
	outdoor := finite(in.OutdoorSpaceSize)

	energy, _ := EnergyLabelPoints(in.EnergyLabel)

	outdoorPoints := 0
	if outdoor > 0 {
		outdoorPoints = int(math.Floor(outdoor * outdoorPointsPerM2))
	}

	return []Term{
		{Item: fmt.Sprintf("Oppervlakte (%g m²)", size), Points: int(math.Floor(size * sizePointsPerM2))},
		{Item: fmt.Sprintf("Energielabel (%s)", labelOrDash(in.EnergyLabel)), Points: energy},
		{Item: fmt.Sprintf("WOZ-waarde (€%.0f)", woz), Points: int(math.Floor(woz / wozEurPerPoint))},
		{Item: fmt.Sprintf("Keuken (%d voorzieningen)", len(in.KitchenAmenities)), Points: min(len(in.KitchenAmenities)*kitchenPointsEach, kitchenPointsCap)},
		{Item: fmt.Sprintf("Sanitair (%d voorzieningen)", len(in.BathroomAmenities)), Points: min(len(in.BathroomAmenities)*bathroomPointsEach, bathroomPointsCap)},
		{Item: fmt.Sprintf("Buitenruimte (%g m²)", outdoor), Points: outdoorPoints},
		{Item: fmt.Sprintf("Kamers (%d)", in.Rooms), Points: in.Rooms * roomPointsEach},
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// roundCents rounds half away from zero to two decimals.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func labelOrDash(label string) string {
	if label == "" {
		return "-"
	}
	return label
}
