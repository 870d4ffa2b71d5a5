package domain

import "math"

// Band is a fixed, named numeric range. Both ends are inclusive.
type Band struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Contains reports whether v is within [Min, Max].
func (b Band) Contains(v float64) bool {
	return b.Min <= v && v <= b.Max
}

// PriceBands are shared by every page. Amounts are in DH.
var PriceBands = []Band{
	{Label: "< 50 DH", Min: 0, Max: 50},
	{Label: "50-100 DH", Min: 50, Max: 100},
	{Label: "100-200 DH", Min: 100, Max: 200},
	{Label: "200-500 DH", Min: 200, Max: 500},
	{Label: "> 500 DH", Min: 500, Max: math.MaxFloat64},
}

// DiscountBands are only offered on the promotions page. Values are percents.
var DiscountBands = []Band{
	{Label: "10%-20%", Min: 10, Max: 20},
	{Label: "20%-30%", Min: 20, Max: 30},
	{Label: "30%-50%", Min: 30, Max: 50},
	{Label: "> 50%", Min: 50, Max: 100},
}

// FindBand returns the band with the given label.
func FindBand(bands []Band, label string) (Band, bool) {
	for _, b := range bands {
		if b.Label == label {
			return b, true
		}
	}
	return Band{}, false
}
