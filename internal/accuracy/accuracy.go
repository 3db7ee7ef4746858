// Package accuracy scores delivered quantities against forecast quantities.
//
// Two aggregate conventions exist, one per call site. Dashboard (1 decimal,
// zero/zero items skipped) feeds the accuracy overview. Delivery (2 decimals,
// zero/zero items scored 100) is stored on a prediction when its shipment is
// confirmed.
package accuracy

import (
	"math"
	"sort"
	"strings"
)

// Item scores one item as a percentage in [0,100]
func Item(predicted, actual float64) float64 {
	if predicted == 0 {
		if actual == 0 {
			return 100
		}
		return 0
	}
	return math.Max(0, 100-math.Abs(actual-predicted)/predicted*100)
}

// Result is an aggregate score and the number of items that contributed to it
type Result struct {
	Accuracy  float64 `json:"accuracy"`
	Evaluated int     `json:"evaluated"`
}

// Dashboard averages item scores over the union of keys, skipping items where
// both quantities are zero, and rounds to one decimal place.
func Dashboard(predicted, actual map[string]float64) Result {
	return aggregate(predicted, actual, true, 1)
}

// Delivery averages item scores over the union of keys, scoring zero/zero
// items as 100, and rounds to two decimal places.
func Delivery(predicted, actual map[string]float64) Result {
	return aggregate(predicted, actual, false, 2)
}

// Mean averages already-rounded scores and rounds the result to places
func Mean(scores []float64, places int) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return Round(sum/float64(len(scores)), places)
}

// Round rounds half away from zero
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func aggregate(predicted, actual map[string]float64, skipZeroZero bool, places int) Result {
	p := fold(predicted)
	a := fold(actual)

	union := make(map[string]struct{}, len(p)+len(a))
	for k := range p {
		union[k] = struct{}{}
	}
	for k := range a {
		union[k] = struct{}{}
	}

	// Key order keeps the float sum identical between runs
	var sum float64
	var n int
	for _, k := range sortedKeys(union) {
		pv, av := p[k], a[k]
		if skipZeroZero && pv == 0 && av == 0 {
			continue
		}
		sum += Item(pv, av)
		n++
	}
	if n == 0 {
		return Result{}
	}
	return Result{Accuracy: Round(sum/float64(n), places), Evaluated: n}
}

// fold lower-cases keys; quantities whose keys differ only by case are summed
func fold(q map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(q))
	for _, k := range sortedKeys(q) {
		out[strings.ToLower(strings.TrimSpace(k))] += q[k]
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
