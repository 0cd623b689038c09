// Package util provides the statistics helpers behind store info reports.
//
// The package contains:
//   - statistics: summary statistics over a set of numbers and a quality
//     score for how evenly rows spread over tables
//   - SizeHistogram: a bucketed histogram of encoded row sizes with median
//     and percentile estimates
//
// Both work on plain numbers, so they can be filled from any state without
// holding on to it.
package util
