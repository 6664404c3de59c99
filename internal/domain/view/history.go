package view

import "strconv"

// Point is one bar of a small chart.
type Point struct {
	Label int     `json:"label" koanf:"label"`
	Value float64 `json:"value" koanf:"value"`
}

// History holds the previous campaigns' small-chart values. The current
// campaign's value is appended under CurrentYear, or the local year of the
// pass when CurrentYear is zero.
type History struct {
	CurrentYear  int     `koanf:"current_year"`
	Applications []Point `koanf:"applications"`
	Applicants   []Point `koanf:"applicants"`
	Average      []Point `koanf:"average"`
}

// DefaultHistory returns the published figures of past campaigns.
func DefaultHistory() History {
	return History{
		Applications: []Point{
			{Label: 2021, Value: 27430},
			{Label: 2022, Value: 30000},
		},
		Applicants: []Point{
			{Label: 2021, Value: 10641},
			{Label: 2022, Value: 12045},
		},
		Average: []Point{
			{Label: 2018, Value: 72.02},
			{Label: 2019, Value: 73.63},
			{Label: 2020, Value: 74.44},
			{Label: 2021, Value: 73.27},
			{Label: 2022, Value: 74.59},
		},
	}
}

// chart appends the current value to past and returns the series with its
// "first-last" range label.
func chart(past []Point, year int, current float64) ([]Point, string) {
	data := make([]Point, 0, len(past)+1)
	data = append(data, past...)
	data = append(data, Point{Label: year, Value: current})
	return data, rangeLabel(data[0].Label, year)
}

func rangeLabel(from, to int) string {
	return strconv.Itoa(from) + "-" + strconv.Itoa(to)
}
