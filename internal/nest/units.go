package nest

import "math"

// FahrenheitThreshold is the largest value treated as Celsius by the
// temperature setters. No thermostat set-point in Celsius goes above it.
const FahrenheitThreshold = 45.0

// FahrenheitToCelsius converts °F to °C
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9.0
}

// CelsiusToFahrenheit converts °C to °F, rounded to the nearest degree
// (halves round up)
func CelsiusToFahrenheit(c float64) float64 {
	return math.Floor(c*(9/5.0) + 32.0 + 0.5)
}

// NormalizeTemperature returns a set-point in Celsius, converting values
// above FahrenheitThreshold from Fahrenheit.
func NormalizeTemperature(t float64) float64 {
	if t > FahrenheitThreshold {
		return FahrenheitToCelsius(t)
	}
	return t
}
