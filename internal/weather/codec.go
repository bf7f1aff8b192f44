package weather

import (
	"strconv"
	"strings"
)

const temperatureDelimiter = ","

// EncodeTemperatures joins samples into their persisted form.
// A nil or empty slice encodes to "".
func EncodeTemperatures(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, temperatureDelimiter)
}

// DecodeTemperatures is the inverse of EncodeTemperatures. It never fails:
// tokens that do not parse as numbers are dropped, so legacy rows with stray
// garbage still yield their readable samples.
func DecodeTemperatures(joined string) []float64 {
	out := make([]float64, 0)
	if joined == "" {
		return out
	}
	for _, token := range strings.Split(joined, temperatureDelimiter) {
		v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
