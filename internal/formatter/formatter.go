// Package formatter renders durations, sizes, source locations and
// arbitrary values for display in collected datasets.
package formatter

import (
	"math"
	"path"
	"reflect"
	"strconv"
	"strings"

	"debugbar/internal/domain"
)

var byteSuffixes = []string{"B", "KB", "MB", "GB", "TB"}

// FormatDuration renders seconds as μs below a millisecond, ms below a
// second and s otherwise.
func FormatDuration(seconds float64) string {
	switch {
	case seconds < 0.001:
		return formatFloat(math.Round(seconds*1e6)) + "μs"
	case seconds < 0.1:
		return formatFloat(round(seconds*1000, 2)) + "ms"
	case seconds < 1:
		return formatFloat(math.Round(seconds*1000)) + "ms"
	}
	return formatFloat(round(seconds, 2)) + "s"
}

// FormatBytes renders a byte count with a binary unit suffix, for example
// 1536 with precision 2 becomes "1.5KB". Sizes past terabytes stay in TB.
func FormatBytes(size int64, precision int) string {
	if size == 0 {
		return "0B"
	}
	sign := ""
	abs := float64(size)
	if size < 0 {
		sign = "-"
		abs = -abs
	}

	exp := int(math.Floor(math.Log(abs) / math.Log(1024)))
	exp = max(0, min(exp, len(byteSuffixes)-1))
	value := abs / math.Pow(1024, float64(exp))
	return sign + formatFloat(round(value, precision)) + byteSuffixes[exp]
}

// FormatSource renders a frame as "file:line". The short form keeps only the
// base name of the file; the long form prefixes the namespace.
func FormatSource(f domain.Frame, short bool) string {
	if f.File == "" && !f.HasSymbol() {
		return ""
	}
	var b strings.Builder
	if !short && f.Namespace != "" {
		b.WriteString(f.Namespace)
		b.WriteString("::")
	}
	name := f.File
	if name == "" {
		name = f.Function
	}
	if short {
		name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	}
	b.WriteString(name)
	b.WriteByte(':')
	if f.Line > 0 {
		b.WriteString(strconv.Itoa(f.Line))
	} else {
		b.WriteByte('1')
	}
	return b.String()
}

// FormatClassName returns the package-qualified type name of v with pointer
// indirections removed. Unnamed struct types are reported as
// "struct@anonymous".
func FormatClassName(v any) string {
	if v == nil {
		return "nil"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" && t.Kind() == reflect.Struct {
		return "struct@anonymous"
	}
	return t.String()
}

func round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

func formatFloat(v float64) string {
	if v == 0 {
		// Avoid "-0" for tiny negative values.
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
