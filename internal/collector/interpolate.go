package collector

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"debugbar/internal/formatter"
)

const interpolateTimeLayout = "2006-01-02T15:04:05.000000-07:00"

// Interpolate replaces {key} tokens in template with values from context.
// Tokens without a matching key are left as they are.
func Interpolate(template string, context map[string]any) string {
	if len(context) == 0 || !strings.Contains(template, "{") {
		return template
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		token := "{" + k + "}"
		if !strings.Contains(template, token) {
			continue
		}
		pairs = append(pairs, token, interpolationValue(context[k]))
	}
	if len(pairs) == 0 {
		return template
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func interpolationValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(interpolateTimeLayout)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}

	// Booleans print as true and false, not as 1 and the empty string.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v)
	case reflect.Slice, reflect.Array, reflect.Map:
		data, err := json.Marshal(v)
		if err != nil {
			return "null"
		}
		return "array" + string(data)
	case reflect.Struct, reflect.Pointer:
		return "[object " + formatter.FormatClassName(v) + "]"
	}
	return "[" + rv.Kind().String() + "]"
}
