package sqlrender

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"debugbar/internal/domain"
)

// BinaryMarker replaces binding values that are not valid UTF-8.
const BinaryMarker = "[BINARY DATA]"

const timeLayout = "2006-01-02 15:04:05"

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"'", `\'`,
	`"`, `\"`,
	"\x1a", `\Z`,
)

// EmulateQuote quotes a value the way mysql_real_escape_string would.
func EmulateQuote(value string) string {
	return "'" + quoteReplacer.Replace(value) + "'"
}

// CheckBindings makes binding values printable: invalid UTF-8 becomes
// BinaryMarker, slices become a bracketed comma-joined list and maps or
// structs become their JSON encoding. The input slice is not modified.
func CheckBindings(bindings []domain.Binding) []domain.Binding {
	out := make([]domain.Binding, len(bindings))
	for i, b := range bindings {
		out[i] = domain.Binding{Name: b.Name, Value: checkValue(b.Value)}
	}
	return out
}

func checkValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if !utf8.ValidString(x) {
			return BinaryMarker
		}
		return x
	case []byte:
		if !utf8.Valid(x) {
			return BinaryMarker
		}
		return string(x)
	case time.Time, bool, json.Number:
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = elementText(checkValue(rv.Index(i).Interface()))
		}
		return "[" + strings.Join(parts, ",") + "]"
	case reflect.Map, reflect.Struct:
		return encodeJSON(v)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		if rv.Elem().Kind() == reflect.Struct {
			return encodeJSON(v)
		}
		return checkValue(rv.Elem().Interface())
	}
	return v
}

func encodeJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func elementText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return x.Format(timeLayout)
	}
	return fmt.Sprint(v)
}

// Literal renders a checked binding value as SQL text. Numbers are inserted
// as-is, nil as NULL, booleans as 1/0 and everything else is quoted.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "1"
		}
		return "0"
	case json.Number:
		return x.String()
	case time.Time:
		return EmulateQuote(x.Format(timeLayout))
	case string:
		return EmulateQuote(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	}
	return EmulateQuote(fmt.Sprint(v))
}
