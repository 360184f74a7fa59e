package formatter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"debugbar/internal/domain"
)

// maxDumpDepth bounds recursion into nested and self-referencing values.
const maxDumpDepth = 8

// TextDumper renders values as YAML. The text form is what the toolbar
// searches and filters on.
type TextDumper struct{}

var _ domain.VarFormatter = TextDumper{}

// FormatVar implements domain.VarFormatter.
func (TextDumper) FormatVar(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("%+v", v)
		}
	}()
	if v == nil {
		return "null"
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return strings.TrimSpace(string(data))
}

// HTMLDumper renders values as a collapsible HTML tree.
type HTMLDumper struct {
	// Compact starts nested values collapsed.
	Compact bool
}

var _ domain.HTMLDumper = HTMLDumper{}

// RenderVar implements domain.HTMLDumper.
func (d HTMLDumper) RenderVar(v any) string {
	class := "debugbar-dump debugbar-dump-expanded"
	if d.Compact {
		class = "debugbar-dump debugbar-dump-compact"
	}
	var b strings.Builder
	if err := Pre(Class(class), dumpNode(reflect.ValueOf(v), 0)).Render(&b); err != nil {
		return ""
	}
	return b.String()
}

func dumpNode(v reflect.Value, depth int) Node {
	if !v.IsValid() {
		return Span(Class("dump-null"), Text("null"))
	}
	if depth >= maxDumpDepth {
		return Span(Class("dump-note"), Text("…"))
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return Span(Class("dump-null"), Text("null"))
		}
		return dumpNode(v.Elem(), depth+1)
	case reflect.String:
		return Span(Class("dump-str"), Textf("%q", v.String()))
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Span(Class("dump-num"), Textf("%v", v.Interface()))
	case reflect.Slice, reflect.Array:
		items := make([]Node, v.Len())
		for i := range items {
			items[i] = Li(Span(Class("dump-key"), Textf("%d", i)), Text(" => "), dumpNode(v.Index(i), depth+1))
		}
		return Group{typeLabel(v, v.Len()), Ul(items...)}
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		items := make([]Node, len(keys))
		for i, k := range keys {
			items[i] = Li(Span(Class("dump-key"), Textf("%v", k.Interface())), Text(" => "), dumpNode(v.MapIndex(k), depth+1))
		}
		return Group{typeLabel(v, v.Len()), Ul(items...)}
	case reflect.Struct:
		t := v.Type()
		items := make([]Node, 0, t.NumField())
		for i := range t.NumField() {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			items = append(items, Li(Span(Class("dump-key"), Text(field.Name)), Text(": "), dumpNode(v.Field(i), depth+1)))
		}
		return Group{typeLabel(v, -1), Ul(items...)}
	}
	return Span(Class("dump-note"), Textf("[%s]", v.Kind()))
}

func typeLabel(v reflect.Value, n int) Node {
	name := v.Type().String()
	if n >= 0 {
		name = fmt.Sprintf("%s:%d", name, n)
	}
	return Span(Class("dump-type"), Text(name))
}
