package collector

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type status int

type role string

type account struct{ ID int }

type named struct{}

func (named) String() string { return "named!" }

func TestInterpolate(t *testing.T) {
	when := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		template string
		context  map[string]any
		want     string
	}{
		{name: "basic", template: "User {id} did {action}", context: map[string]any{"id": 42, "action": "login"}, want: "User 42 did login"},
		{name: "missing token kept", template: "User {id} did {action}", context: map[string]any{"id": 42}, want: "User 42 did {action}"},
		{name: "nil", template: "v={v}", context: map[string]any{"v": nil}, want: "v="},
		{name: "bool and float", template: "{b} {f}", context: map[string]any{"b": true, "f": 1.5}, want: "true 1.5"},
		{name: "time", template: "at {t}", context: map[string]any{"t": when}, want: "at 2024-05-06T07:08:09.123456+01:00"},
		{name: "stringer", template: "{s}", context: map[string]any{"s": named{}}, want: "named!"},
		{name: "error", template: "{err}", context: map[string]any{"err": errors.New("bad")}, want: "bad"},
		{name: "enum-like kinds", template: "{st}/{r}", context: map[string]any{"st": status(3), "r": role("admin")}, want: "3/admin"},
		{name: "struct", template: "{a}", context: map[string]any{"a": &account{ID: 1}}, want: "[object collector.account]"},
		{name: "slice", template: "{ids}", context: map[string]any{"ids": []int{1, 2}}, want: "array[1,2]"},
		{name: "map", template: "{m}", context: map[string]any{"m": map[string]int{"k": 1}}, want: `array{"k":1}`},
		{name: "unencodable", template: "{m}", context: map[string]any{"m": map[string]any{"f": func() {}}}, want: "null"},
		{name: "other kinds", template: "{c}", context: map[string]any{"c": make(chan int)}, want: "[chan]"},
		{name: "no context", template: "{a}", context: nil, want: "{a}"},
		{name: "repeated token", template: "{a}{a}", context: map[string]any{"a": "x"}, want: "xx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolate(tt.template, tt.context))
		})
	}
}
