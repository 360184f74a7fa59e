package collector

import (
	"sort"
	"sync"

	"debugbar/internal/formatter"
)

// ClassCount is the number of instances counted for one type.
type ClassCount struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

// CounterReport is the snapshot of an ObjectCountCollector.
type CounterReport struct {
	Data      []ClassCount `json:"data"`
	Count     int          `json:"count"`
	IsCounter bool         `json:"is_counter"`
}

// ObjectCountCollector counts how many values of each type a request
// created or loaded.
type ObjectCountCollector struct {
	mu     sync.Mutex
	name   string
	counts map[string]int
	total  int
}

// NewObjectCountCollector returns an empty counter. An empty name defaults
// to "counter".
func NewObjectCountCollector(name string) *ObjectCountCollector {
	if name == "" {
		name = "counter"
	}
	return &ObjectCountCollector{name: name, counts: make(map[string]int)}
}

// Name implements Collector.
func (c *ObjectCountCollector) Name() string { return c.name }

// Snapshot implements Collector.
func (c *ObjectCountCollector) Snapshot() any { return c.Collect() }

// CountClass adds n to the count for v's type. A string v is used as the
// type name directly.
func (c *ObjectCountCollector) CountClass(v any, n int) {
	class, ok := v.(string)
	if !ok {
		class = formatter.FormatClassName(v)
	}
	c.mu.Lock()
	c.counts[class] += n
	c.total += n
	c.mu.Unlock()
}

// Collect returns counts ordered by count, highest first.
func (c *ObjectCountCollector) Collect() CounterReport {
	c.mu.Lock()
	data := make([]ClassCount, 0, len(c.counts))
	for class, n := range c.counts {
		data = append(data, ClassCount{Class: class, Count: n})
	}
	total := c.total
	c.mu.Unlock()

	sort.Slice(data, func(i, j int) bool {
		if data[i].Count != data[j].Count {
			return data[i].Count > data[j].Count
		}
		return data[i].Class < data[j].Class
	})
	return CounterReport{Data: data, Count: total, IsCounter: true}
}
