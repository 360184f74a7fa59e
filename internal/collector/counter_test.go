package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type invoice struct{}

func TestObjectCountCollector(t *testing.T) {
	c := NewObjectCountCollector("")

	c.CountClass(&invoice{}, 1)
	c.CountClass(invoice{}, 2)
	c.CountClass("app.User", 5)
	c.CountClass("app.Cart", 3)
	c.CountClass("app.Addr", 3)

	report := c.Collect()
	assert.Equal(t, "counter", c.Name())
	assert.True(t, report.IsCounter)
	assert.Equal(t, 14, report.Count)
	assert.Equal(t, []ClassCount{
		{Class: "app.User", Count: 5},
		{Class: "app.Addr", Count: 3},
		{Class: "app.Cart", Count: 3},
		{Class: "collector.invoice", Count: 3},
	}, report.Data)
}
