package cli

import (
	"fmt"
	"strings"

	"github.com/valyala/fastjson"
)

// metaKey is the dataset entry holding request metadata.
const metaKey = "__meta"

// DatasetSummary is a one-line-per-collector digest of a dataset.
type DatasetSummary struct {
	ID         string             `json:"id"`
	Datetime   string             `json:"datetime"`
	Method     string             `json:"method"`
	URI        string             `json:"uri"`
	IP         string             `json:"ip"`
	Collectors []CollectorSummary `json:"collectors"`
}

// CollectorSummary describes one collector's snapshot.
type CollectorSummary struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Select returns the summaries of the named collectors in the given order,
// skipping names the dataset lacks. No names selects every collector.
func (s *DatasetSummary) Select(names []string) []CollectorSummary {
	if len(names) == 0 {
		return s.Collectors
	}
	out := make([]CollectorSummary, 0, len(names))
	for _, name := range names {
		for _, c := range s.Collectors {
			if c.Name == name {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Summarize digests a raw dataset. Collectors are recognized by the shape
// of their snapshot rather than their name, so renamed collectors are still
// summarized.
func Summarize(data []byte) (*DatasetSummary, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("dataset is not an object: %w", err)
	}

	s := &DatasetSummary{
		ID:       string(v.GetStringBytes(metaKey, "id")),
		Datetime: string(v.GetStringBytes(metaKey, "datetime")),
		Method:   string(v.GetStringBytes(metaKey, "method")),
		URI:      string(v.GetStringBytes(metaKey, "uri")),
		IP:       string(v.GetStringBytes(metaKey, "ip")),
	}
	obj.Visit(func(key []byte, val *fastjson.Value) {
		if string(key) == metaKey {
			return
		}
		s.Collectors = append(s.Collectors, CollectorSummary{
			Name:    string(key),
			Summary: summarizeCollector(val),
		})
	})
	return s, nil
}

func summarizeCollector(v *fastjson.Value) string {
	if v.Type() != fastjson.TypeObject {
		return strings.Trim(string(v.MarshalTo(nil)), `"`)
	}
	switch {
	case v.Exists("nb_statements"):
		out := fmt.Sprintf("%d statements in %s", v.GetInt("nb_statements"), v.GetStringBytes("accumulated_duration_str"))
		if failed := v.GetInt("nb_failed_statements"); failed > 0 {
			out += fmt.Sprintf(", %d failed", failed)
		}
		if excluded := v.GetInt("nb_excluded_statements"); excluded > 0 {
			out += fmt.Sprintf(", %d excluded", excluded)
		}
		return out
	case v.Exists("measures"):
		return fmt.Sprintf("%d measures, %s total", len(v.GetArray("measures")), v.GetStringBytes("duration_str"))
	case v.Exists("is_counter"):
		return fmt.Sprintf("%d instances of %d classes", v.GetInt("count"), len(v.GetArray("data")))
	case v.Exists("exceptions"):
		return fmt.Sprintf("%d exceptions", v.GetInt("count"))
	case v.Exists("messages"):
		return fmt.Sprintf("%d messages", v.GetInt("count"))
	case v.Exists("count"):
		return fmt.Sprintf("%d entries", v.GetInt("count"))
	default:
		return "-"
	}
}
