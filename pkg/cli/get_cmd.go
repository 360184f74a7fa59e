package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/valyala/fastjson"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	var collector string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a stored request dataset",
		Long: "Fetch the dataset captured for a request. The id is the value of the\n" +
			"X-Debugbar-Id response header. Datasets can be fetched only once.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.client.Dataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if collector != "" {
				var p fastjson.Parser
				v, err := p.ParseBytes(data)
				if err != nil {
					return fmt.Errorf("parse dataset: %w", err)
				}
				part := v.Get(collector)
				if part == nil {
					return fmt.Errorf("collector %q not in dataset", collector)
				}
				return printRaw(out, part.MarshalTo(nil))
			}

			if getOutputFormat(cmd) == "json" {
				return printRaw(out, data)
			}

			s, err := Summarize(data)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "ID:       %s\n", s.ID)
			_, _ = fmt.Fprintf(out, "Datetime: %s\n", s.Datetime)
			_, _ = fmt.Fprintf(out, "Request:  %s %s\n", s.Method, s.URI)
			_, _ = fmt.Fprintf(out, "IP:       %s\n\n", s.IP)
			rows := make([][]string, 0, len(s.Collectors))
			for _, c := range s.Select(opts.collectors) {
				rows = append(rows, []string{c.Name, c.Summary})
			}
			PrintTable(out, []string{"collector", "summary"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collector, "collector", "c", "", "Print only this collector's raw snapshot")

	return cmd
}

func printRaw(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format dataset: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
