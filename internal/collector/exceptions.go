package collector

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"debugbar/internal/domain"
	"debugbar/internal/editorlink"
	"debugbar/internal/formatter"
	"debugbar/internal/stackfilter"
)

// surroundingBefore and surroundingCount select the source lines shown
// around the line that raised an error.
const (
	surroundingBefore = 4
	surroundingCount  = 7
)

// ExceptionData is the display form of one recorded error or panic.
type ExceptionData struct {
	Type             string       `json:"type"`
	Message          string       `json:"message"`
	Code             int          `json:"code"`
	File             string       `json:"file"`
	Line             int          `json:"line"`
	StackTrace       string       `json:"stack_trace"`
	SurroundingLines []string     `json:"surrounding_lines"`
	OriginLink       *domain.Link `json:"origin_link"`
}

// ExceptionsReport is the snapshot of an ExceptionsCollector.
type ExceptionsReport struct {
	Count      int             `json:"count"`
	Exceptions []ExceptionData `json:"exceptions"`
}

type recordedError struct {
	typ     string
	message string
	code    int
	origin  domain.Frame
	stack   []domain.Frame
}

// ExceptionsCollector records errors and recovered panics with the place
// they were reported from.
type ExceptionsCollector struct {
	mu       sync.Mutex
	records  []recordedError
	chain    bool
	excluded []string
	linker   *editorlink.Linker
	readFile func(string) ([]byte, error)

	env env
}

// NewExceptionsCollector returns an empty collector.
func NewExceptionsCollector() *ExceptionsCollector {
	return &ExceptionsCollector{
		excluded: excludedPaths(nil),
		readFile: os.ReadFile,
		env:      defaultEnv(),
	}
}

// Name implements Collector.
func (c *ExceptionsCollector) Name() string { return "exceptions" }

// Snapshot implements Collector.
func (c *ExceptionsCollector) Snapshot() any { return c.Collect() }

// SetChainErrors also records every error wrapped by an added error.
func (c *ExceptionsCollector) SetChainErrors(enabled bool) {
	c.mu.Lock()
	c.chain = enabled
	c.mu.Unlock()
}

// SetLinker implements LinkerAware.
func (c *ExceptionsCollector) SetLinker(l *editorlink.Linker) {
	c.mu.Lock()
	c.linker = l
	c.mu.Unlock()
}

// AddExcludedPaths adds path substrings skipped when resolving origins.
func (c *ExceptionsCollector) AddExcludedPaths(paths ...string) {
	c.mu.Lock()
	c.excluded = append(c.excluded, paths...)
	c.mu.Unlock()
}

// AddError records err at the caller's location. Nil errors are ignored.
func (c *ExceptionsCollector) AddError(err error) {
	if err == nil {
		return
	}
	stack := c.env.safeCapture()

	c.mu.Lock()
	defer c.mu.Unlock()
	origin, _ := stackfilter.FirstRelevantFrame(stack, c.excluded)
	for err != nil {
		c.records = append(c.records, recordedError{
			typ:     formatter.FormatClassName(err),
			message: err.Error(),
			code:    errorCode(err),
			origin:  origin,
			stack:   stack,
		})
		if !c.chain {
			return
		}
		err = errors.Unwrap(err)
	}
}

// AddPanic records a value recovered from a panic. A nil stack is captured
// at the call site, which inside a deferred recover still includes the
// panicking frames.
func (c *ExceptionsCollector) AddPanic(recovered any, stack []domain.Frame) {
	if recovered == nil {
		return
	}
	if stack == nil {
		stack = c.env.safeCapture()
	}
	rec := recordedError{typ: "panic", message: fmt.Sprint(recovered)}
	if err, ok := recovered.(error); ok {
		rec.typ = "panic: " + formatter.FormatClassName(err)
		rec.code = errorCode(err)
	}
	rec.stack = stack

	c.mu.Lock()
	defer c.mu.Unlock()
	rec.origin, _ = stackfilter.FirstRelevantFrame(stack, c.excluded)
	c.records = append(c.records, rec)
}

// Count returns the number of recorded entries.
func (c *ExceptionsCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Collect implements the snapshot.
func (c *ExceptionsCollector) Collect() ExceptionsReport {
	c.mu.Lock()
	records := append([]recordedError(nil), c.records...)
	linker, readFile := c.linker, c.readFile
	c.mu.Unlock()

	out := make([]ExceptionData, len(records))
	for i, r := range records {
		out[i] = ExceptionData{
			Type:             r.typ,
			Message:          r.message,
			Code:             r.code,
			File:             linker.NormalizePath(r.origin.File),
			Line:             r.origin.Line,
			StackTrace:       stackTrace(r.stack, linker),
			SurroundingLines: surroundingLines(readFile, r.origin, linker),
			OriginLink:       linker.FrameLink(r.origin),
		}
	}
	return ExceptionsReport{Count: len(out), Exceptions: out}
}

func errorCode(err error) int {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code()
	}
	return 0
}

func surroundingLines(readFile func(string) ([]byte, error), origin domain.Frame, linker *editorlink.Linker) []string {
	if origin.File != "" {
		if data, err := readFile(origin.File); err == nil {
			lines := strings.Split(string(data), "\n")
			start := max(0, origin.Line-surroundingBefore)
			if start >= len(lines) {
				return []string{}
			}
			end := min(len(lines), start+surroundingCount)
			return lines[start:end]
		}
	}
	return []string{"Cannot open the file (" + linker.NormalizePath(origin.File) + ") in which the error occurred"}
}

func stackTrace(stack []domain.Frame, linker *editorlink.Linker) string {
	var b strings.Builder
	for i, f := range stack {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(' ')
		b.WriteString(linker.NormalizePath(f.File))
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(f.Line))
		b.WriteString("): ")
		if f.Namespace != "" {
			b.WriteString(f.Namespace)
			b.WriteByte('.')
		}
		b.WriteString(f.Function)
	}
	return b.String()
}
