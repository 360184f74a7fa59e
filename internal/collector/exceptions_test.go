package collector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugbar/internal/domain"
	"debugbar/internal/editorlink"
)

type codedError struct{ code int }

func (e codedError) Error() string { return fmt.Sprintf("code %d", e.code) }
func (e codedError) Code() int     { return e.code }

func TestExceptionsCollector_AddError(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "handler.go")
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	require.NoError(t, os.WriteFile(file, []byte(strings.Join(lines, "\n")), 0o600))

	c := NewExceptionsCollector()
	c.SetLinker(editorlink.New("vscode"))
	c.env.capture = stack(
		domain.Frame{File: "/srv/app/internal/debugbar/bar.go", Line: 3, Function: "AddError"},
		domain.Frame{File: file, Line: 10, Namespace: "app", Function: "handle"},
	)

	c.AddError(fmt.Errorf("load user: %w", codedError{code: 404}))
	c.AddError(nil)

	report := c.Collect()
	require.Equal(t, 1, report.Count)
	e := report.Exceptions[0]
	assert.Equal(t, "fmt.wrapError", e.Type)
	assert.Equal(t, "load user: code 404", e.Message)
	assert.Equal(t, 404, e.Code)
	assert.Equal(t, 10, e.Line)
	assert.Equal(t, []string{"line 7", "line 8", "line 9", "line 10", "line 11", "line 12", "line 13"}, e.SurroundingLines)
	require.NotNil(t, e.OriginLink)
	assert.Equal(t, "handler.go", e.OriginLink.Filename)
	assert.Contains(t, e.StackTrace, "#1 ")
	assert.Contains(t, e.StackTrace, "app.handle")
}

func TestExceptionsCollector_ChainErrors(t *testing.T) {
	c := NewExceptionsCollector()
	c.env.capture = stack()
	c.SetChainErrors(true)

	root := errors.New("root")
	c.AddError(fmt.Errorf("outer: %w", fmt.Errorf("middle: %w", root)))

	report := c.Collect()
	require.Equal(t, 3, report.Count)
	assert.Equal(t, "root", report.Exceptions[2].Message)
	assert.Equal(t, "errors.errorString", report.Exceptions[2].Type)
}

func TestExceptionsCollector_UnreadableFile(t *testing.T) {
	c := NewExceptionsCollector()
	c.readFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }
	c.env.capture = stack(domain.Frame{File: "/srv/app/gone.go", Line: 5, Function: "f"})

	c.AddError(errors.New("x"))

	e := c.Collect().Exceptions[0]
	assert.Equal(t, []string{"Cannot open the file (srv/app/gone.go) in which the error occurred"}, e.SurroundingLines)
	assert.Nil(t, e.OriginLink, "no editor configured")
}

func TestExceptionsCollector_AddPanic(t *testing.T) {
	c := NewExceptionsCollector()
	frames := []domain.Frame{{File: "/srv/app/main.go", Line: 3, Function: "main"}}
	c.readFile = func(string) ([]byte, error) { return []byte("a\nb\nc"), nil }

	c.AddPanic("index out of range", frames)
	c.AddPanic(codedError{code: 7}, frames)
	c.AddPanic(nil, frames)

	report := c.Collect()
	require.Equal(t, 2, report.Count)
	assert.Equal(t, "panic", report.Exceptions[0].Type)
	assert.Equal(t, "index out of range", report.Exceptions[0].Message)
	assert.Equal(t, []string{"a", "b", "c"}, report.Exceptions[0].SurroundingLines)
	assert.Equal(t, "panic: collector.codedError", report.Exceptions[1].Type)
	assert.Equal(t, 7, report.Exceptions[1].Code)
	assert.Equal(t, "#0 srv/app/main.go(3): main", report.Exceptions[1].StackTrace)
}
