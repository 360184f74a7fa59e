package stackfilter

import (
	"runtime"
	"strings"

	"debugbar/internal/domain"
)

// Capture records up to depth frames of the calling goroutine's stack,
// innermost first. skip=0 starts at the caller of Capture.
func Capture(skip, depth int) []domain.Frame {
	if depth <= 0 {
		depth = DefaultDepth
	}
	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]domain.Frame, 0, n)
	for {
		rf, more := frames.Next()
		out = append(out, FromRuntime(len(out), rf))
		if !more {
			break
		}
	}
	return out
}

// FromRuntime converts a runtime.Frame. The symbol is split into the
// namespace (import path plus receiver) and the bare function name.
func FromRuntime(index int, rf runtime.Frame) domain.Frame {
	ns, fn := SplitSymbol(rf.Function)
	return domain.Frame{
		Index:     index,
		File:      rf.File,
		Line:      rf.Line,
		Namespace: ns,
		Function:  fn,
	}
}

// SplitSymbol splits a fully qualified Go symbol such as
// "example.com/app/store.(*Repo).Find" into "example.com/app/store.(*Repo)"
// and "Find".
func SplitSymbol(symbol string) (namespace, function string) {
	if symbol == "" {
		return "", ""
	}
	slash := strings.LastIndex(symbol, "/")
	dot := strings.LastIndex(symbol[slash+1:], ".")
	if dot < 0 {
		return "", symbol
	}
	dot += slash + 1
	return symbol[:dot], symbol[dot+1:]
}
