package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"debugbar/internal/debugbar"
	"debugbar/internal/domain"
)

// DebugbarIDHeader tells the client which dataset belongs to a response.
const DebugbarIDHeader = "X-Debugbar-Id"

// BarFactory builds the DebugBar for one request.
type BarFactory func(opts ...debugbar.Option) *debugbar.DebugBar

// Inject gives every request its own DebugBar. The bar is reachable through
// the request context, its ID is sent in X-Debugbar-Id, and its dataset is
// saved to store once the handler returns. Panics are recorded in the
// exceptions collector and then re-raised.
func Inject(factory BarFactory, store domain.SnapshotStore, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "debugbar")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			opts := []debugbar.Option{
				debugbar.WithStore(store),
				debugbar.WithLogger(logger),
				debugbar.WithRequest(debugbar.RequestInfo{
					Method: r.Method,
					URI:    r.URL.RequestURI(),
					IP:     remoteHost(r),
				}),
			}
			if id := RequestIDFromContext(r.Context()); id != "" {
				opts = append(opts, debugbar.WithID(id))
			}
			bar := factory(opts...)
			w.Header().Set(DebugbarIDHeader, bar.ID())

			timeline := bar.Timeline()
			if timeline != nil {
				timeline.StartMeasure("application", "Application", "")
			}

			ctx := debugbar.WithBar(r.Context(), bar)
			defer func() {
				recovered := recover()
				if recovered != nil && !errors.Is(asError(recovered), http.ErrAbortHandler) {
					if exc := bar.Exceptions(); exc != nil {
						exc.AddPanic(recovered, nil)
					}
				}
				if timeline != nil {
					_ = timeline.StopMeasure("application", nil)
				}
				if err := bar.Save(context.WithoutCancel(ctx)); err != nil {
					logger.Debug("save dataset", "id", bar.ID(), "error", err)
				}
				if recovered != nil {
					panic(recovered)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func asError(v any) error {
	err, _ := v.(error)
	return err
}

// remoteHost is RemoteAddr without the port.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
