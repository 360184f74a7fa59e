package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"debugbar/internal/api"
	"debugbar/internal/config"
	"debugbar/internal/debugbar"
	"debugbar/internal/domain"
	"debugbar/internal/middleware"
)

type user struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// demoApp is the instrumented application behind the demo routes.
type demoApp struct {
	db     *sql.DB
	logger *slog.Logger
}

func newRouter(ctx context.Context, cfg *config.Config, store domain.SnapshotStore, db *sql.DB, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)

	api.NewOpenHandler(store, logger).Register(ctx, r, api.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})

	app := &demoApp{db: db, logger: logger.With("component", "demo")}
	settings := settingsFromConfig(cfg.Collectors)
	r.Group(func(g chi.Router) {
		if cfg.Enabled {
			g.Use(middleware.Inject(func(opts ...debugbar.Option) *debugbar.DebugBar {
				return debugbar.NewStandard(settings, opts...)
			}, store, logger))
		}
		g.Get("/", app.index)
		g.Get("/users", app.listUsers)
		g.Post("/users", app.createUser)
		g.Get("/users/{id}", app.getUser)
		g.Get("/fail", app.fail)
		g.Get("/panic", app.explode)
	})
	return r
}

func seedDemoDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (
		id    INTEGER PRIMARY KEY,
		name  TEXT NOT NULL,
		email TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	for i, name := range []string{"ada", "grace", "linus"} {
		if _, err := db.ExecContext(ctx, "INSERT INTO users (id, name, email) VALUES (?, ?, ?)",
			i+1, name, name+"@example.com"); err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}
	return nil
}

func (a *demoApp) index(w http.ResponseWriter, r *http.Request) {
	debugbar.LoggerFrom(r.Context()).Info("rendering index")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage().Render(w); err != nil {
		a.logger.Error("render index", "error", err)
	}
}

func (a *demoApp) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		users []user
		err   error
	)
	debugbar.MeasurerFrom(ctx).Measure("Load users", func() {
		users, err = a.queryUsers(ctx)
	})
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	debugbar.CounterFrom(ctx).CountClass(user{}, len(users))
	debugbar.LoggerFrom(ctx).Info("loaded {count} users", "count", len(users))
	writeJSON(w, http.StatusOK, users)
}

func (a *demoApp) queryUsers(ctx context.Context) ([]user, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT id, name, email FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user
	for rows.Next() {
		var u user
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (a *demoApp) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var u user
	err := a.db.QueryRowContext(ctx, "SELECT id, name, email FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		debugbar.LoggerFrom(ctx).Warning("user {id} not found", "id", id)
		writeJSON(w, http.StatusNotFound, map[string]any{"code": http.StatusNotFound, "message": "user not found"})
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	debugbar.CounterFrom(ctx).CountClass(u, 1)
	writeJSON(w, http.StatusOK, u)
}

func (a *demoApp) createUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" || in.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": http.StatusBadRequest, "message": "name and email are required"})
		return
	}

	u, err := a.insertUser(ctx, in.Name, in.Email)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	debugbar.LoggerFrom(ctx).Info("created user {name}", "name", u.Name)
	writeJSON(w, http.StatusCreated, u)
}

func (a *demoApp) insertUser(ctx context.Context, name, email string) (user, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return user{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	u := user{Name: name, Email: email}
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM users").Scan(&u.ID); err != nil {
		return user{}, fmt.Errorf("next id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO users (id, name, email) VALUES (?, ?, ?)", u.ID, u.Name, u.Email); err != nil {
		return user{}, fmt.Errorf("insert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return user{}, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

// fail runs a statement against a missing table so the failure shows up
// in both the queries and exceptions collectors.
func (a *demoApp) fail(w http.ResponseWriter, r *http.Request) {
	_, err := a.db.ExecContext(r.Context(), "SELECT * FROM missing_table")
	if err == nil {
		err = errors.New("expected statement to fail")
	}
	a.serverError(w, r, err)
}

func (a *demoApp) explode(http.ResponseWriter, *http.Request) {
	panic("demo panic")
}

func (a *demoApp) serverError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	debugbar.ErrorsFrom(ctx).AddError(err)
	debugbar.SlogFrom(ctx, a.logger).Error("request failed",
		"path", r.URL.Path, "request_id", middleware.RequestIDFromContext(ctx), "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"code":    http.StatusInternalServerError,
		"message": http.StatusText(http.StatusInternalServerError),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
