package www

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/convert"
	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/task"
)

type Server struct {
	logger  *slog.Logger
	config  config.AppConfigApi
	db      *database.Database
	planner *task.Planner
	hub     *Hub
}

func StartServer(db *database.Database, tasks *task.Tasks, planner *task.Planner, config config.AppConfigApi) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger:  logger,
		config:  config,
		db:      db,
		planner: planner,
		hub:     NewHub(logger),
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	http.Handle("/api/plan", logReqMW(NewPlanHandler(
		logger.With(slog.String("handler", "plan")),
		s.db,
		tasks.PlanningTask)))

	http.Handle("/api/prices", logReqMW(NewEnergyPriceHandler(
		logger.With(slog.String("handler", "prices")),
		s.db,
		tasks.EnergyPriceTask)))

	http.Handle("/api/forecast", logReqMW(NewForecastHandler(
		logger.With(slog.String("handler", "forecast")),
		s.db,
		tasks.ForecastTask)))

	http.Handle("/api/summary", logReqMW(NewSummaryHandler(
		logger.With(slog.String("handler", "summary")),
		s.db,
		s.planner)))

	http.Handle("/api/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		s.db)))

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
	})

	return s
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	for {
		select {
		case err := <-srvErrors:
			if err != nil {
				s.logger.Error("server error", slog.Any("error", err))
			}

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return
		}
	}
}

// BroadcastPlan pushes a freshly stored plan to every websocket client.
// Wired as the planning task's completion callback.
func (s *Server) BroadcastPlan(res task.PlanResult) {
	msg := struct {
		Status    string             `json:"status"`
		Objective float64            `json:"objective"`
		NetCost   float64            `json:"netCost"`
		Rows      []database.PlanRow `json:"rows"`
	}{
		Status:    string(res.Solved.Status),
		Objective: convert.TwoDecimals(res.Solved.Objective),
		NetCost:   convert.TwoDecimals(res.Solved.Breakdown.Net()),
		Rows:      res.Rows,
	}

	buf, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshalling plan broadcast failed", slog.Any("error", err))
		return
	}

	s.hub.Broadcast <- buf
}
