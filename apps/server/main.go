package main

import (
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"truco-mesa/apps/server/internal/gateway"
	"truco-mesa/apps/server/internal/lobby"
	"truco-mesa/apps/server/internal/session"
	"truco-mesa/apps/server/internal/stats"
)

func main() {
	logger := newLogger()
	defer logger.Sync()
	log := logger.Sugar()

	sessionService, sessionMode, err := session.NewServiceFromEnv()
	if err != nil {
		log.Fatalw("session service init failed", "err", err)
	}
	defer sessionService.Close()

	statsService, statsMode, err := stats.NewServiceFromEnv(log)
	if err != nil {
		log.Fatalw("stats service init failed", "err", err)
	}
	defer statsService.Close()

	lby := lobby.New(statsService, log)
	defer lby.Close()
	gw := gateway.New(lby, sessionService, log)
	statsHTTP := stats.NewHTTPHandler(statsService)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	statsHTTP.RegisterRoutes(mux)

	addr := listenAddr()
	log.Infow("server starting", "addr", addr, "session", sessionMode, "stats", statsMode)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalw("server stopped", "err", err)
	}
}

func newLogger() *zap.Logger {
	if strings.EqualFold(os.Getenv("LOG_MODE"), "development") {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

func listenAddr() string {
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		return ":" + v
	}
	return ":8080"
}
