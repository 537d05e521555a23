package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"trench_war_server/config"
	"trench_war_server/network"
	"trench_war_server/storage"
)

func serve(parent context.Context, s config.Settings) error {
	cfg, err := config.LoadGameConfig(s.ConfigPath)
	if err != nil {
		return errors.Wrap(err, "load game config failed")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := network.NewDirectory()
	var (
		regCfgs     []network.RegistryCfg
		handlerCfgs []network.HandlerCfg
		recorderRun = func(context.Context) {}
	)
	if s.DBPath != "" {
		store, err := storage.Open(s.DBPath)
		if err != nil {
			return errors.Wrap(err, "open profile store failed")
		}
		defer store.Close()
		recorder := storage.NewRecorder(store, cfg.Server.SendBuffer)
		regCfgs = append(regCfgs, network.RecordOnRemove(recorder))
		handlerCfgs = append(handlerCfgs, network.WithResultSink(recorder))
		recorderRun = recorder.Run
	}

	// Session loops are stopped by registry.Close once the listener is down.
	loopCtx, cancelLoops := context.WithCancel(context.Background())
	defer cancelLoops()

	registry, err := network.NewRegistry(loopCtx, cfg, dir, regCfgs...)
	if err != nil {
		return errors.Wrap(err, "create registry failed")
	}
	handler, err := network.NewHandler(registry, dir, handlerCfgs...)
	if err != nil {
		return errors.Wrap(err, "create handler failed")
	}

	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	recorderDone := make(chan struct{})
	go func() {
		recorderRun(recorderCtx)
		close(recorderDone)
	}()
	go handler.RunReaper(ctx, time.Duration(cfg.Server.ReapIntervalSec)*time.Second)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.Port),
		Handler:           newMux(handler, s.StaticDir, cfg.Server.SendBuffer),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("Trench War server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen failed")
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownGraceSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown incomplete")
	}
	handler.Close()
	registry.Close()
	stopRecorder()
	<-recorderDone
	return nil
}

func newMux(h *network.Handler, staticDir string, sendBuffer int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		network.ServeWs(h, sendBuffer, w, r)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.Diagnostics()); err != nil {
			logger.WithError(err).Warn("write health failed")
		}
	})
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	})
	return mux
}
