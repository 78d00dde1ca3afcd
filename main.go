// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
	"github.com/kaspa-ng/dnsseeder/internal/apperr"
	"github.com/kaspa-ng/dnsseeder/internal/crawler"
	"github.com/kaspa-ng/dnsseeder/internal/dnsresponder"
	"github.com/kaspa-ng/dnsseeder/internal/logging"
	"github.com/kaspa-ng/dnsseeder/internal/probe"
	"github.com/kaspa-ng/dnsseeder/internal/rpcapi"
	"github.com/kaspa-ng/dnsseeder/internal/seeder"

	"github.com/benbjohnson/clock"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code per §6: 0 graceful, 1 config error, 2
// fatal runtime error.
func run() int {
	lcfg, err := loadConfig(os.Args[1:])
	if err != nil {
		var cfgErr *apperr.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", cfgErr)
			return 1
		}
		fmt.Fprintf(os.Stderr, "loadConfig: %v\n", err)
		return 1
	}

	log, err := logging.New(lcfg.cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting seeder",
		zap.String("network", lcfg.netParams.Name),
		zap.String("host", lcfg.cfg.Host),
		zap.Int("threads", lcfg.cfg.Threads))

	clk := clock.New()
	tuning := addrmgr.DefaultTuning()
	persist := addrmgr.NewPersistence(lcfg.appDir, log.Named("addrmgr"))
	store := addrmgr.New(lcfg.netParams.DefaultPort, tuning, clk, log.Named("addrmgr"), persist)

	if err := store.Load(); err != nil {
		log.Warn("failed to load persisted peers", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	startPeriodicFlushAndSweep(ctx, &wg, store, log.Named("addrmgr"))

	resolver := &net.Resolver{}
	sd := seeder.New(store, resolver, lcfg.netParams, log.Named("seeder"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		sd.RunPeriodically(ctx)
	}()

	probeCfg := probe.DefaultConfig(lcfg.netParams.NetID, 1, lcfg.cfg.MinProtoVer)
	probeCfg.MinUserAgentVer = lcfg.cfg.MinUAVer
	prober := probe.NewTCPProber(probeCfg, log.Named("probe"))

	cw := crawler.New(store, prober, crawler.Config{
		Threads:     lcfg.cfg.Threads,
		SeedTimeout: crawler.DefaultSeedTimeout,
	}, clk, log.Named("crawler"))

	wg.Add(1)
	go func() {
		defer wg.Done()
		cw.Run(ctx, sd.Run, lcfg.knownPeers)
	}()

	dnsSrv := dnsresponder.New(dnsresponder.Config{
		Zone:       lcfg.cfg.Host,
		Nameserver: lcfg.cfg.Nameserver,
		Listen:     lcfg.cfg.Listen,
		TTL:        300,
	}, store, log.Named("dns"))

	dnsErrCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dnsSrv.ListenAndServe(); err != nil {
			dnsErrCh <- err
		}
	}()

	grpcSrv := startInspectionServer(lcfg.cfg.GRPCListen, store, log.Named("rpcapi"))

	var profileSrv *http.Server
	if lcfg.cfg.Profile != "" {
		profileSrv = startProfileServer(lcfg.cfg.Profile, log.Named("profile"))
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-dnsErrCh:
		log.Error("dns responder terminated unexpectedly", zap.Error(err))
		exitCode = 2
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), crawler.DefaultShutdownGrace)
	defer cancel()

	grpcSrv.GracefulStop()
	_ = dnsSrv.Shutdown()
	if profileSrv != nil {
		_ = profileSrv.Shutdown(shutdownCtx)
	}

	waitWithTimeout(&wg, crawler.DefaultShutdownGrace)

	if err := store.Persist(); err != nil {
		log.Warn("final persist failed", zap.Error(err))
	}

	log.Info("seeder shutdown complete")
	return exitCode
}

func startPeriodicFlushAndSweep(ctx context.Context, wg *sync.WaitGroup, store *addrmgr.Store, log *zap.Logger) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		flushTicker := time.NewTicker(addrmgr.FlushInterval())
		sweepTicker := time.NewTicker(addrmgr.SweepInterval())
		defer flushTicker.Stop()
		defer sweepTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-flushTicker.C:
				if err := store.Persist(); err != nil {
					log.Warn("periodic persist failed", zap.Error(err))
				}
			case <-sweepTicker.C:
				store.RetireSweep()
			}
		}
	}()
}

func startInspectionServer(listen string, store *addrmgr.Store, log *zap.Logger) *grpc.Server {
	lis, err := net.Listen("tcp", listen)
	if err != nil {
		log.Error("failed to bind inspection listener", zap.Error(err))
		return grpc.NewServer()
	}
	s := grpc.NewServer()
	rpcapi.Register(s, rpcapi.NewService(store))
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Info("inspection server stopped", zap.Error(err))
		}
	}()
	log.Info("inspection server listening", zap.String("address", listen))
	return s
}

func startProfileServer(portOrAddr string, log *zap.Logger) *http.Server {
	addr := portOrAddr
	if _, err := strconv.Atoi(portOrAddr); err == nil {
		addr = net.JoinHostPort("127.0.0.1", portOrAddr)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("profile server stopped", zap.Error(err))
		}
	}()
	log.Info("profile server listening", zap.String("address", addr))
	return srv
}

func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
