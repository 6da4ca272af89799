// File: cmd/hioload-lb/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hioload-lb: TCP reverse proxy spreading inbound connections across a
// fixed roster of backends by least-loaded selection.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/momentics/hioload-lb/balancer"
	"github.com/momentics/hioload-lb/config"
)

func main() {
	cfg := balancer.DefaultConfig()
	flag.StringVar(&cfg.MetadataPath, "config", cfg.MetadataPath, "path to the server metadata file")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "inbound TCP port")
	flag.IntVar(&cfg.MaxConnsPerBackend, "max-connections-per-backend", cfg.MaxConnsPerBackend, "per-backend client limit")
	debug := flag.Bool("debug", false, "trace payloads and slow the poll cycle")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
		cfg.PollTimeout = time.Second
	}

	entries, err := config.ResolveAndLoad(cfg.MetadataPath, balancer.MaxServers, os.Stdin, os.Stdout)
	if err != nil {
		log.Error().Err(err).Msg("could not load server metadata")
		os.Exit(1)
	}

	lb := balancer.New(cfg)
	if lb.Bootstrap(entries) == 0 {
		fmt.Fprintln(os.Stderr, "All server connection attempts failed.")
		os.Exit(1)
	}

	if err := lb.Listen(); err != nil {
		log.Error().Err(err).Msg("could not open listening socket")
		_ = lb.Shutdown()
		os.Exit(1)
	}
	log.Info().Int("port", lb.Port()).Int("backends", lb.Roster().ActiveCount()).Msg("balancer listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Info().Str("signal", s.String()).Msg("shutting down")
		_ = lb.Shutdown()
	}()

	_ = lb.Run()
}
