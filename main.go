// replwatch writes a stream of sequenced probe records into a primary SQLite
// store, measures how quickly and completely each configured replica catches
// up, and renders the result live to the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"replwatch/config"
	"replwatch/monitor"
	"replwatch/probe"
	"replwatch/store"
	"replwatch/ui"
)

const (
	preflightTimeout = 2 * time.Second
	busyTimeout      = 5 * time.Second
	shutdownWait     = 3 * time.Second
)

func main() {
	configPath := flag.String("config", "replwatch.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Print()

	closeLog, err := setupLogging(cfg.Logging.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		closeLog()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	// Check each store file before opening it for real; a corrupt file is
	// quarantined rather than wedging startup.
	if _, err := store.Preflight(cfg.Primary.Path, "primary", preflightTimeout, log.Printf); err != nil {
		return err
	}
	for _, r := range cfg.Replicas {
		if _, err := store.Preflight(r.Path, r.Name, preflightTimeout, log.Printf); err != nil {
			return err
		}
	}

	// Provisioning: the probe table must exist everywhere before the loops
	// start. Replicas are provisioned read-write once, then only ever read.
	producerSrc, err := store.Open(cfg.Primary.Path, false, busyTimeout)
	if err != nil {
		return err
	}
	defer producerSrc.Close()
	if err := producerSrc.Provision(ctx); err != nil {
		return err
	}
	for _, r := range cfg.Replicas {
		if err := provisionReplica(ctx, r); err != nil {
			return err
		}
	}

	registry := monitor.NewRegistry()
	opTimeout := time.Duration(cfg.Producer.OpTimeoutMS) * time.Millisecond
	producer, err := probe.NewProducer(ctx, producerSrc, registry,
		time.Duration(cfg.Producer.IntervalMS)*time.Millisecond,
		time.Duration(cfg.Producer.RetryDelayMS)*time.Millisecond,
		opTimeout)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		producer.Run(ctx)
	}()

	var sources []*store.SQLiteSource
	defer func() {
		for _, s := range sources {
			_ = s.Close()
		}
	}()
	monPoll := time.Duration(cfg.Monitor.PollIntervalMS) * time.Millisecond
	monTimeout := time.Duration(cfg.Monitor.OpTimeoutMS) * time.Millisecond
	for _, r := range cfg.Replicas {
		// Each monitor owns its own handles so a stalled query in one
		// loop cannot serialize the others.
		pSrc, err := store.Open(cfg.Primary.Path, true, busyTimeout)
		if err != nil {
			return err
		}
		sources = append(sources, pSrc)
		rSrc, err := store.Open(r.Path, true, busyTimeout)
		if err != nil {
			return err
		}
		sources = append(sources, rSrc)

		m := monitor.New(r.Name, pSrc, rSrc, registry, monPoll, monTimeout)
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Run(ctx)
		}()
	}

	dev, err := newDevice(cfg.UI)
	if err != nil {
		return err
	}
	if err := dev.Start(); err != nil {
		return err
	}
	dash := ui.NewDashboard(dev, registry, cfg.UI, cfg.Logging.DumpDir)
	action := dash.Run(ctx)
	dev.Stop()

	// Shutdown is sequenced: stop the loops, wait (bounded) for them to
	// observe cancellation, and only then run any destructive cleanup.
	cancel()
	waitBounded(&wg, shutdownWait)

	if action == ui.ExitTeardown {
		teardownAll(cfg)
	}
	log.Printf("replwatch: shutdown complete")
	return nil
}

func newDevice(cfg config.UIConfig) (ui.Device, error) {
	switch cfg.Mode {
	case "tcell":
		return ui.NewTcellDevice(cfg.Charset, cfg.Color)
	default:
		return ui.NewANSIDevice(cfg.Charset, cfg.Color)
	}
}

func provisionReplica(ctx context.Context, r config.TargetConfig) error {
	src, err := store.Open(r.Path, false, busyTimeout)
	if err != nil {
		return err
	}
	defer src.Close()
	return src.Provision(ctx)
}

// teardownAll drops the probe schema on every configured store. Only reached
// after the operator confirmed the prompt and all loops have stopped.
func teardownAll(cfg *config.Config) {
	paths := []struct{ name, path string }{{"primary", cfg.Primary.Path}}
	for _, r := range cfg.Replicas {
		paths = append(paths, struct{ name, path string }{r.Name, r.Path})
	}
	for _, p := range paths {
		ctx, cancel := context.WithTimeout(context.Background(), busyTimeout)
		src, err := store.Open(p.path, false, busyTimeout)
		if err != nil {
			log.Printf("teardown %s: %v", p.name, err)
			cancel()
			continue
		}
		if err := src.Teardown(ctx); err != nil {
			log.Printf("teardown %s: %v", p.name, err)
		} else {
			log.Printf("teardown %s: probe schema removed", p.name)
		}
		_ = src.Close()
		cancel()
	}
}

func waitBounded(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("replwatch: shutdown timeout, some loops may not have exited")
	}
}
