package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pageguard/internal/agent"
	"pageguard/internal/agent/client"
	"pageguard/internal/agent/extract"
	"pageguard/internal/agent/gate"
	"pageguard/internal/agent/sink"
	"pageguard/internal/platform/logger"
)

var watchFlags struct {
	configFile string
	pageURL    string
	serverURL  string
	token      string
	ceiling    int
	debounce   time.Duration
	headless   bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch one page and scan its content until interrupted",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchFlags.configFile, "config", "c", "", "YAML config file")
	watchCmd.Flags().StringVar(&watchFlags.pageURL, "url", "", "page to watch")
	watchCmd.Flags().StringVar(&watchFlags.serverURL, "server", "", "scan API base URL")
	watchCmd.Flags().StringVar(&watchFlags.token, "token", "", "bearer token for the scan API")
	watchCmd.Flags().IntVar(&watchFlags.ceiling, "ceiling", 0, "max submissions per minute")
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 0, "delay after the last mutation before rescanning")
	watchCmd.Flags().BoolVar(&watchFlags.headless, "headless", true, "run the browser headless")
}

func loadWatchConfig() (agent.Config, error) {
	cfg := agent.DefaultConfig()
	if watchFlags.configFile != "" {
		loaded, err := agent.LoadConfig(watchFlags.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if watchFlags.pageURL != "" {
		cfg.PageURL = watchFlags.pageURL
	}
	if watchFlags.serverURL != "" {
		cfg.ServerURL = watchFlags.serverURL
	}
	if watchFlags.token != "" {
		cfg.Token = watchFlags.token
	}
	if watchFlags.ceiling > 0 {
		cfg.Ceiling = watchFlags.ceiling
	}
	if watchFlags.debounce > 0 {
		cfg.Debounce = watchFlags.debounce
	}
	if !watchFlags.headless {
		cfg.Headless = false
	}
	return cfg, cfg.Validate()
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadWatchConfig()
	if err != nil {
		return err
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	log.Info("navigating", "page_url", cfg.PageURL)
	if err := chromedp.Run(browserCtx, chromedp.Navigate(cfg.PageURL)); err != nil {
		return err
	}

	a := agent.New(
		extract.New(browserCtx),
		client.New(cfg.ServerURL, cfg.Token, 0),
		gate.New(cfg.Ceiling, cfg.Window),
		[]sink.Sink{
			sink.NewBadgeLogger(log),
			sink.NewOverlay(browserCtx, log),
		},
		agent.WithDebounce(cfg.Debounce),
		agent.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error {
		// The browser dying ends the run.
		<-browserCtx.Done()
		return browserCtx.Err()
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("agent stopped")
		return nil
	}
	return err
}
