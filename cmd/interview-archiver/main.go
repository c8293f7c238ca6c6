package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/r3labs/diff/v3"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/interview-archiver"
	"github.com/alanbriolat/interview-archiver/archive"
	"github.com/alanbriolat/interview-archiver/async"
	"github.com/alanbriolat/interview-archiver/fetch"
	"github.com/alanbriolat/interview-archiver/generic"
	"github.com/alanbriolat/interview-archiver/harvest"
	"github.com/alanbriolat/interview-archiver/internal/browser"
	"github.com/alanbriolat/interview-archiver/internal/trigger"
)

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = interview_archiver.WithLogger(ctx, logger)

	app := &cli.App{
		Name:      "interview-archiver",
		Usage:     "download every video and transcript of an interview submission as one ZIP",
		ArgsUsage: "INTERVIEW_URL",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:  "config",
				Usage: "load selectors and timings from YAML `FILE`",
			},
			&cli.StringFlag{
				Name:  "out",
				Value: ".",
				Usage: "save the archive to `DIR`",
			},
			&cli.BoolFlag{
				Name:  "headless",
				Value: true,
				Usage: "run the browser without a window",
			},
			&cli.StringFlag{
				Name:  "chrome-url",
				Usage: "attach to a running browser at DevTools `WS_URL` instead of starting one",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "how often to check the page while waiting",
			},
			&cli.DurationFlag{
				Name:  "video-timeout",
				Usage: "how long to wait for each question's video to load",
			},
			&cli.DurationFlag{
				Name:  "settle-delay",
				Usage: "pause before reading each transcript",
			},
			&cli.DurationFlag{
				Name:  "fetch-timeout",
				Usage: "give up on a single video fetch after this long (0 for no limit)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one INTERVIEW_URL", 2)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(ctx, c, cfg, c.Args().First())
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		stop()
		err = <-result
		if err != nil {
			logger.Fatal(err.Error())
		}
	}
}

// loadConfig layers the config file, if any, and then command line flags over the defaults.
func loadConfig(c *cli.Context) (interview_archiver.Config, error) {
	cfg := interview_archiver.DefaultConfig
	if path := c.Path("config"); path != "" {
		var err error
		if cfg, err = interview_archiver.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if c.IsSet("poll-interval") {
		cfg.PollInterval = c.Duration("poll-interval")
	}
	if c.IsSet("video-timeout") {
		cfg.VideoChangeTimeout = c.Duration("video-timeout")
	}
	if c.IsSet("settle-delay") {
		cfg.SettleDelay = c.Duration("settle-delay")
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, c *cli.Context, cfg interview_archiver.Config, url string) error {
	logger := zap.S()

	tabCtx, closeTab := browser.Launch(ctx, browser.LaunchOptions{
		Headless:  c.Bool("headless"),
		RemoteURL: c.String("chrome-url"),
	})
	defer closeTab()

	logger.Infof("Opening %s", url)
	if err := browser.Navigate(tabCtx, url); err != nil {
		return err
	}
	page := browser.NewPage(cfg.Selectors)
	if err := page.SuppressAutoplay(tabCtx, cfg.PollInterval); err != nil {
		return err
	}
	if err := page.WaitReady(tabCtx, cfg.PollInterval); err != nil {
		return err
	}

	bar := progressbar.DefaultBytes(-1, trigger.DefaultLabel)
	fetchOpts := []fetch.Option{
		// Videos may be served from another host than the page, so cookies are read per video URL
		fetch.WithCookieSource(browser.Cookies),
		fetch.WithProgress(func(downloaded int64, expected int64) {
			if expected > 0 && bar.GetMax() != int(expected) {
				bar.ChangeMax(int(expected))
			}
			generic.Unwrap_(bar.Set(int(downloaded)))
		}),
	}
	if timeout := c.Duration("fetch-timeout"); timeout > 0 {
		fetchOpts = append(fetchOpts, fetch.WithTimeout(timeout))
	}
	harvester := harvest.New(cfg, page, fetch.NewClient(fetchOpts...), &archive.DirDeliverer{Dir: c.String("out")})

	var outcome *harvest.Outcome
	trig := trigger.New(trigger.Config{DefaultLabel: trigger.DefaultLabel, RevertDelay: cfg.DoneRevertDelay},
		func(ctx context.Context, progress func(interview_archiver.HarvestProgress)) (int, error) {
			var err error
			outcome, err = harvester.Run(ctx, progress)
			if err != nil {
				return 0, err
			}
			return outcome.Count(), nil
		},
	)
	defer trig.Close()

	events, err := trig.Subscribe()
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range events.Receive() {
			bar.Describe(event.New.Label)
			changes, err := diff.Diff(event.Old, event.New)
			if err != nil {
				logger.Errorf("failed to diff old and new trigger status: %v", err)
				continue
			}
			for _, change := range changes {
				logger.Debugf("%v: %#v -> %#v", change.Path, change.From, change.To)
			}
		}
	}()

	result, err := trig.Activate(tabCtx)
	if err != nil {
		return err
	}
	count, err := (<-result).Parts()
	generic.Unwrap_(bar.Finish())
	trig.Close()
	wg.Wait()
	if err != nil {
		return err
	}

	if outcome.Skipped != nil {
		logger.Warnf("Some questions were left out: %v", outcome.Skipped)
	}
	if count == 0 {
		logger.Warn("No videos found!")
		return nil
	}
	printSummary(outcome)
	return nil
}

func printSummary(outcome *harvest.Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("%s: %d/%d videos", outcome.Candidate, outcome.Count(), outcome.Total)
	t.AppendHeader(table.Row{"#", "Question", "Entry", "Size", "Transcript"})
	var total uint64
	for _, e := range outcome.Entries {
		transcriptState := "yes"
		if !e.HasTranscript {
			transcriptState = "none"
		}
		t.AppendRow(table.Row{e.Ordinal, e.Label, e.Name, humanize.Bytes(uint64(e.Size)), transcriptState})
		total += uint64(e.Size)
	}
	t.AppendFooter(table.Row{"", "", outcome.Location, humanize.Bytes(total), ""})
	t.SetStyle(table.StyleRounded)
	t.Render()
	fmt.Println()
}
