package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/peertube-dl"
	"github.com/alanbriolat/peertube-dl/async"
	"github.com/alanbriolat/peertube-dl/generic"
	"github.com/alanbriolat/peertube-dl/internal/history"
	"github.com/alanbriolat/peertube-dl/internal/web"
	"github.com/alanbriolat/peertube-dl/resolver/bastyon"
	_ "github.com/alanbriolat/peertube-dl/resolvers"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = peertube_dl.WithLogger(ctx, logger)

	app := &cli.App{
		Name:  "peertube-dl",
		Usage: "download videos from PeerTube instances and Bastyon posts that embed them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "rpc",
				Usage: "Pocketnet RPC endpoint `URL` for post lookups",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "save downloaded video to `DIR`",
			},
			&cli.IntFlag{
				Name:  "max-height",
				Usage: "pick the best rendition at or below `HEIGHT` pixels",
			},
			&cli.BoolFlag{
				Name:  "audio-only",
				Usage: "download the audio track instead of the video",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "don't record completed downloads",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() == 0 {
				return cli.ShowAppHelp(c)
			}
			config, err := loadConfig(c)
			if err != nil {
				return err
			}
			constraints := peertube_dl.SelectionConstraints{
				MaxHeight: c.Int("max-height"),
				AudioOnly: c.Bool("audio-only"),
			}
			store := openHistory(config, c.Bool("no-history"), logger)
			if store != nil {
				defer store.Close()
			}
			for _, input := range c.Args().Slice() {
				if err := download(ctx, config, store, input, constraints); err != nil {
					return err
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the local web UI",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen on `ADDR`",
					},
				},
				Action: func(c *cli.Context) error {
					config, err := loadConfig(c)
					if err != nil {
						return err
					}
					if c.IsSet("listen") {
						config.ListenAddr = c.String("listen")
					}
					store := openHistory(config, c.Bool("no-history"), logger)
					if store != nil {
						defer store.Close()
					}
					server := web.NewServer(web.Config{
						ListenAddr: config.ListenAddr,
						TargetDir:  config.TargetDir,
						History:    store,
					}, logger)
					return server.ListenAndServe(ctx)
				},
			},
			{
				Name:  "history",
				Usage: "list completed downloads",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "show at most `N` entries",
					},
				},
				Action: func(c *cli.Context) error {
					config, err := loadConfig(c)
					if err != nil {
						return err
					}
					store, err := history.Open(config.HistoryPath, logger)
					if err != nil {
						return err
					}
					defer store.Close()
					records, err := store.List(ctx, c.Int("limit"))
					if err != nil {
						return err
					}
					for _, r := range records {
						fmt.Printf("%s  %-40s  %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Filename, r.Host)
					}
					return nil
				},
			},
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
		logger.Error(ctx.Err().Error())
		stop()
	}
}

// loadConfig merges defaults, the optional config file, and global CLI flags,
// then points the post resolver at the configured RPC endpoint.
func loadConfig(c *cli.Context) (peertube_dl.Config, error) {
	config, err := peertube_dl.LoadConfig(c.String("config"))
	if err != nil {
		return config, err
	}
	if c.IsSet("rpc") {
		config.RPCEndpoint = c.String("rpc")
	}
	if c.IsSet("target") {
		config.TargetDir = c.String("target")
	}
	bastyon.Default.RPC.Endpoint = config.RPCEndpoint
	return config, nil
}

func openHistory(config peertube_dl.Config, disabled bool, logger *zap.Logger) *history.Store {
	if disabled {
		return nil
	}
	store, err := history.Open(config.HistoryPath, logger)
	if err != nil {
		logger.Warn("history disabled", zap.Error(err))
		return nil
	}
	return store
}

func download(ctx context.Context, config peertube_dl.Config, store *history.Store, input string, constraints peertube_dl.SelectionConstraints) error {
	logger := peertube_dl.Logger(ctx).Sugar()
	logger.Infof("Downloading from %s into %s", input, config.TargetDir)

	ref, err := peertube_dl.ResolveInput(ctx, input)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	logger.Infof("Resolved to %s", ref)

	meta, err := peertube_dl.FetchVideoMeta(ctx, ref)
	if err != nil {
		return fmt.Errorf("metadata fetch failed: %w", err)
	}
	chosen := peertube_dl.SelectFile(meta, constraints)
	if chosen == nil {
		return fmt.Errorf("no suitable file for %s", ref)
	}
	filename := peertube_dl.DeriveOutputName(meta, chosen)
	logger.Infof("Selected %s (%dp) -> %s", chosen.Kind, chosen.Height, filename)

	bar := progressbar.DefaultBytes(1, "downloading")
	d, err := peertube_dl.NewDownloadBuilder().
		WithContext(ctx).
		WithTargetDir(config.TargetDir).
		WithProgressCallback(func(downloaded, expected int64) {
			if expected > 0 && bar.GetMax64() != expected {
				bar.ChangeMax64(expected)
			}
			generic.Unwrap_(bar.Set64(downloaded))
		}).
		Build()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.SaveURL(filename, chosen.FileURL); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	logger.Info("Download complete!")

	if store != nil {
		downloaded, _ := d.Progress()
		err := store.Add(ctx, history.Record{
			Host:      ref.Host,
			VideoID:   ref.ID,
			Title:     meta.Title(),
			FileURL:   chosen.FileURL,
			Filename:  filename,
			Kind:      string(chosen.Kind),
			Height:    chosen.Height,
			SizeBytes: downloaded,
		})
		if err != nil {
			logger.Warnf("failed to record download history: %v", err)
		}
	}
	return nil
}
