package main

import (
	"context"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"github.com/spf13/cobra"

	"github.com/olablt/gio-nanomaps/viewer"
)

func main() {
	var configPath string
	cfg := viewer.DefaultConfig()

	root := &cobra.Command{
		Use:   "nanomaps",
		Short: "Map viewer for a nanomaps catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := viewer.LoadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &loaded, cfg)
			if err := loaded.Validate(); err != nil {
				return err
			}
			go run(loaded)
			app.Main()
			return nil
		},
	}
	f := root.Flags()
	f.StringVar(&configPath, "config", "", "YAML config file")
	f.StringVar(&cfg.CatalogURL, "catalog-url", cfg.CatalogURL, "map catalog endpoint")
	f.StringVar(&cfg.DefaultLayer, "layer", cfg.DefaultLayer, "layer shown at start")
	f.StringVar(&cfg.Locator, "locator", cfg.Locator, "position source: ip, static or none")
	f.Float64Var(&cfg.Static.Lat, "lat", cfg.Static.Lat, "static locator latitude")
	f.Float64Var(&cfg.Static.Lng, "lng", cfg.Static.Lng, "static locator longitude")
	f.Float64Var(&cfg.Static.Accuracy, "accuracy", cfg.Static.Accuracy, "static locator accuracy in meters")
	f.StringVar(&cfg.IPLookupURL, "ip-url", cfg.IPLookupURL, "IP geolocation endpoint")
	f.Float64Var(&cfg.PixelRatio, "pixel-ratio", cfg.PixelRatio, "tile pixel ratio")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent tile downloads")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyFlags copies the flags set on the command line over the file config.
func applyFlags(cmd *cobra.Command, dst *viewer.Config, flags viewer.Config) {
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("catalog-url", func() { dst.CatalogURL = flags.CatalogURL })
	set("layer", func() { dst.DefaultLayer = flags.DefaultLayer })
	set("locator", func() { dst.Locator = flags.Locator })
	set("lat", func() { dst.Static.Lat = flags.Static.Lat })
	set("lng", func() { dst.Static.Lng = flags.Static.Lng })
	set("accuracy", func() { dst.Static.Accuracy = flags.Static.Accuracy })
	set("ip-url", func() { dst.IPLookupURL = flags.IPLookupURL })
	set("pixel-ratio", func() { dst.PixelRatio = flags.PixelRatio })
	set("workers", func() { dst.Workers = flags.Workers })
}

func run(cfg viewer.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresh := make(chan struct{}, 1)
	a := viewer.NewApp(ctx, cfg, refresh, viewer.NewTheme())
	defer a.Close()

	w := new(app.Window)
	w.Option(app.Title("nanomaps"), app.Size(unit.Dp(800), unit.Dp(600)))
	go func() {
		for range refresh {
			w.Invalidate()
		}
	}()
	a.Start(ctx)

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			if e.Err != nil {
				log.Printf("Window closed: %v", e.Err)
			}
			os.Exit(0)
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			a.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}
