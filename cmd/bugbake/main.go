// Command bugbake stamps the union bug or the indicia onto a PDF without
// the GUI. The bug variant is chosen from the page contrast under the
// anchor, as in the application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"union-bug-placer/internal/app"
	"union-bug-placer/internal/asset"
	"union-bug-placer/internal/bake"
	"union-bug-placer/internal/document"
	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/internal/render"
	"union-bug-placer/internal/units"
	"union-bug-placer/internal/version"
	"union-bug-placer/pkg/geometry"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type options struct {
	in, out string
	page    int // 1-based
	x, y    float64
	width   float64 // 0 keeps the kind's default
	kind    string
	assets  string
	corner  bool
	verbose bool
}

func main() {
	var opts options
	flag.StringVar(&opts.in, "in", "", "Source PDF")
	flag.StringVar(&opts.out, "out", "", "Output PDF (default: <source>_bug.pdf)")
	flag.IntVar(&opts.page, "page", 1, "Page number, 1-based")
	flag.Float64Var(&opts.x, "x", 0, "Left edge of the overlay in inches from the page left")
	flag.Float64Var(&opts.y, "y", 0, "Top edge of the overlay in inches from the page top")
	flag.Float64Var(&opts.width, "width", 0, "Overlay width in inches (default depends on -kind)")
	flag.StringVar(&opts.kind, "kind", "bug", "Overlay kind: bug or indicia")
	flag.StringVar(&opts.assets, "assets", "", "Directory holding the overlay PDFs")
	flag.BoolVar(&opts.corner, "corner", false, "Place in the bottom-right corner, ignoring -x and -y")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose output")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("bugbake", version.String())
		return
	}

	if opts.in == "" {
		fmt.Println("Usage: bugbake -in <file.pdf> [-out out.pdf] [-page 1] [-x 0.5 -y 0.5 | -corner] [-width 0.3] [-kind bug|indicia]")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	api.DisableConfigDir()

	out, err := run(context.Background(), opts, newPdfium, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bugbake: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved %s\n", out)
}

func newPdfium() (render.Rasterizer, error) {
	return render.NewPdfiumRasterizer()
}

// run places one overlay and bakes it. The rasterizer is only started when
// the kind's policy samples the page.
func run(ctx context.Context, opts options, newRasterizer func() (render.Rasterizer, error), w io.Writer) (string, error) {
	kind, err := overlay.ParseKind(opts.kind)
	if err != nil {
		return "", err
	}
	doc, err := document.Load(opts.in)
	if err != nil {
		return "", err
	}
	page := opts.page - 1
	trim, ok := doc.TrimBox(page)
	if !ok {
		return "", fmt.Errorf("page %d: %w (document has %d)", opts.page, app.ErrPageRange, doc.NumPages())
	}

	cfg := app.DefaultConfig()
	cfg.AssetDir = opts.assets
	store := asset.NewStore(asset.ResolveRoot(cfg.AssetDir))

	in := overlay.NewInstance(cfg.Spec(kind))
	if opts.width != 0 {
		if err := in.Resize(opts.width); err != nil {
			return "", err
		}
	}

	anchor := units.InchesToPoint(opts.x, opts.y)
	if opts.corner {
		a, err := store.Get(kind, in.Policy().Variants()[0])
		if err != nil {
			return "", err
		}
		r := overlay.Rect(geometry.Point2D{}, in.Width(), a.Size)
		anchor = overlay.DefaultAnchor(trim, r.Size(), cfg.SafeMargin)
	}
	in.Place(anchor, page)

	var rasterizer render.Rasterizer
	defer func() {
		if rasterizer != nil {
			rasterizer.Close()
		}
	}()
	v, err := in.SelectVariant(page, func() (float64, error) {
		r, err := newRasterizer()
		if err != nil {
			return 0, err
		}
		rasterizer = r
		return render.SampleAt(ctx, r, doc, page, cfg.ContrastSampleScale, cfg.Sampler(), anchor)
	})
	if err != nil {
		fmt.Fprintf(w, "Contrast sample failed (%v), using %s\n", err, v)
	}

	fmt.Fprintf(w, "%s on page %d at (%s, %s) in, %s in wide, variant %s\n",
		kind.Label(), opts.page,
		units.FormatCoord(units.PointsToInches(anchor.X)),
		units.FormatCoord(units.PointsToInches(anchor.Y)),
		units.FormatSize(in.Width()), v)

	output := opts.out
	if output == "" {
		output = bake.SuggestOutputPath(doc.Path)
	}
	out, err := bake.Bake(ctx, bake.Request{
		Source:     doc.Path,
		Output:     output,
		Placements: in.Bakeable(),
		Assets:     store,
	})
	if err != nil {
		if errors.Is(err, asset.ErrAssetUnavailable) {
			return "", fmt.Errorf("%w (looked in %s)", err, store.Root())
		}
		return "", err
	}
	return out, nil
}
