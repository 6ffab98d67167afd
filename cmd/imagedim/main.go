// Command imagedim prints the pixel size, resolution and print size of
// image files.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	pageimage "union-bug-placer/internal/image"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: imagedim <image> [image...]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := describe(os.Stdout, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func describe(w io.Writer, path string) error {
	if !pageimage.IsSupportedFormat(path) {
		return fmt.Errorf("unsupported format (want one of %v)", pageimage.SupportedFormats())
	}
	info, err := pageimage.Inspect(path)
	if err != nil {
		return err
	}

	dpi := fmt.Sprintf("%.0fx%.0f dpi", info.DPIX, info.DPIY)
	if !info.DPIStated {
		dpi += " (assumed)"
	}
	fmt.Fprintf(w, "%s: %s, %dx%d px, %s, %.2f x %.2f in\n",
		path, info.Format, info.Width, info.Height, dpi,
		info.WidthInches(), info.HeightInches())
	return nil
}
