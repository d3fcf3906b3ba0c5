package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crs4/fair-crcc/ometiff"
	"github.com/crs4/fair-crcc/patch"
	"github.com/crs4/fair-crcc/slide"
)

var extractCmd = &cobra.Command{
	Use:   "extract-patches IMAGE",
	Short: "Sample random JPEG patches from a slide",
	Long: `extract-patches draws uniformly random fixed-size patches from the
image and writes each one as an independent JPEG file named
{index:03d}_{x}_{y}.jpg. Draws are independent, with replacement; two
draws may hit the same coordinate, in which case the later file wins.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVips(func() error {
			return timed(func() error { return runExtract(cmd, args[0]) })
		})
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample-patches IMAGE",
	Short: "Sample random multiband JPEG2000 patches from a CRCC slide",
	Long: `sample-patches draws uniformly random fixed-size patches from the
three full-resolution channel pages of a 6-page CRCC slide. The per-page
regions are joined into one 3-band patch, in page order, and written as
JPEG2000 files named {index:03d}_{x}_{y}.jp2.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVips(func() error {
			return timed(func() error { return runSample(cmd, args[0]) })
		})
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(sampleCmd)
	for _, cmd := range []*cobra.Command{extractCmd, sampleCmd} {
		f := cmd.Flags()
		f.IntP("count", "n", 100, "number of patches to draw")
		f.IntP("size", "s", 512, "patch side length in pixels")
		f.IntP("quality", "q", 90, "encoder quality, 1-100")
		f.Int64("seed", 0, "random seed; 0 seeds from the clock")
		f.StringP("out-dir", "o", ".", "output directory")
		f.String("bundle", "", "write all patches into one seekable zstd bundle file instead")
	}
}

func runExtract(cmd *cobra.Command, path string) error {
	s, err := slide.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	logOpened(s)
	return runSampler(cmd, slide.NewSource(s), patch.JPEG)
}

func runSample(cmd *cobra.Command, path string) error {
	s, err := slide.Open(path)
	if err != nil {
		return err
	}
	logOpened(s)
	err = s.RequirePages(ometiff.LayoutPages)
	s.Close()
	if err != nil {
		return err
	}

	pages, err := slide.OpenPages(path, ometiff.ColorPages)
	if err != nil {
		return err
	}
	defer slide.CloseAll(pages)
	src, err := slide.NewMultibandSource(pages...)
	if err != nil {
		return err
	}
	return runSampler(cmd, src, patch.JP2K)
}

func runSampler(cmd *cobra.Command, src patch.Source, format patch.Format) error {
	flags := cmd.Flags()
	count, _ := flags.GetInt("count")
	size, _ := flags.GetInt("size")
	quality, _ := flags.GetInt("quality")
	seed, _ := flags.GetInt64("seed")
	outDir, _ := flags.GetString("out-dir")
	bundle, _ := flags.GetString("bundle")

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var sink patch.Sink
	if bundle != "" {
		f, err := os.Create(bundle)
		if err != nil {
			return fmt.Errorf("create bundle %q err, %w", bundle, err)
		}
		defer f.Close()
		sink, err = patch.NewBundleSink(f)
		if err != nil {
			return err
		}
	} else {
		var err error
		sink, err = patch.NewDirSink(afero.NewOsFs(), outDir)
		if err != nil {
			return err
		}
	}

	sampler, err := patch.New(src, sink, patch.Config{
		Count:   count,
		Size:    size,
		Quality: quality,
		Format:  format,
	},
		patch.WithRand(rand.New(rand.NewSource(seed))),
		patch.WithLogger(logger),
		patch.WithProgress(true),
	)
	if err != nil {
		return err
	}
	logger.Info("sampling patches",
		zap.Int("count", count),
		zap.Int("size", size),
		zap.String("format", format.String()),
		zap.Int64("seed", seed),
	)
	return sampler.Run()
}

func logOpened(s *slide.Slide) {
	logger.Info("opened image file",
		zap.String("path", s.Path()),
		zap.Int("width", s.Width()),
		zap.Int("height", s.Height()),
		zap.Int("bands", s.Bands()),
		zap.Int("pages", s.Pages()),
	)
}
