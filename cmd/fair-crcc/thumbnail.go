package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crs4/fair-crcc/ometiff"
)

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail IMAGE",
	Short: "Create a thumbnail of a CRCC slide",
	Long: `thumbnail joins the three full-resolution channel pages of a 6-page
CRCC slide into one color image and scales it down to the requested
width. The output format follows the output file extension.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVips(func() error {
			return timed(func() error { return runThumbnail(cmd, args[0]) })
		})
	},
}

func init() {
	rootCmd.AddCommand(thumbnailCmd)
	f := thumbnailCmd.Flags()
	f.IntP("size", "s", 512, "horizontal size of the resulting image")
	f.IntP("quality", "q", 75, "encoder quality for lossy output formats")
	f.StringP("output", "o", "", "output file; defaults to th_ prepended to the input name")
}

func runThumbnail(cmd *cobra.Command, in string) error {
	size, _ := cmd.Flags().GetInt("size")
	quality, _ := cmd.Flags().GetInt("quality")
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = filepath.Join(filepath.Dir(in), "th_"+filepath.Base(in))
	}
	return ometiff.Thumbnail(in, out, size, quality, logger)
}
