package ometiff

import (
	"go.uber.org/zap"
)

// Thumbnail assembles the color image of the CRCC slide at in, scales it so
// its width becomes width, and writes it to out. The output encoder follows
// the output extension.
func Thumbnail(in, out string, width, quality int, log *zap.Logger) error {
	color, err := AssembleColor(in)
	if err != nil {
		return err
	}
	defer color.Close()

	if err := color.ResizeToWidth(width); err != nil {
		return err
	}
	log.Info("writing thumbnail",
		zap.String("dest", out),
		zap.Int("width", color.Width()),
		zap.Int("height", color.Height()),
	)
	return color.WriteToFile(out, quality)
}
