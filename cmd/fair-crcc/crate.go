package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crs4/fair-crcc/rocrate"
)

var crateCmd = &cobra.Command{
	Use:   "crate ROOT_DIR",
	Short: "Build an RO-Crate for the workflow",
	Long: `crate packages the Snakemake workflow directory at ROOT_DIR into a
Workflow RO-Crate: the *.smk workflow file, its declared configuration
files, and the README, plus the JSON-LD metadata describing them. The
output is a directory, or a zip archive when the output name ends in
.zip.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		return runCrate(args[0], out)
	},
}

func init() {
	rootCmd.AddCommand(crateCmd)
	crateCmd.Flags().StringP("output", "o", "fair-crcc", "output RO-Crate directory or zip file")
}

func runCrate(root, out string) error {
	fs := afero.NewOsFs()
	crate, err := rocrate.Build(fs, root)
	if err != nil {
		return err
	}
	logger.Info("building crate",
		zap.String("workflow", crate.Workflow()),
		zap.Strings("configs", crate.Configs()),
		zap.String("output", out),
	)

	if strings.HasSuffix(out, ".zip") {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create crate zip %q err, %w", out, err)
		}
		defer f.Close()
		return crate.WriteZip(f)
	}
	return crate.Write(fs, out)
}
