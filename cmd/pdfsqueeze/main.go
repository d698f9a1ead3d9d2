// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Command pdfsqueeze recompresses the images inside a PDF to shrink
// the file without touching text or vector content.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	squeeze "github.com/rudi-q/pdfsqueeze"
	"github.com/rudi-q/pdfsqueeze/history"
	"github.com/rudi-q/pdfsqueeze/logger"
)

// maxInputBytes rejects absurd inputs before they are read into memory.
const maxInputBytes = 500 << 20

var (
	flagQuality     int
	flagOutput      string
	flagMinBytes    int
	flagHistoryPath string
	flagDebug       bool
	flagMeta        bool
)

func main() {
	root := &cobra.Command{
		Use:   "pdfsqueeze <input.pdf>",
		Short: "Recompress PDF images in place",
		Long: `pdfsqueeze parses a PDF, re-encodes its large raster images as JPEG
at the requested quality, drops unreachable objects, and writes the
result back out. Text, fonts, and vector graphics are untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: runCompress,
	}
	root.Flags().IntVarP(&flagQuality, "quality", "q", 75, "JPEG quality (10-100)")
	root.Flags().StringVarP(&flagOutput, "output", "o", "", "output path (default <input>.squeezed.pdf)")
	root.Flags().IntVar(&flagMinBytes, "min-image-bytes", 2000, "skip images smaller than this")
	root.Flags().StringVar(&flagHistoryPath, "history", "", "record the run in this SQLite history file")
	root.Flags().BoolVar(&flagDebug, "debug", false, "log debug output to stderr")
	root.Flags().BoolVar(&flagMeta, "meta", false, "print document metadata before compressing")

	historyCmd := &cobra.Command{
		Use:   "history <db>",
		Short: "Show recorded compression runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	root.AddCommand(historyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCompress(cmd *cobra.Command, args []string) error {
	input := args[0]
	fi, err := os.Stat(input)
	if err != nil {
		return err
	}
	if fi.Size() > maxInputBytes {
		return fmt.Errorf("%s: input is %d bytes, limit is %d", input, fi.Size(), maxInputBytes)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	cfg := squeeze.NewDefaultConfig()
	cfg.Quality = flagQuality
	cfg.MinImageBytes = flagMinBytes
	cfg.DebugOn = flagDebug
	if flagDebug {
		cfg.Logger = stderrLogger
	}
	p := squeeze.NewProcessor(cfg)

	if flagMeta {
		doc, err := squeeze.Parse(data)
		if err != nil {
			return err
		}
		if err := doc.MetadataJSON(cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	out, stats, err := p.Compress(cmd.Context(), data)
	if err != nil {
		return err
	}

	outPath := flagOutput
	if outPath == "" {
		outPath = defaultOutputPath(input)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d bytes (%.1f%% smaller), %d/%d images recompressed\n",
		outPath, stats.OriginalSize, stats.CompressedSize, stats.ReductionPct,
		stats.ImagesRecompressed, stats.ImagesFound)

	if flagHistoryPath != "" {
		if err := recordRun(input, flagQuality, stats); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: history not recorded: %v\n", err)
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.Recent(20)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-30s  %d -> %d bytes (%.1f%%) q=%d\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.InputName,
			r.OriginalSize, r.CompressedSize, r.ReductionPct, r.Quality)
	}

	totals, err := store.TotalSavings()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "total: %d runs, %d bytes saved\n", totals.Runs, totals.BytesSaved)
	return nil
}

func recordRun(input string, quality int, stats *squeeze.Stats) error {
	store, err := history.Open(flagHistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Add(&history.Record{
		InputName:          filepath.Base(input),
		OriginalSize:       stats.OriginalSize,
		CompressedSize:     stats.CompressedSize,
		ReductionPct:       stats.ReductionPct,
		Quality:            quality,
		ImagesRecompressed: stats.ImagesRecompressed,
	})
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	return base + ".squeezed" + ext
}

func stderrLogger(level logger.LogLevel, msg string, keyvals ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] %s", level, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(os.Stderr, " %v=%v", keyvals[i], keyvals[i+1])
	}
	fmt.Fprintln(os.Stderr)
}
