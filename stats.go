// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"fmt"

	"github.com/rudi-q/pdfsqueeze/logger"
)

// Stats summarizes one compression run. Per-image failures never fail
// the run; they are counted here instead.
type Stats struct {
	OriginalSize   int     `json:"original_size"`
	CompressedSize int     `json:"compressed_size"`
	ReductionPct   float64 `json:"reduction_pct"`

	ImagesFound        int `json:"images_found"`
	ImagesEligible     int `json:"images_eligible"`
	ImagesRecompressed int `json:"images_recompressed"`
	ImagesThresholded  int `json:"images_thresholded"`
	ImagesFailed       int `json:"images_failed"`

	// ImagesSkipped counts classifier skips by reason.
	ImagesSkipped map[SkipReason]int `json:"images_skipped,omitempty"`

	// ObjectsPruned counts zero-length streams and unreferenced
	// objects of any kind removed by the cleanup pass.
	ObjectsPruned int `json:"objects_pruned"`
}

func newStats() *Stats {
	return &Stats{ImagesSkipped: make(map[SkipReason]int)}
}

func (s *Stats) recordSkip(reason SkipReason) {
	s.ImagesSkipped[reason]++
}

// finish fills in the derived size fields once output size is known.
func (s *Stats) finish(originalSize, compressedSize int) {
	s.OriginalSize = originalSize
	s.CompressedSize = compressedSize
	if originalSize > 0 {
		s.ReductionPct = (1 - float64(compressedSize)/float64(originalSize)) * 100
	}
}

func (s *Stats) logSummary() {
	logger.Debug(fmt.Sprintf(
		"Compression completed: original=%d compressed=%d reduction=%.1f%% images_found=%d eligible=%d recompressed=%d thresholded=%d failed=%d pruned=%d",
		s.OriginalSize, s.CompressedSize, s.ReductionPct,
		s.ImagesFound, s.ImagesEligible, s.ImagesRecompressed, s.ImagesThresholded, s.ImagesFailed, s.ObjectsPruned), true)
}
