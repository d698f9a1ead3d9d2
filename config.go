// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"github.com/go-playground/validator/v10"
	"github.com/rudi-q/pdfsqueeze/logger"
)

type Config struct {
	// Quality is the JPEG quality used for re-encoding. Values outside
	// [10,100] are clamped rather than rejected, so callers can pass
	// user input straight through.
	Quality int `validate:"min=10,max=100"`

	// MinImageBytes is the raw payload size below which an image is
	// not worth touching.
	MinImageBytes int `validate:"min=0"`

	// Replacement thresholds for images that are already JPEG, keyed
	// off Quality bands (low <50, mid <70, high otherwise). A
	// re-encoded JPEG replaces the original only when newSize/oldSize
	// stays at or under the band's ratio.
	JPEGThresholdLow  float64 `validate:"gt=0,lte=1"`
	JPEGThresholdMid  float64 `validate:"gt=0,lte=1"`
	JPEGThresholdHigh float64 `validate:"gt=0,lte=1"`

	// MaxConcurrentDocs caps the number of documents a Processor will
	// compress at the same time.
	MaxConcurrentDocs int `validate:"min=1,max=10"`

	// MaxDecompressedBytes bounds how far a single FlateDecode stream
	// may inflate, as a decompression-bomb guard.
	MaxDecompressedBytes int64 `validate:"min=1"`

	DebugOn bool
	Logger  logger.LogFunc
}

func NewDefaultConfig() *Config {
	return &Config{
		Quality:              75,
		MinImageBytes:        2000,
		JPEGThresholdLow:     0.85,
		JPEGThresholdMid:     0.88,
		JPEGThresholdHigh:    0.92,
		MaxConcurrentDocs:    5,
		MaxDecompressedBytes: 256 << 20,
		DebugOn:              false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	cfg.Quality = clampQuality(cfg.Quality)
	validate := validator.New()
	return validate.Struct(cfg)
}

func clampQuality(q int) int {
	if q < 10 {
		return 10
	}
	if q > 100 {
		return 100
	}
	return q
}
