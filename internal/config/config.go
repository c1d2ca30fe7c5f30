/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package config validates the options spec §6 documents:
// segment_sz, output_path, and shows_progress.
package config

import (
	"errors"

	"github.com/pg2arrow/pg2arrow/internal/werror"
)

// DefaultSegmentSize is segment_sz's default (spec §6: "Default and lower
// bound MUST be documented by the implementation").
const DefaultSegmentSize = 16 << 20 // 16 MiB

// MinSegmentSize is segment_sz's documented lower bound. Below this, a
// single wide row is likely to exceed the segment on its own (a fatal
// condition per spec §4.3/§7), so configuring anything smaller is
// rejected up front instead of surfacing as a confusing mid-run error.
const MinSegmentSize = 64 << 10 // 64 KiB

// ErrSegmentTooSmall fires when segment_sz is below MinSegmentSize.
var ErrSegmentTooSmall = errors.New("config: segment_sz is below the documented lower bound")

// ErrNoOutputPath fires when output_path is empty.
var ErrNoOutputPath = errors.New("config: output_path is required")

// Config holds the validated run options.
type Config struct {
	OutputPath    string
	SegmentSize   int
	ShowsProgress bool
}

// New validates and returns a Config, or a werror-wrapped error
// describing the first invalid option.
func New(outputPath string, segmentSize int, showsProgress bool) (*Config, error) {
	if outputPath == "" {
		return nil, werror.Wrap(ErrNoOutputPath)
	}
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	if segmentSize < MinSegmentSize {
		return nil, werror.WrapWithContext(ErrSegmentTooSmall, map[string]interface{}{
			"segment_sz": segmentSize, "minimum": MinSegmentSize,
		})
	}
	return &Config{OutputPath: outputPath, SegmentSize: segmentSize, ShowsProgress: showsProgress}, nil
}
