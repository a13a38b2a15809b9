// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

var (
	ErrParametersInvalid   = errors.New("invalid protocol parameters")
	ErrRoundTimeoutTooLow  = errors.New("round timeout must be > 0")
	ErrInvalidBlocksPerDay = errors.New("blocks per day must be > 0")
	ErrInvalidPercent      = errors.New("percentage threshold must be in (0, 100]")
)
