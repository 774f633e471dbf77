// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"io"

	"github.com/relabs-tech/thruster_manager/internal/config"
	"github.com/relabs-tech/thruster_manager/internal/logging"
)

func setupLogging(component string, cfg *config.Config) io.Closer {
	return logging.Setup(component, logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxFiles,
	})
}
