// Package mount verifies the backing share before any folder work starts.
package mount

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kism/backup-ivs/internal/config"
	"github.com/kism/backup-ivs/internal/util"
)

// EnsureMounted checks that the configured share is present, invoking the
// mount command once when it is not. Without a marker file an existing
// directory counts as mounted.
func EnsureMounted(ctx context.Context, cfg config.MountConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if mounted(cfg) {
		return nil
	}
	if len(cfg.Command) > 0 {
		log.Info().Str("path", cfg.Path).Msg("share not mounted, running mount command")
		if out, err := util.Run(ctx, cfg.Command...); err != nil {
			return fmt.Errorf("mount %s: %w: %s", cfg.Path, err, strings.TrimSpace(out))
		}
		if mounted(cfg) {
			return nil
		}
	}
	return fmt.Errorf("share %s is not mounted", cfg.Path)
}

func mounted(cfg config.MountConfig) bool {
	if cfg.Marker != "" {
		_, err := os.Stat(filepath.Join(cfg.Path, cfg.Marker))
		return err == nil
	}
	fi, err := os.Stat(cfg.Path)
	return err == nil && fi.IsDir()
}
