package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fairyhunter13/pgdeveloper/internal/app"
	"github.com/fairyhunter13/pgdeveloper/internal/config"
)

// activeFile remembers the profile chosen with "pgdev profiles use".
const activeFile = "active_profile"

func saveActive(cfg config.Config, name string) error {
	if err := os.WriteFile(filepath.Join(cfg.ConfigDir, activeFile), []byte(name+"\n"), 0o600); err != nil {
		return fmt.Errorf("op=cli.save_active: %w", err)
	}
	return nil
}

// restoreActive re-activates the remembered profile. A profile removed since
// is reported and ignored.
func restoreActive(core *app.Core) {
	b, err := os.ReadFile(filepath.Join(core.Cfg.ConfigDir, activeFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("active profile not restored", slog.Any("error", err))
		}
		return
	}
	name := strings.TrimSpace(string(b))
	if name == "" {
		return
	}
	if err := core.Services.Profiles.Activate(name); err != nil {
		slog.Warn("remembered profile is gone", slog.String("profile", name))
	}
}
