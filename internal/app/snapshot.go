package app

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vk/benchgrid/internal/archive"
	"github.com/vk/benchgrid/internal/config"
	"github.com/vk/benchgrid/internal/project"
)

// Zip writes the campaign snapshot: configuration, logs, summary, the
// last-running-configuration dump and any zip_with extras.
func (a *App) Zip(ctx context.Context, zipWith []string) error {
	ctx = a.context(ctx)
	path := a.SnapshotPath()
	if err := a.zipTo(ctx, path, zipWith); err != nil {
		return err
	}
	a.logger.Info("Snapshot written.", "path", path)
	return nil
}

// SnapshotPath is where `zip` writes the snapshot.
func (a *App) SnapshotPath() string {
	return a.project.Paths().Working + ".zip"
}

// BackupPath is where `clean` stashes results before discarding them.
func (a *App) BackupPath() string {
	return a.project.Paths().Working + ".backup.zip"
}

// zipTo assembles one snapshot archive. Fixed members that do not exist yet
// (a campaign that never ran has no summary) are skipped; explicitly listed
// extras must exist.
func (a *App) zipTo(ctx context.Context, path string, zipWith []string) error {
	src, err := a.configSource()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create snapshot %q: %w", path, err)
	}
	defer f.Close()

	w := archive.NewWriter(f)
	if err := w.AddBytes(config.ArchiveMemberName, src); err != nil {
		return err
	}

	paths := a.project.Paths()
	fixed := []string{
		paths.Logs,
		paths.SummaryFile,
		filepath.Join(paths.Working, project.LastRunningConfigName),
	}
	for _, member := range fixed {
		if !exists(member) {
			a.logger.Debug("Skipping absent snapshot member.", "path", member)
			continue
		}
		if err := w.AddPath(member); err != nil {
			return err
		}
	}

	extras := append(append([]string{}, a.project.Config().ZipWith...), zipWith...)
	for _, raw := range extras {
		resolved, err := a.project.Aliases().Resolve(raw)
		if err != nil {
			return err
		}
		if err := w.AddPath(resolved); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("cannot finalize snapshot %q: %w", path, err)
	}
	return f.Sync()
}

// configSource returns the raw configuration bytes, extracting them back out
// of the archive when the project itself was loaded from one.
func (a *App) configSource() ([]byte, error) {
	if !a.fromArchive {
		return os.ReadFile(a.cfg.ConfigPath)
	}
	r, err := zip.OpenReader(a.cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("cannot reopen archive %q: %w", a.cfg.ConfigPath, err)
	}
	defer r.Close()
	member, err := r.Open(config.ArchiveMemberName)
	if err != nil {
		return nil, err
	}
	defer member.Close()
	return io.ReadAll(member)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
