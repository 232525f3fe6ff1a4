package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"cmkagent/internal/logger"
)

// DefaultArtifacts are the files staged by the "cap" command, relative to
// the source and target directories.
var DefaultArtifacts = []string{
	filepath.Join("bakery", "check_mk.bakery.yml"),
	"plugins.cap",
	"check_mk.ini",
}

// StageReport lists what StageInstallArtifacts did per file.
type StageReport struct {
	Copied  []string
	Skipped []string
}

// StageInstallArtifacts copies files from src to dst. Files missing in src
// are skipped. Copying continues past failures; files already copied stay
// in place and the failures are returned joined.
func StageInstallArtifacts(ctx context.Context, src, dst string, files []string) (StageReport, error) {
	log := logger.WithComponent("install")
	var report StageReport
	var errs []error

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		from := filepath.Join(src, rel)
		to := filepath.Join(dst, rel)

		if _, err := os.Stat(from); errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("file", rel).Msg("Artifact not present, skipping")
			report.Skipped = append(report.Skipped, rel)
			continue
		}

		if err := copyFile(from, to); err != nil {
			log.Warn().Err(err).Str("file", rel).Msg("Failed to stage artifact")
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		log.Info().Str("file", rel).Str("target", to).Msg("Artifact staged")
		report.Copied = append(report.Copied, rel)
	}
	return report, errors.Join(errs...)
}

// copyFile replaces to with the contents of from via a temp file in the
// target directory.
func copyFile(from, to string) error {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(to), "."+filepath.Base(to)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod: %w", err)
	}
	return os.Rename(tmp.Name(), to)
}
