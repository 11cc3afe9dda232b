package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tablewise/pdf-tables/internal/domain"
)

// WriteArchive bundles every page's raster and token sidecar together
// with the merged tables into one zip at path. Degraded pages that
// produced no artifacts are skipped.
func (e *Exporter) WriteArchive(path string, pages []domain.PageResult, merged []domain.MergedTable) error {
	f, err := os.Create(path)
	if err != nil {
		return domain.IOError(fmt.Sprintf("failed to create archive %s", path), err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	for _, p := range pages {
		for _, src := range []string{p.Artifact.ImagePath, p.Artifact.TokenPath} {
			if src == "" {
				continue
			}
			if err := addFile(zw, "pages/"+filepath.Base(src), src); err != nil {
				zw.Close()
				return err
			}
		}
	}

	for _, table := range merged {
		w, err := zw.Create("tables/" + table.Filename)
		if err != nil {
			zw.Close()
			return domain.IOError(fmt.Sprintf("failed to add %s to archive", table.Filename), err)
		}
		if _, err := io.WriteString(w, table.CSV); err != nil {
			zw.Close()
			return domain.IOError(fmt.Sprintf("failed to write %s to archive", table.Filename), err)
		}
	}

	if err := zw.Close(); err != nil {
		return domain.IOError(fmt.Sprintf("failed to finalize archive %s", path), err)
	}

	e.log.Info().Str("path", path).Int("pages", len(pages)).Int("tables", len(merged)).Msg("archive written")
	return nil
}

func addFile(zw *zip.Writer, name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return domain.IOError(fmt.Sprintf("failed to open %s for archiving", src), err)
	}
	defer in.Close()

	w, err := zw.Create(name)
	if err != nil {
		return domain.IOError(fmt.Sprintf("failed to add %s to archive", name), err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return domain.IOError(fmt.Sprintf("failed to copy %s into archive", src), err)
	}
	return nil
}
