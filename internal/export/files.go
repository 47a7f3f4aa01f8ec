package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"voicecohort/internal/config"
	"voicecohort/internal/curation"
	"voicecohort/internal/fileutil"
	"voicecohort/internal/logging"
	"voicecohort/internal/recording"
	"voicecohort/internal/services"
)

// ManifestEntry describes one copied file.
type ManifestEntry struct {
	Path   string `json:"path"`
	Group  string `json:"group"`
	Person string `json:"person_id"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Files copies every file of each selected person into
// <output>/<positive_dir>/<id>/ and <output>/<control_dir>/<id>/. WAV files
// are optionally resampled and silence-trimmed on the way.
type Files struct {
	outputDir string
	export    config.Export
	trim      recording.TrimOptions
	logger    *slog.Logger
}

// NewFiles returns a file-copy exporter configured from cfg.
func NewFiles(cfg *config.Config, logger *slog.Logger) *Files {
	return &Files{
		outputDir: cfg.Paths.OutputDir,
		export:    cfg.Export,
		trim:      recording.OptionsFromConfig(cfg.Validation).TrimOptions(),
		logger:    logging.NewComponentLogger(logger, "export"),
	}
}

func (f *Files) Name() string { return "files" }

func (f *Files) Export(ctx context.Context, report *curation.Report) error {
	if report.Dataset == nil {
		return services.Wrap(services.ErrConfiguration, "export", "files", "dataset is not open", nil)
	}
	groups := []struct {
		dir string
		ids []string
	}{
		{f.export.PositiveDir, report.Cohort.Positives()},
		{f.export.ControlDir, report.Cohort.MatchedControls()},
	}

	// Group folders are rebuilt from scratch so people selected by an earlier
	// run do not linger next to the current cohort.
	for _, group := range groups {
		dir := filepath.Join(f.outputDir, group.dir)
		if err := os.RemoveAll(dir); err != nil {
			return services.Wrap(services.ErrExternal, "export", "files", "clear "+dir, err)
		}
	}

	var manifest []ManifestEntry
	for _, group := range groups {
		for _, id := range group.ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := f.copyPerson(ctx, report.Dataset, group.dir, id)
			if err != nil {
				return err
			}
			manifest = append(manifest, entries...)
		}
	}
	sort.Slice(manifest, func(i, j int) bool { return manifest[i].Path < manifest[j].Path })

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrExternal, "export", "files", "encode manifest", err)
	}
	err = fileutil.WriteFileAtomic(filepath.Join(f.outputDir, ManifestFile), 0o644, func(out *os.File) error {
		_, err := out.Write(append(data, '\n'))
		return err
	})
	if err != nil {
		return services.Wrap(services.ErrExternal, "export", "files", "write manifest", err)
	}
	f.logger.Info("recordings copied", logging.Int("files", len(manifest)), logging.Bool("resampled", f.export.ApplyVADAndResampling))
	return nil
}

func (f *Files) copyPerson(ctx context.Context, ds *recording.Dataset, group, id string) ([]ManifestEntry, error) {
	names, err := ds.PersonFiles(id)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		logging.WarnWithContext(logging.WithContext(services.WithPersonID(ctx, id), f.logger),
			"no files to copy", "export_no_files",
			logging.String("group", group),
			logging.String(logging.FieldImpact, "person exported without recordings"),
			logging.String(logging.FieldErrorHint, "check the dataset folder for this person"),
		)
	}
	entries := make([]ManifestEntry, 0, len(names))
	for _, name := range names {
		rel := path.Join(group, id, name)
		dst := filepath.Join(f.outputDir, filepath.FromSlash(rel))
		written, err := f.copyOne(ds, id, name, dst)
		if err != nil {
			return nil, services.Wrap(services.ErrExternal, "export", "files", "copy "+rel, err)
		}
		entries = append(entries, ManifestEntry{Path: rel, Group: group, Person: id, Size: written.Size, SHA256: written.SHA256})
	}
	return entries, nil
}

func (f *Files) copyOne(ds *recording.Dataset, id, name, dst string) (fileutil.Written, error) {
	transform := f.export.ApplyVADAndResampling && strings.EqualFold(filepath.Ext(name), ".wav")
	if !transform && !ds.IsArchive() {
		return fileutil.CopyFile(filepath.Join(ds.Root(), id, name), dst)
	}

	src, err := ds.Open(id, name)
	if err != nil {
		return fileutil.Written{}, err
	}
	defer src.Close()

	if !transform {
		return fileutil.CopyStream(dst, src)
	}

	rec, err := recording.Decode(src)
	if err != nil {
		// Undecodable files are copied verbatim; validation already rejected
		// people whose recordings fail to decode.
		if _, seekErr := src.Seek(0, io.SeekStart); seekErr != nil {
			return fileutil.Written{}, fmt.Errorf("rewind %s: %w", name, seekErr)
		}
		return fileutil.CopyStream(dst, src)
	}
	prepared, err := recording.PrepareForExport(rec, f.export.TargetSampleRate, f.trim)
	if err != nil {
		return fileutil.Written{}, err
	}
	if err := fileutil.WriteFileAtomic(dst, 0o644, func(out *os.File) error {
		return recording.Encode(out, prepared)
	}); err != nil {
		return fileutil.Written{}, err
	}
	return fileutil.HashFile(dst)
}
