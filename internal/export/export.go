package export

import (
	"context"
	"log/slog"

	"voicecohort/internal/config"
	"voicecohort/internal/curation"
)

// File names inside the output folder.
const (
	SpreadsheetFile   = "submissions_output.xlsx"
	PositivesJSONFile = "positives.json"
	ControlsJSONFile  = "controlgroup.json"
	ManifestFile      = "manifest.json"
	PositiveSheet     = "Positive"
	ControlSheet      = "Control group"
)

// FromConfig builds the exporters enabled in cfg, in the order they should run.
// The object-storage publisher always runs last so it uploads every other artifact.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]curation.Exporter, error) {
	var exporters []curation.Exporter
	if cfg.Export.CreateXLSX {
		exporters = append(exporters, NewSpreadsheet(cfg.Paths.OutputDir))
	}
	if cfg.Export.CreateGroupJSONs {
		exporters = append(exporters, NewGroupJSON(cfg.Paths.OutputDir))
	}
	if cfg.Export.CopyFiles {
		exporters = append(exporters, NewFiles(cfg, logger))
	}
	if cfg.S3.Enabled {
		publisher, err := NewS3Publisher(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, publisher)
	}
	return exporters, nil
}
