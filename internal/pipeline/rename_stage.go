package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
)

// renameStage copies every document under its rendered name. Each document
// is one unit of progress.
func (p *Pipeline) renameStage(ctx context.Context, job *entity.Job, docs []string, tr *progress.Tracker, logger *slog.Logger) ([]entity.DocumentRecord, error) {
	tr.Log("Processing in rename-only mode...")

	records := make([]entity.DocumentRecord, 0, len(docs))
	for i, doc := range docs {
		name := filepath.Base(doc)
		tr.Log("Processing: " + name)

		rec := entity.DocumentRecord{Source: name}
		meta, err := p.reader.Metadata(ctx, doc)
		rec.Metadata = meta
		var target string
		if err == nil {
			target, err = p.renamer.Place(ctx, doc, meta, job.Settings, job.OutputDir)
		}
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			logger.Warn("document skipped", "path", doc, "error", err)
			tr.Log(fmt.Sprintf("Error processing %s: %v", name, err))
			rec.Error = err.Error()
		} else {
			rec.Output = relOutput(job.OutputDir, target)
			tr.Log(fmt.Sprintf("Renamed: %s -> %s", name, filepath.Base(target)))
		}
		records = append(records, rec)

		if err := p.unitDone(ctx, tr, i+1, len(docs)); err != nil {
			return records, err
		}
	}

	tr.Log("Rename processing completed!")
	return records, nil
}
