package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/grouping"
	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
)

// mergeStage groups documents by (tax id, partner) and writes one file per
// group. Each group is one unit of progress.
func (p *Pipeline) mergeStage(ctx context.Context, job *entity.Job, docs []string, tr *progress.Tracker, logger *slog.Logger) ([]entity.DocumentRecord, error) {
	tr.Log("Starting merge processing...")

	var records []entity.DocumentRecord
	onFailure := func(path string, err error) {
		name := filepath.Base(path)
		logger.Warn("document skipped", "path", path, "error", err)
		tr.Log(fmt.Sprintf("Error processing %s: %v", name, err))
		records = append(records, entity.DocumentRecord{Source: name, Error: err.Error()})
	}

	groups, err := grouping.Build(ctx, docs, p.reader.Legacy, onFailure)
	if err != nil {
		return records, err
	}

	currentTaxID := ""
	for i, g := range groups {
		if g.TaxID != currentTaxID {
			currentTaxID = g.TaxID
			tr.Log("Processing tax ID: " + g.TaxID)
		}
		tr.Log("Processing: " + g.PartnerName)

		meta := entity.DocumentMetadata{TaxID: g.TaxID, PartnerName: g.PartnerName}
		out, err := p.merger.Process(ctx, g, job.OutputDir)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			logger.Error("group merge failed", "tax_id", g.TaxID, "partner", g.PartnerName, "error", err)
			tr.Log(fmt.Sprintf("Error merging %s: %v", g.PartnerName, err))
			for _, d := range g.Documents {
				records = append(records, entity.DocumentRecord{Source: filepath.Base(d), Metadata: meta, Error: err.Error()})
			}
		} else {
			name := filepath.Base(out.Path)
			if out.Merged {
				tr.Log(fmt.Sprintf("Merged %d files into %s", len(g.Documents), name))
			} else {
				tr.Log("Renamed file to " + name)
			}
			rel := relOutput(job.OutputDir, out.Path)
			for _, d := range g.Documents {
				records = append(records, entity.DocumentRecord{Source: filepath.Base(d), Metadata: meta, Output: rel, Merged: out.Merged})
			}
		}

		if err := p.unitDone(ctx, tr, i+1, len(groups)); err != nil {
			return records, err
		}
	}

	tr.Log("Merge processing completed!")
	return records, nil
}
