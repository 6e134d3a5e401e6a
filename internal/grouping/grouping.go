// Package grouping partitions a job's documents by (tax id, partner).
package grouping

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

// Group is the set of documents sharing one (TaxID, PartnerName) key,
// in merge order.
type Group struct {
	TaxID       string
	PartnerName string
	Documents   []string
}

// LegacyFunc reads the grouping key of one document.
type LegacyFunc func(ctx context.Context, path string) (entity.LegacyMetadata, error)

// Build sorts docs by base file name, reads each key and partitions them.
// A document whose key cannot be read is passed to onFailure and left out of
// every group. Groups come back ordered by (TaxID, PartnerName).
func Build(ctx context.Context, docs []string, extract LegacyFunc, onFailure func(path string, err error)) ([]Group, error) {
	ordered := make([]string, len(docs))
	copy(ordered, docs)
	sort.SliceStable(ordered, func(i, j int) bool {
		bi, bj := filepath.Base(ordered[i]), filepath.Base(ordered[j])
		if bi != bj {
			return bi < bj
		}
		return ordered[i] < ordered[j]
	})

	type key struct{ taxID, partner string }
	index := map[key]int{}
	var groups []Group

	for _, doc := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, err := extract(ctx, doc)
		if err != nil {
			if onFailure != nil {
				onFailure(doc, err)
			}
			continue
		}
		k := key{meta.TaxID, meta.PartnerName}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{TaxID: meta.TaxID, PartnerName: meta.PartnerName})
		}
		groups[i].Documents = append(groups[i].Documents, doc)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].TaxID != groups[j].TaxID {
			return groups[i].TaxID < groups[j].TaxID
		}
		return groups[i].PartnerName < groups[j].PartnerName
	})
	return groups, nil
}

// ByTaxID nests groups as taxId -> partnerName -> documents.
func ByTaxID(groups []Group) map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	for _, g := range groups {
		if out[g.TaxID] == nil {
			out[g.TaxID] = make(map[string][]string)
		}
		out[g.TaxID][g.PartnerName] = g.Documents
	}
	return out
}
