package grouping_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/grouping"
)

func stubExtract(keys map[string]entity.LegacyMetadata, broken ...string) grouping.LegacyFunc {
	return func(_ context.Context, path string) (entity.LegacyMetadata, error) {
		for _, b := range broken {
			if filepath.Base(path) == b {
				return entity.LegacyMetadata{}, errors.New("unreadable")
			}
		}
		return keys[filepath.Base(path)], nil
	}
}

func TestBuild_PartitionAndOrder(t *testing.T) {
	x1 := entity.LegacyMetadata{TaxID: "X", PartnerName: "Y"}
	x2 := entity.LegacyMetadata{TaxID: "X", PartnerName: "Z"}
	a := entity.LegacyMetadata{TaxID: "A", PartnerName: "Y"}
	keys := map[string]entity.LegacyMetadata{
		"c.pdf": x1, "a.pdf": x1, "b.pdf": x2, "d.pdf": a,
	}
	docs := []string{"/in/c.pdf", "/in/b.pdf", "/in/d.pdf", "/in/a.pdf"}

	groups, err := grouping.Build(context.Background(), docs, stubExtract(keys), nil)
	require.NoError(t, err)

	require.Len(t, groups, 3)
	assert.Equal(t, grouping.Group{TaxID: "A", PartnerName: "Y", Documents: []string{"/in/d.pdf"}}, groups[0])
	assert.Equal(t, grouping.Group{TaxID: "X", PartnerName: "Y", Documents: []string{"/in/a.pdf", "/in/c.pdf"}}, groups[1])
	assert.Equal(t, grouping.Group{TaxID: "X", PartnerName: "Z", Documents: []string{"/in/b.pdf"}}, groups[2])

	total := 0
	for _, g := range groups {
		total += len(g.Documents)
	}
	assert.Equal(t, len(docs), total)
}

func TestBuild_FailuresAreDropped(t *testing.T) {
	keys := map[string]entity.LegacyMetadata{
		"ok.pdf": {TaxID: "1", PartnerName: "P"},
	}
	var failed []string
	groups, err := grouping.Build(context.Background(),
		[]string{"/in/ok.pdf", "/in/bad.pdf"},
		stubExtract(keys, "bad.pdf"),
		func(path string, _ error) { failed = append(failed, path) })
	require.NoError(t, err)

	assert.Equal(t, []string{"/in/bad.pdf"}, failed)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"/in/ok.pdf"}, groups[0].Documents)
}

func TestBuild_SentinelKeysStillGroup(t *testing.T) {
	unknown := entity.LegacyMetadata{TaxID: entity.TaxIDNotFound, PartnerName: entity.PartnerNotFound}
	keys := map[string]entity.LegacyMetadata{"1.pdf": unknown, "2.pdf": unknown}

	groups, err := grouping.Build(context.Background(), []string{"/2.pdf", "/1.pdf"}, stubExtract(keys), nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"/1.pdf", "/2.pdf"}, groups[0].Documents)
}

func TestBuild_Empty(t *testing.T) {
	groups, err := grouping.Build(context.Background(), nil, stubExtract(nil), nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := grouping.Build(ctx, []string{"/a.pdf"}, stubExtract(nil), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestByTaxID(t *testing.T) {
	nested := grouping.ByTaxID([]grouping.Group{
		{TaxID: "X", PartnerName: "Y", Documents: []string{"a"}},
		{TaxID: "X", PartnerName: "Z", Documents: []string{"b"}},
	})
	assert.Equal(t, map[string]map[string][]string{"X": {"Y": {"a"}, "Z": {"b"}}}, nested)
}
