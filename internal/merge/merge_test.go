package merge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/faktur-sorter/internal/grouping"
	"github.com/joseph-ayodele/faktur-sorter/internal/merge"
	"github.com/joseph-ayodele/faktur-sorter/internal/pdftest"
)

func TestProcess_MergesInGroupOrder(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	a := filepath.Join(in, "a.pdf")
	b := filepath.Join(in, "b.pdf")
	require.NoError(t, pdftest.Write(a, "first page one", "first page two"))
	require.NoError(t, pdftest.Write(b, "second page one"))

	g := grouping.Group{TaxID: "0123456789012345678901", PartnerName: "PT SINAR JAYA", Documents: []string{a, b}}
	res, err := merge.NewEngine(nil).Process(context.Background(), g, out)
	require.NoError(t, err)

	assert.True(t, res.Merged)
	assert.Equal(t, filepath.Join(out, "0123456789012345678901", "PT SINAR JAYA.pdf"), res.Path)

	pages, err := merge.PageCount(res.Path)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
}

func TestProcess_SingleDocumentIsRelocatedUnchanged(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	src := filepath.Join(in, "only.pdf")
	require.NoError(t, pdftest.Write(src, "solo"))
	original, err := os.ReadFile(src)
	require.NoError(t, err)

	g := grouping.Group{TaxID: "X", PartnerName: "Z", Documents: []string{src}}
	res, err := merge.NewEngine(nil).Process(context.Background(), g, out)
	require.NoError(t, err)

	assert.False(t, res.Merged)
	assert.NoFileExists(t, src)
	moved, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, original, moved)
}

func TestProcess_CorruptInputLeavesNoOutput(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	good := filepath.Join(in, "good.pdf")
	bad := filepath.Join(in, "bad.pdf")
	require.NoError(t, pdftest.Write(good, "fine"))
	require.NoError(t, os.WriteFile(bad, []byte("not a pdf"), 0o644))

	g := grouping.Group{TaxID: "X", PartnerName: "Y", Documents: []string{good, bad}}
	_, err := merge.NewEngine(nil).Process(context.Background(), g, out)
	require.Error(t, err)
	assert.NoFileExists(t, merge.OutputPath(g, out))
}

func TestProcess_EmptyGroup(t *testing.T) {
	_, err := merge.NewEngine(nil).Process(context.Background(), grouping.Group{TaxID: "X"}, t.TempDir())
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	g := grouping.Group{TaxID: "Unknown_TaxID", PartnerName: "Unknown_Partner"}
	assert.Equal(t, filepath.Join("/out", "Unknown_TaxID", "Unknown_Partner.pdf"), merge.OutputPath(g, "/out"))
}
