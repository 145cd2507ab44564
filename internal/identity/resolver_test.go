package identity_test

import (
	"context"
	"fmt"
	"testing"

	"airchart/internal/catalog"
	"airchart/internal/identity"
	"airchart/internal/logging"
	"airchart/internal/testsupport"
)

func seedWeek(t *testing.T, store *catalog.Store, week, year int, rows []*catalog.RawRow) {
	t.Helper()
	ing := &catalog.Ingestion{
		SourceFile: fmt.Sprintf("SMR - %d-%d Top 200.csv", week, year),
		ReportWeek: week,
		ReportYear: year,
		RowCount:   len(rows),
	}
	if err := store.SaveIngestion(context.Background(), ing, rows); err != nil {
		t.Fatalf("SaveIngestion failed: %v", err)
	}
}

func TestResolvePendingCreatesGhostsAndMatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := identity.NewResolver(store, nil, logging.NewNop())

	ctx := context.Background()
	seedWeek(t, store, 14, 2024, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", LabelRaw: "Big Indie", Spins: 50, Reach: 4},
		{ArtistRaw: "TEST BAND!", TitleRaw: "Other Song", Spins: 10},
	})

	summary, err := resolver.ResolvePending(ctx)
	if err != nil {
		t.Fatalf("ResolvePending failed: %v", err)
	}
	if summary["ghosted"] != 1 || summary["matched"] != 1 {
		t.Fatalf("unexpected summary: %s", summary)
	}
	if summary["resolved_rows"] != 2 {
		t.Fatalf("expected 2 resolved rows, got %d", summary["resolved_rows"])
	}

	pending, err := store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}

	// Both spellings land on one ghost entity.
	artist, err := store.ArtistByNormalized(ctx, identity.Normalize("Test Band"))
	if err != nil {
		t.Fatalf("ArtistByNormalized failed: %v", err)
	}
	if artist == nil {
		t.Fatal("expected resolved artist")
	}
	if artist.Status != catalog.StatusGhost {
		t.Fatalf("expected ghost status, got %s", artist.Status)
	}
	if artist.LabelID == nil {
		t.Fatal("expected label assigned from row")
	}

	label, err := store.LabelByID(ctx, *artist.LabelID)
	if err != nil {
		t.Fatalf("LabelByID failed: %v", err)
	}
	if label == nil || label.Name != "Big Indie" || label.Status != catalog.StatusGhost {
		t.Fatalf("unexpected label: %#v", label)
	}
}

func TestResolvePendingSkipsUnresolvableRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := identity.NewResolver(store, nil, logging.NewNop())

	ctx := context.Background()
	seedWeek(t, store, 14, 2024, []*catalog.RawRow{
		{ArtistRaw: "...", TitleRaw: "Noise", Spins: 5},
		{ArtistRaw: "Real Band", TitleRaw: "Song", Spins: 20},
	})

	summary, err := resolver.ResolvePending(ctx)
	if err != nil {
		t.Fatalf("ResolvePending failed: %v", err)
	}
	if summary["unresolvable"] != 1 || summary["resolved_rows"] != 1 {
		t.Fatalf("unexpected summary: %s", summary)
	}

	pending, err := store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ArtistRaw != "..." {
		t.Fatalf("expected the unresolvable row to stay pending, got %#v", pending)
	}
}

func TestResolvePendingIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := identity.NewResolver(store, nil, logging.NewNop())

	ctx := context.Background()
	seedWeek(t, store, 14, 2024, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", Spins: 50},
	})

	if _, err := resolver.ResolvePending(ctx); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	summary, err := resolver.ResolvePending(ctx)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if summary["resolved_rows"] != 0 || summary["ghosted"] != 0 {
		t.Fatalf("second resolve should be a no-op, got %s", summary)
	}

	artists, err := store.ListArtists(ctx)
	if err != nil {
		t.Fatalf("ListArtists failed: %v", err)
	}
	if len(artists) != 1 {
		t.Fatalf("expected a single artist, got %d", len(artists))
	}
}

func TestDedupMergesIntoEarliestAndPromotes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := identity.NewResolver(store, nil, logging.NewNop())

	ctx := context.Background()
	ghost := &catalog.Artist{
		Name:           "test band",
		NormalizedName: "testband",
		Slug:           "test-band",
		Status:         catalog.StatusGhost,
	}
	if err := store.InsertArtist(ctx, ghost); err != nil {
		t.Fatalf("insert ghost: %v", err)
	}
	active := &catalog.Artist{
		Name:           "Test Band",
		NormalizedName: "testband",
		Slug:           "test-band-curated",
		Status:         catalog.StatusActive,
	}
	if err := store.InsertArtist(ctx, active); err != nil {
		t.Fatalf("insert active: %v", err)
	}

	seedWeek(t, store, 14, 2024, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", Spins: 50},
	})
	rows, err := store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	if err := store.LinkRow(ctx, rows[0].ID, active.ID, nil); err != nil {
		t.Fatalf("LinkRow failed: %v", err)
	}

	summary, err := resolver.Dedup(ctx)
	if err != nil {
		t.Fatalf("Dedup failed: %v", err)
	}
	if summary["merged_artists"] != 1 {
		t.Fatalf("expected one merged artist, got %s", summary)
	}

	// The earliest record survives and absorbs the curated identity.
	survivor, err := store.ArtistByID(ctx, ghost.ID)
	if err != nil {
		t.Fatalf("ArtistByID failed: %v", err)
	}
	if survivor == nil {
		t.Fatal("expected surviving artist")
	}
	if survivor.Status != catalog.StatusActive || survivor.Name != "Test Band" {
		t.Fatalf("survivor not promoted: %#v", survivor)
	}
	if gone, err := store.ArtistByID(ctx, active.ID); err != nil {
		t.Fatalf("ArtistByID failed: %v", err)
	} else if gone != nil {
		t.Fatalf("duplicate should be deleted, got %#v", gone)
	}

	// The linked row follows the survivor.
	names, err := store.RawArtistNames(ctx, ghost.ID)
	if err != nil {
		t.Fatalf("RawArtistNames failed: %v", err)
	}
	if len(names) != 1 || names[0] != "Test Band" {
		t.Fatalf("row not repointed: %#v", names)
	}
}

func TestBackfillLabelsUsesLatestRawLabel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := identity.NewResolver(store, nil, logging.NewNop())

	ctx := context.Background()
	artist := &catalog.Artist{
		Name:           "Test Band",
		NormalizedName: "testband",
		Slug:           "test-band",
		Status:         catalog.StatusActive,
	}
	if err := store.InsertArtist(ctx, artist); err != nil {
		t.Fatalf("insert artist: %v", err)
	}

	seedWeek(t, store, 13, 2024, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", LabelRaw: "Old Label", Spins: 40},
	})
	seedWeek(t, store, 14, 2024, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", LabelRaw: "Big Indie", Spins: 50},
	})
	rows, err := store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	for _, row := range rows {
		if err := store.LinkRow(ctx, row.ID, artist.ID, nil); err != nil {
			t.Fatalf("LinkRow failed: %v", err)
		}
	}

	summary, err := resolver.BackfillLabels(ctx)
	if err != nil {
		t.Fatalf("BackfillLabels failed: %v", err)
	}
	if summary["backfilled"] != 1 {
		t.Fatalf("expected one backfill, got %s", summary)
	}

	updated, err := store.ArtistByID(ctx, artist.ID)
	if err != nil {
		t.Fatalf("ArtistByID failed: %v", err)
	}
	if updated.LabelID == nil {
		t.Fatal("expected backfilled label")
	}
	label, err := store.LabelByID(ctx, *updated.LabelID)
	if err != nil {
		t.Fatalf("LabelByID failed: %v", err)
	}
	if label.Name != "Big Indie" {
		t.Fatalf("expected most recent label, got %q", label.Name)
	}
}

func TestReconcileGhostsPromotesAndKeeps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := identity.NewResolver(store, nil, logging.NewNop())

	ctx := context.Background()
	linked := &catalog.Artist{
		Name:           "test band",
		NormalizedName: "testband",
		Slug:           "test-band",
		Status:         catalog.StatusGhost,
	}
	if err := store.InsertArtist(ctx, linked); err != nil {
		t.Fatalf("insert ghost: %v", err)
	}
	orphan := &catalog.Artist{
		Name:           "mystery",
		NormalizedName: "mystery",
		Slug:           "mystery",
		Status:         catalog.StatusGhost,
	}
	if err := store.InsertArtist(ctx, orphan); err != nil {
		t.Fatalf("insert orphan ghost: %v", err)
	}

	seedWeek(t, store, 14, 2024, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", Spins: 50},
	})
	rows, err := store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	if err := store.LinkRow(ctx, rows[0].ID, linked.ID, nil); err != nil {
		t.Fatalf("LinkRow failed: %v", err)
	}

	summary, err := resolver.ReconcileGhosts(ctx)
	if err != nil {
		t.Fatalf("ReconcileGhosts failed: %v", err)
	}
	if summary["ghosts_promoted"] != 1 || summary["ghosts_kept"] != 1 {
		t.Fatalf("unexpected summary: %s", summary)
	}

	promoted, err := store.ArtistByID(ctx, linked.ID)
	if err != nil {
		t.Fatalf("ArtistByID failed: %v", err)
	}
	if promoted.Status != catalog.StatusActive || promoted.Name != "Test Band" {
		t.Fatalf("ghost not promoted: %#v", promoted)
	}

	kept, err := store.ArtistByID(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("ArtistByID failed: %v", err)
	}
	if kept == nil || kept.Status != catalog.StatusGhost {
		t.Fatalf("unlinked ghost must persist: %#v", kept)
	}
}

func TestReconcileGhostsKeepsFreshlyCreatedGhosts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := identity.NewResolver(store, nil, logging.NewNop())

	ctx := context.Background()
	seedWeek(t, store, 14, 2024, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", LabelRaw: "Big Indie", Spins: 50, Reach: 4},
	})
	if _, err := resolver.ResolvePending(ctx); err != nil {
		t.Fatalf("ResolvePending failed: %v", err)
	}

	// The only linked row repeats the string the ghost was created from, so
	// a full pipeline pass must not promote it.
	summary, err := resolver.ReconcileGhosts(ctx)
	if err != nil {
		t.Fatalf("ReconcileGhosts failed: %v", err)
	}
	if summary["ghosts_kept"] != 2 || summary["ghosts_promoted"] != 0 {
		t.Fatalf("fresh ghosts must stay placeholders, got %s", summary)
	}

	artist, err := store.ArtistByNormalized(ctx, "testband")
	if err != nil {
		t.Fatalf("ArtistByNormalized failed: %v", err)
	}
	if artist == nil || artist.Status != catalog.StatusGhost {
		t.Fatalf("artist should remain a ghost: %#v", artist)
	}
	label, err := store.LabelByNormalized(ctx, "bigindie")
	if err != nil {
		t.Fatalf("LabelByNormalized failed: %v", err)
	}
	if label == nil || label.Status != catalog.StatusGhost {
		t.Fatalf("label should remain a ghost: %#v", label)
	}
}

func TestReconcileGhostsMergesRecoveredIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := identity.NewResolver(store, nil, logging.NewNop())

	ctx := context.Background()
	active := &catalog.Artist{
		Name:           "Test Band",
		NormalizedName: "testband",
		Slug:           "test-band",
		Status:         catalog.StatusActive,
	}
	if err := store.InsertArtist(ctx, active); err != nil {
		t.Fatalf("insert active: %v", err)
	}
	// A curation typo left this ghost keyed off the canonical name.
	ghost := &catalog.Artist{
		Name:           "tst band",
		NormalizedName: "tstband",
		Slug:           "tst-band",
		Status:         catalog.StatusGhost,
	}
	if err := store.InsertArtist(ctx, ghost); err != nil {
		t.Fatalf("insert ghost: %v", err)
	}

	seedWeek(t, store, 14, 2024, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", Spins: 50},
	})
	rows, err := store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	if err := store.LinkRow(ctx, rows[0].ID, ghost.ID, nil); err != nil {
		t.Fatalf("LinkRow failed: %v", err)
	}

	summary, err := resolver.ReconcileGhosts(ctx)
	if err != nil {
		t.Fatalf("ReconcileGhosts failed: %v", err)
	}
	if summary["ghosts_merged"] != 1 {
		t.Fatalf("expected merge, got %s", summary)
	}

	if gone, err := store.ArtistByID(ctx, ghost.ID); err != nil {
		t.Fatalf("ArtistByID failed: %v", err)
	} else if gone != nil {
		t.Fatalf("ghost should be merged away, got %#v", gone)
	}
	names, err := store.RawArtistNames(ctx, active.ID)
	if err != nil {
		t.Fatalf("RawArtistNames failed: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("row not repointed to active artist: %#v", names)
	}
}
