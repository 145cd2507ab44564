package catalog_test

import (
	"context"
	"fmt"
	"testing"

	"airchart/internal/catalog"
	"airchart/internal/testsupport"
)

func TestReingestKeepsRowsStableAndLinked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	ing := &catalog.Ingestion{
		SourceFile: "SMR - 14-2024 Top 200.csv",
		ReportWeek: 14,
		ReportYear: 2024,
		RowCount:   1,
	}
	rows := []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", LabelRaw: "Big Indie", Spins: 50, Reach: 4},
	}
	if err := store.SaveIngestion(ctx, ing, rows); err != nil {
		t.Fatalf("SaveIngestion failed: %v", err)
	}
	firstID := ing.ID

	artist := &catalog.Artist{
		Name:           "Test Band",
		NormalizedName: "testband",
		Slug:           "test-band",
		Status:         catalog.StatusActive,
	}
	if err := store.InsertArtist(ctx, artist); err != nil {
		t.Fatalf("InsertArtist failed: %v", err)
	}
	pending, err := store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	if err := store.LinkRow(ctx, pending[0].ID, artist.ID, nil); err != nil {
		t.Fatalf("LinkRow failed: %v", err)
	}

	// The vendor re-sends the same file with corrected spins.
	corrected := &catalog.Ingestion{
		SourceFile: "SMR - 14-2024 Top 200.csv",
		ReportWeek: 14,
		ReportYear: 2024,
		RowCount:   1,
	}
	if err := store.SaveIngestion(ctx, corrected, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", LabelRaw: "Big Indie", Spins: 55, Reach: 5},
	}); err != nil {
		t.Fatalf("second SaveIngestion failed: %v", err)
	}
	if corrected.ID != firstID {
		t.Fatalf("re-ingest must reuse the ingestion id: %s != %s", corrected.ID, firstID)
	}

	count, err := store.RowCountForIngestion(ctx, firstID)
	if err != nil {
		t.Fatalf("RowCountForIngestion failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("re-ingest must not duplicate rows, got %d", count)
	}

	// The corrected values land without undoing the resolution.
	pending, err = store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("resolved row must stay resolved after re-ingest, got %d pending", len(pending))
	}
	aggs, err := store.ArtistAggregates(ctx, []string{firstID})
	if err != nil {
		t.Fatalf("ArtistAggregates failed: %v", err)
	}
	if len(aggs) != 1 || aggs[0].Spins != 55 || aggs[0].Reach != 5 {
		t.Fatalf("corrected values not applied: %#v", aggs)
	}
}

func TestArtistAggregatesSumsResolvedRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	label := &catalog.Label{
		Name:           "Big Indie",
		NormalizedName: "bigindie",
		Slug:           "big-indie",
		Status:         catalog.StatusActive,
	}
	if err := store.InsertLabel(ctx, label); err != nil {
		t.Fatalf("InsertLabel failed: %v", err)
	}
	artist := &catalog.Artist{
		Name:           "Test Band",
		NormalizedName: "testband",
		Slug:           "test-band",
		Status:         catalog.StatusActive,
		LabelID:        &label.ID,
	}
	if err := store.InsertArtist(ctx, artist); err != nil {
		t.Fatalf("InsertArtist failed: %v", err)
	}

	ing := &catalog.Ingestion{
		SourceFile: "SMR - 14-2024 Top 200.csv",
		ReportWeek: 14,
		ReportYear: 2024,
	}
	if err := store.SaveIngestion(ctx, ing, []*catalog.RawRow{
		{ArtistRaw: "Test Band", TitleRaw: "Anthem", Spins: 30, Reach: 4},
		{ArtistRaw: "Test Band", TitleRaw: "B Side", Spins: 20, Reach: 2},
		{ArtistRaw: "Unlinked", TitleRaw: "Song", Spins: 99, Reach: 9},
	}); err != nil {
		t.Fatalf("SaveIngestion failed: %v", err)
	}

	pending, err := store.PendingRows(ctx)
	if err != nil {
		t.Fatalf("PendingRows failed: %v", err)
	}
	for _, row := range pending {
		if row.ArtistRaw != "Test Band" {
			continue
		}
		if err := store.LinkRow(ctx, row.ID, artist.ID, nil); err != nil {
			t.Fatalf("LinkRow failed: %v", err)
		}
	}

	aggs, err := store.ArtistAggregates(ctx, []string{ing.ID})
	if err != nil {
		t.Fatalf("ArtistAggregates failed: %v", err)
	}
	if len(aggs) != 1 {
		t.Fatalf("pending rows must be excluded, got %d aggregates", len(aggs))
	}
	agg := aggs[0]
	if agg.ArtistID != artist.ID || agg.Spins != 50 || agg.Reach != 4 || agg.Rows != 2 {
		t.Fatalf("unexpected aggregate: %#v", agg)
	}
	if agg.LabelID == nil || *agg.LabelID != label.ID {
		t.Fatalf("aggregate missing label affiliation: %#v", agg)
	}
}

func TestReportWeeksOrderedOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	for _, period := range []catalog.ReportWeek{{Year: 2024, Week: 2}, {Year: 2023, Week: 52}, {Year: 2024, Week: 1}} {
		ing := &catalog.Ingestion{
			SourceFile: testName(period),
			ReportWeek: period.Week,
			ReportYear: period.Year,
		}
		if err := store.SaveIngestion(ctx, ing, nil); err != nil {
			t.Fatalf("SaveIngestion failed: %v", err)
		}
	}

	weeks, err := store.ReportWeeks(ctx)
	if err != nil {
		t.Fatalf("ReportWeeks failed: %v", err)
	}
	want := []catalog.ReportWeek{{Year: 2023, Week: 52}, {Year: 2024, Week: 1}, {Year: 2024, Week: 2}}
	if len(weeks) != len(want) {
		t.Fatalf("expected %d weeks, got %d", len(want), len(weeks))
	}
	for i := range want {
		if weeks[i] != want[i] {
			t.Fatalf("weeks[%d] = %#v, want %#v", i, weeks[i], want[i])
		}
	}
}

func TestActiveUniquenessAllowsGhostShadow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

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

	ghost := &catalog.Artist{
		Name:           "test band",
		NormalizedName: "testband",
		Slug:           "test-band-2",
		Status:         catalog.StatusGhost,
	}
	if err := store.InsertArtist(ctx, ghost); err != nil {
		t.Fatalf("ghost beside active must be allowed: %v", err)
	}

	second := &catalog.Artist{
		Name:           "Test Band",
		NormalizedName: "testband",
		Slug:           "test-band-3",
		Status:         catalog.StatusActive,
	}
	err := store.InsertArtist(ctx, second)
	if err == nil {
		t.Fatal("second active entity with the same normalized name must be rejected")
	}
	if !catalog.IsConstraintErr(err) {
		t.Fatalf("expected constraint error, got %v", err)
	}
}

func testName(period catalog.ReportWeek) string {
	return fmt.Sprintf("SMR - %d-%d Top 200.csv", period.Week, period.Year)
}
