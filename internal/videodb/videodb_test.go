package videodb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/karoyqiu/avmeta/internal/video"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), filepath.Join(t.TempDir(), "videos.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestFindAbsent(t *testing.T) {
	d := openTest(t)
	r, err := d.Find(context.Background(), "SSIS-123")
	if err != nil {
		t.Fatal(err)
	}
	if r != nil {
		t.Errorf("absent code must yield nil, got %+v", r)
	}
}

func TestSaveAndFind(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	info := &video.Info{
		Code:      "SSIS-123",
		Title:     video.Text("タイトル"),
		Actresses: []video.Actress{{Name: "某某"}},
		Duration:  7200,
	}
	if err := d.SaveInfo(ctx, info); err != nil {
		t.Fatal(err)
	}

	r, err := d.Find(ctx, "SSIS-123")
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || r.Info == nil {
		t.Fatal("saved record missing")
	}
	if r.Info.Title.Text != "タイトル" || r.Info.Duration != 7200 {
		t.Errorf("round trip mangled info: %+v", r.Info)
	}
	if r.Downloaded() {
		t.Error("fresh record must not be downloaded")
	}
}

func TestSaveRejectsEmptyCode(t *testing.T) {
	d := openTest(t)
	if err := d.SaveInfo(context.Background(), &video.Info{}); err == nil {
		t.Error("expected an error for an empty code")
	}
}

func TestMarkDownloadedFirstWriteWins(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	first := time.Unix(1700000000, 0)
	if err := d.MarkDownloaded(ctx, "FC2-1234567", first); err != nil {
		t.Fatal(err)
	}
	if err := d.MarkDownloaded(ctx, "FC2-1234567", first.Add(24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	r, err := d.Find(ctx, "FC2-1234567")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Downloaded() {
		t.Fatal("record must be downloaded")
	}
	if !r.DownloadedAt.Equal(first) {
		t.Errorf("downloaded_at = %v, want %v", r.DownloadedAt, first)
	}
	if r.Info != nil {
		t.Error("mark without a scrape must leave info NULL")
	}
}

func TestUpsertPreservesDownloadedAt(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	at := time.Unix(1700000000, 0)
	if err := d.MarkDownloaded(ctx, "SSIS-123", at); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveInfo(ctx, &video.Info{Code: "SSIS-123", Title: video.Text("t")}); err != nil {
		t.Fatal(err)
	}

	r, err := d.Find(ctx, "SSIS-123")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Downloaded() || !r.DownloadedAt.Equal(at) {
		t.Errorf("downloaded_at lost by upsert: %+v", r)
	}
	if r.Info == nil || r.Info.Title.Text != "t" {
		t.Errorf("info not updated: %+v", r.Info)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.db")
	ctx := context.Background()

	d, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SaveInfo(ctx, &video.Info{Code: "ABP-001", Title: video.Text("t")}); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	d2, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer d2.Close()
	r, err := d2.Find(ctx, "ABP-001")
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || r.Info == nil || r.Info.Title.Text != "t" {
		t.Errorf("data lost across reopen: %+v", r)
	}
}
