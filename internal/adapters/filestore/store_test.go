package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

func TestLoad_Missing(t *testing.T) {
	rec, err := New(t.TempDir()).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
}

func TestSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := New(dir)
	want := domain.NewCachedLocation(domain.Coordinate{Lat: 40.75, Lng: -73.98}, time.UnixMilli(1700000000123))

	if err := s.Save(context.Background(), want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || *got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	data, _ := os.ReadFile(filepath.Join(dir, FileName))
	if string(data) != `{"location":{"lat":40.75,"lng":-73.98},"timestamp":1700000000123}` {
		t.Errorf("unexpected file contents %s", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the record file, found %d entries", len(entries))
	}
}

func TestSave_Overwrites(t *testing.T) {
	s := New(t.TempDir())
	first := domain.NewCachedLocation(domain.Coordinate{Lat: 1, Lng: 1}, time.UnixMilli(1))
	second := domain.NewCachedLocation(domain.Coordinate{Lat: 2, Lng: 2}, time.UnixMilli(2))

	s.Save(context.Background(), first)
	s.Save(context.Background(), second)

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if *got != second {
		t.Errorf("expected %+v, got %+v", second, *got)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644)

	if _, err := New(dir).Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPing(t *testing.T) {
	if err := New(filepath.Join(t.TempDir(), "later")).Ping(context.Background()); err != nil {
		t.Errorf("missing dir should be fine, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	os.WriteFile(file, nil, 0o644)
	if err := New(file).Ping(context.Background()); err == nil {
		t.Error("expected error when the store dir is a file")
	}
}
