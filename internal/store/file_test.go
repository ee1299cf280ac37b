package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreReadsPartialDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	legacy := `{
  "registrations": [
    {"id": 4, "chatId": 100, "fullName": "Ivan Petrov", "phone": "+79990000000", "attempt": 2,
     "submittedAt": "2025-02-01T10:00:00.000Z", "invited": true}
  ],
  "settings": {"exam_datetime": "2025-03-01T07:00:00.000Z"},
  "auditLog": [{"when": "2025-02-02T10:00:00.000Z", "adminId": 7, "action": "clear_all"}]
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	reg, ok, err := s.RegistrationByID(ctx, 4)
	if err != nil || !ok || !reg.Invited || reg.Attempt != 2 {
		t.Fatalf("legacy record: %+v ok=%v err=%v", reg, ok, err)
	}
	// nextId absent: continue after the highest id
	if next := mustAdd(t, s, 200, "Anna"); next.ID != 5 {
		t.Fatalf("next id = %d", next.ID)
	}
	if ids, err := s.PendingRemoval(ctx, 7); err != nil || len(ids) != 0 {
		t.Fatalf("pending: %v %v", ids, err)
	}
	log, _ := s.AuditLog(ctx)
	if len(log) != 1 || log[0].Actor != "admin:7" {
		t.Fatalf("audit: %+v", log)
	}
}

func TestFileStoreCorruptFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	list, err := s.ListRegistrations(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("list = %v err = %v", list, err)
	}
	if reg := mustAdd(t, s, 1, "Ivan"); reg.ID != 1 {
		t.Fatalf("id = %d", reg.ID)
	}
	kept, err := os.ReadFile(path + ".corrupt")
	if err != nil || string(kept) != "{not json" {
		t.Fatalf("corrupt copy: %q err=%v", kept, err)
	}
}

func TestFileStoreMissingFileCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	if _, err := OpenFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("data file not created: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("leftover temp files: %v", entries)
	}
}

func TestFileStoreWriteFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFile(context.Background(), filepath.Join(dir, "data.json"))
	if err != nil {
		t.Fatal(err)
	}
	s.path = filepath.Join(dir, "missing-dir", "data.json")
	if _, err := s.AddRegistration(context.Background(), 1, "Ivan", "+7", 1); err == nil {
		t.Fatal("expected write error")
	}
}

func TestFileStoreUnreadableKeptAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	// a directory in place of the file fails to read without being absent
	if err := os.MkdirAll(filepath.Join(path, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}
	s, err := OpenFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if reg := mustAdd(t, s, 1, "Ivan"); reg.ID != 1 {
		t.Fatalf("id = %d", reg.ID)
	}
	if _, err := os.Stat(filepath.Join(path+".corrupt", "keep")); err != nil {
		t.Fatalf("unreadable data not kept aside: %v", err)
	}
	list, err := s.ListRegistrations(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v err = %v", list, err)
	}
}
