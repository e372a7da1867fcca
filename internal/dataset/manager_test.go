package dataset

import (
	"context"
	"os"
	"testing"

	"github.com/debt-dashboard/backend/internal/models"
	"github.com/debt-dashboard/backend/internal/store"
)

const sampleDataset = `{
	"client": {"companyName": "Fazenda Boa Vista", "document": "12.345.678/0001-00"},
	"contracts": [
		{"contractId": "CT-1", "partner": "Maria Souza", "bank": "Banco Alfa",
		 "contractType": "Custeio", "signedDate": "2023-01-05", "totalValue": 100},
		{"contractId": "CT-2", "partner": "Joao Lima", "bank": "Banco Beta",
		 "contractType": "Investimento", "signedDate": "2023-02-10", "totalValue": 200},
		{"contractId": "CT-3", "partner": "Ana Prado", "bank": "Banco Alfa",
		 "contractType": "Custeio", "signedDate": "broken", "totalValue": "abc"}
	]
}`

func TestManagerLoadInstallsSnapshot(t *testing.T) {
	path := writeDataset(t, sampleDataset)
	m := NewManager(path, store.BackendMemory, t.TempDir(), nil)
	defer m.Close()

	if _, ok := m.Current(); ok {
		t.Fatal("no snapshot expected before Load")
	}

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap, ok := m.Current()
	if !ok {
		t.Fatal("expected a snapshot after Load")
	}
	if snap.ID == "" {
		t.Error("snapshot must carry an id")
	}
	if snap.Client.CompanyName != "Fazenda Boa Vista" {
		t.Errorf("unexpected client: %+v", snap.Client)
	}
	// CT-3 has an unusable amount and is skipped; its bad date and bad
	// amount are both reported.
	if snap.RecordCount != 2 || snap.SkippedCount != 1 {
		t.Errorf("expected 2 records and 1 skipped, got %d/%d", snap.RecordCount, snap.SkippedCount)
	}
	if len(snap.PrepareErrors) == 0 {
		t.Error("expected prepare errors for the broken record")
	}

	sum, err := snap.Store.Summary(context.Background(), &models.FilterSpec{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Count != 2 || sum.TotalValue != 300 {
		t.Errorf("unexpected aggregates: %+v", sum)
	}
}

func TestManagerReloadSwapsSnapshot(t *testing.T) {
	path := writeDataset(t, sampleDataset)
	m := NewManager(path, store.BackendMemory, t.TempDir(), nil)
	defer m.Close()

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	first, _ := m.Current()

	if err := os.WriteFile(path, []byte(`{
		"client": {"companyName": "Fazenda Boa Vista"},
		"contracts": [
			{"contractId": "CT-9", "partner": "Novo Socio", "bank": "Banco Gama",
			 "contractType": "Custeio", "signedDate": "2024-03-01", "totalValue": 999}
		]
	}`), 0o644); err != nil {
		t.Fatalf("failed to rewrite dataset: %v", err)
	}

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	second, _ := m.Current()
	if second.ID == first.ID {
		t.Error("reload must install a new snapshot id")
	}
	if second.RecordCount != 1 {
		t.Errorf("expected 1 record after reload, got %d", second.RecordCount)
	}
}

func TestManagerFailedReloadKeepsCurrentSnapshot(t *testing.T) {
	path := writeDataset(t, sampleDataset)
	m := NewManager(path, store.BackendMemory, t.TempDir(), nil)
	defer m.Close()

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	before, _ := m.Current()

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to corrupt dataset: %v", err)
	}

	if err := m.Reload(); err == nil {
		t.Fatal("expected reload of a corrupt file to fail")
	}

	after, ok := m.Current()
	if !ok || after.ID != before.ID {
		t.Error("failed reload must leave the previous snapshot in place")
	}
}

func TestManagerUnknownBackend(t *testing.T) {
	path := writeDataset(t, sampleDataset)
	m := NewManager(path, "postgres", t.TempDir(), nil)

	if err := m.Load(); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestManagerCloseIdempotent(t *testing.T) {
	path := writeDataset(t, sampleDataset)
	m := NewManager(path, store.BackendMemory, t.TempDir(), nil)

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, ok := m.Current(); ok {
		t.Error("no snapshot expected after Close")
	}
}
