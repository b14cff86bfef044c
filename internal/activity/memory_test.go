package activity

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryLogAppendAndList(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	entry, err := log.Append(ctx, "agent_1", TypeStatusChange, "Agent registered", "user_123", map[string]string{"status": "pending"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.ID == "" || entry.Timestamp.IsZero() {
		t.Errorf("entry not populated: %+v", entry)
	}

	entries, err := log.ListByAgent(ctx, "agent_1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Metadata["status"] != "pending" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestMemoryLogNewestFirst(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	for i := 0; i < 5; i++ {
		if _, err := log.Append(ctx, "agent_1", TypeTransaction, fmt.Sprintf("tx %d", i), "system", nil); err != nil {
			t.Fatal(err)
		}
	}

	entries, _ := log.ListByAgent(ctx, "agent_1", 10, 0)
	if len(entries) != 5 {
		t.Fatalf("len = %d", len(entries))
	}
	if entries[0].Description != "tx 4" || entries[4].Description != "tx 0" {
		t.Errorf("not newest-first: %q ... %q", entries[0].Description, entries[4].Description)
	}
}

func TestMemoryLogPagination(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	for i := 0; i < 7; i++ {
		_, _ = log.Append(ctx, "agent_1", TypeTransaction, fmt.Sprintf("tx %d", i), "system", nil)
	}
	_, _ = log.Append(ctx, "agent_2", TypeError, "other agent", "system", nil)

	entries, _ := log.ListByAgent(ctx, "agent_1", 3, 3)
	if len(entries) != 3 {
		t.Fatalf("len = %d", len(entries))
	}
	if entries[0].Description != "tx 3" {
		t.Errorf("offset page starts at %q", entries[0].Description)
	}

	// Offset past the end yields an empty slice.
	entries, _ = log.ListByAgent(ctx, "agent_1", 10, 100)
	if len(entries) != 0 {
		t.Errorf("beyond-end len = %d", len(entries))
	}

	// A negative offset is treated as the first page.
	entries, err := log.ListByAgent(ctx, "agent_1", 3, -5)
	if err != nil {
		t.Fatalf("negative offset: %v", err)
	}
	if len(entries) != 3 || entries[0].Description != "tx 6" {
		t.Errorf("negative offset page = %+v", entries)
	}

	// Entries are isolated per agent.
	entries, _ = log.ListByAgent(ctx, "agent_2", 10, 0)
	if len(entries) != 1 {
		t.Errorf("agent_2 len = %d", len(entries))
	}

	n, _ := log.Len(ctx)
	if n != 8 {
		t.Errorf("total len = %d", n)
	}
}
