package store

import (
	"context"
	"errors"
	"testing"

	"github.com/franz/yt-schema/internal/schema"
	"github.com/franz/yt-schema/internal/util"
)

func TestMemoryAssignsIDsAndLogs(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	c1, err := m.InsertOne(ctx, schema.Channels, schema.Record{"channel_id": "C1"})
	if err != nil {
		t.Fatal(err)
	}
	c2, err := m.InsertOne(ctx, schema.Channels, schema.Record{"channel_id": "C2"})
	if err != nil {
		t.Fatal(err)
	}
	if c1 != 1 || c2 != 2 {
		t.Errorf("expected ids 1 and 2, got %d and %d", c1, c2)
	}

	err = m.InsertMany(ctx, schema.ChannelTags, []schema.Record{
		{"channel_fk": c2, "tag": "a"},
		{"channel_fk": c1, "tag": "b"},
	})
	if err != nil {
		t.Fatal(err)
	}

	log := m.Log()
	if len(log) != 4 {
		t.Fatalf("expected 4 log entries, got %d", len(log))
	}
	if log[2].Table != schema.ChannelTags || log[2].ID != 1 || log[3].ID != 2 {
		t.Errorf("unexpected log tail: %+v", log[2:])
	}

	rows := m.Rows(schema.ChannelTags)
	if rows[0].Record["tag"] != "a" || rows[1].Record["channel_fk"] != c1 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestMemoryEnforcesConstraints(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	if _, err := m.InsertOne(ctx, schema.Entries, schema.Record{"channel_fk": int64(1), "position": int64(0)}); err == nil {
		t.Error("expected dangling owner reference to fail")
	}

	id, err := m.InsertOne(ctx, schema.Channels, schema.Record{"channel_id": "C1"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.InsertOne(ctx, schema.Channels, schema.Record{"channel_id": "C1"})
	if !errors.Is(err, util.ErrUniqueViolation) {
		t.Errorf("expected unique violation, got %v", err)
	}

	if _, err := m.InsertOne(ctx, schema.Versions, schema.Record{"channel_fk": id}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.InsertOne(ctx, schema.Versions, schema.Record{"channel_fk": id}); !errors.Is(err, util.ErrUniqueViolation) {
		t.Errorf("expected second version for the same channel to fail, got %v", err)
	}

	// Rejected inserts consume no ids.
	if rows := m.Rows(schema.Channels); len(rows) != 1 {
		t.Errorf("expected 1 channel row, got %d", len(rows))
	}
}

func TestMemoryReset(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	if _, err := m.InsertOne(ctx, schema.Channels, schema.Record{"channel_id": "C1"}); err != nil {
		t.Fatal(err)
	}
	m.Reset()
	if _, err := m.InsertOne(ctx, schema.Channels, schema.Record{"channel_id": "C1"}); err != nil {
		t.Errorf("expected insert after reset to succeed: %v", err)
	}

	counts, _ := m.CountRows(ctx)
	if counts[0].Table != schema.Channels || counts[0].Rows != 1 {
		t.Errorf("unexpected counts: %+v", counts[0])
	}
}
