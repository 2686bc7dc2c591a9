package sequence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
)

func newTestAllocator(t *testing.T) Allocator {
	t.Helper()
	dsn := "file:sequence_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.RefSequence{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	alloc, err := NewAllocator(conn)
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	return alloc
}

func TestNextRef_SequentialPerKind(t *testing.T) {
	alloc := newTestAllocator(t)
	ctx := context.Background()

	first, err := alloc.NextRef(ctx, enums.MovementKindReceipt)
	if err != nil {
		t.Fatalf("next ref: %v", err)
	}
	if first != "WH/IN/0001" {
		t.Fatalf("expected WH/IN/0001, got %q", first)
	}

	second, err := alloc.NextRef(ctx, enums.MovementKindReceipt)
	if err != nil {
		t.Fatalf("next ref: %v", err)
	}
	if second != "WH/IN/0002" {
		t.Fatalf("expected WH/IN/0002, got %q", second)
	}

	// Kinds advance independently.
	delivery, err := alloc.NextRef(ctx, enums.MovementKindDelivery)
	if err != nil {
		t.Fatalf("next ref: %v", err)
	}
	if delivery != "WH/OUT/0001" {
		t.Fatalf("expected WH/OUT/0001, got %q", delivery)
	}
}

func TestNextRef_Formats(t *testing.T) {
	alloc := newTestAllocator(t)
	ctx := context.Background()

	cases := map[enums.MovementKind]string{
		enums.MovementKindTransfer:   "WH/INT/0001",
		enums.MovementKindAdjustment: "ADJ/0001",
	}
	for kind, want := range cases {
		got, err := alloc.NextRef(ctx, kind)
		if err != nil {
			t.Fatalf("next ref %s: %v", kind, err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestNextRef_InvalidKind(t *testing.T) {
	alloc := newTestAllocator(t)
	if _, err := alloc.NextRef(context.Background(), enums.MovementKind("bogus")); err == nil {
		t.Fatal("expected invalid kind error")
	}
}
