package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id1.Compare(id2) >= 0 {
		t.Error("Monotonic entropy should produce increasing IDs")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	tests := []struct {
		prefix string
	}{
		{EntityPrefix},
		{RecordPrefix},
		{MomentPrefix},
		{NotePrefix},
	}

	for _, tt := range tests {
		id := gen.GenerateWithPrefix(tt.prefix)

		if !strings.HasPrefix(id, tt.prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", tt.prefix, id)
		}
		if !HasPrefix(id, tt.prefix) {
			t.Errorf("HasPrefix should accept %s", id)
		}
	}
}

func TestTypedIDGeneration(t *testing.T) {
	gen := NewGenerator()

	if !HasPrefix(gen.NewEntityID().String(), EntityPrefix) {
		t.Error("EntityID should carry the ent prefix")
	}
	if !HasPrefix(gen.NewRecordID().String(), RecordPrefix) {
		t.Error("RecordID should carry the rec prefix")
	}
	if !HasPrefix(gen.NewMomentID().String(), MomentPrefix) {
		t.Error("MomentID should carry the mom prefix")
	}
	if !HasPrefix(gen.NewNoteID().String(), NotePrefix) {
		t.Error("NoteID should carry the note prefix")
	}
	if !strings.HasPrefix(NewClientID().String(), ClientPrefix+"_") {
		t.Error("ClientID should carry the cli prefix")
	}
}

func TestHasPrefixRejectsGarbage(t *testing.T) {
	if HasPrefix("ent_not-a-ulid", EntityPrefix) {
		t.Error("invalid ULID part should be rejected")
	}
	if HasPrefix(NewGenerator().GenerateWithPrefix(RecordPrefix), EntityPrefix) {
		t.Error("wrong prefix should be rejected")
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := NewGenerator().GenerateWithPrefix(NotePrefix)

	ts, err := Timestamp(id)
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v should not precede %v", ts, before)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := gen.GenerateString()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique IDs, got %d", workers*perWorker, len(seen))
	}
}
