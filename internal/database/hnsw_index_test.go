package database

import (
	"testing"
	"time"
)

func testStudent(id, name string, descriptorID int64, embedding []float32) Student {
	return Student{
		ID:        id,
		TeacherID: "teacher1",
		Name:      name,
		CreatedAt: time.Now(),
		Descriptors: []StoredDescriptor{
			{ID: descriptorID, StudentID: id, Position: 0, Embedding: embedding, Dim: len(embedding)},
		},
	}
}

func TestDescriptorIndex_BuildAndSearch(t *testing.T) {
	idx := NewDescriptorIndex()
	idx.Build([]Student{
		testStudent("s1", "Alice", 1, []float32{0, 0, 0, 0}),
		testStudent("s2", "Bob", 2, []float32{1, 1, 1, 1}),
	})

	if idx.Count() != 2 {
		t.Fatalf("expected 2 indexed descriptors, got %d", idx.Count())
	}

	results, distances, err := idx.Nearest([]float32{0.1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Nearest() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].StudentID != "s1" {
		t.Errorf("expected nearest student s1, got %s", results[0].StudentID)
	}
	if results[0].TeacherID != "teacher1" {
		t.Errorf("expected teacher1 on indexed descriptor, got %q", results[0].TeacherID)
	}
	if distances[0] > 0.11 {
		t.Errorf("unexpected distance %v", distances[0])
	}
}

func TestDescriptorIndex_EmptySearch(t *testing.T) {
	idx := NewDescriptorIndex()
	if _, _, err := idx.Nearest([]float32{0, 0}, 1); err == nil {
		t.Error("expected error searching an uninitialized index")
	}
}

func TestDescriptorIndex_AddAndRemove(t *testing.T) {
	idx := NewDescriptorIndex()
	s := testStudent("s1", "Alice", 1, []float32{0, 0, 0, 0})
	idx.Add(&s)

	if idx.Count() != 1 {
		t.Fatalf("expected 1 descriptor after Add, got %d", idx.Count())
	}

	idx.Remove("s1")
	if idx.Count() != 0 {
		t.Fatalf("expected 0 descriptors after Remove, got %d", idx.Count())
	}

	// Removed students must not reappear in results even though the graph
	// still holds their nodes.
	results, _, err := idx.Nearest([]float32{0, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Nearest() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for removed student, got %d", len(results))
	}
}

func TestDescriptorIndex_SkipsEmptyEmbeddings(t *testing.T) {
	idx := NewDescriptorIndex()
	idx.Build([]Student{
		{
			ID:   "s1",
			Name: "Alice",
			Descriptors: []StoredDescriptor{
				{ID: 1, StudentID: "s1", Embedding: nil},
			},
		},
	})
	if idx.Count() != 0 {
		t.Errorf("descriptors without embeddings should be skipped, got %d", idx.Count())
	}
}
