package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// IndexedDescriptor is what the duplicate-enrollment index stores per node:
// enough to name the student a new capture collides with.
type IndexedDescriptor struct {
	DescriptorID int64
	StudentID    string
	StudentName  string
	TeacherID    string
}

// DescriptorIndex is an in-memory HNSW index over all stored descriptors.
// It only serves the advisory duplicate check at enrollment; the attendance
// matching path deliberately stays a linear scan.
type DescriptorIndex struct {
	graph *hnsw.Graph[int64]
	byID  map[int64]*IndexedDescriptor
	mu    sync.RWMutex
}

// NewDescriptorIndex creates a new empty descriptor index.
func NewDescriptorIndex() *DescriptorIndex {
	return &DescriptorIndex{
		byID: make(map[int64]*IndexedDescriptor),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given students' descriptors.
func (x *DescriptorIndex) Build(students []Student) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.byID = make(map[int64]*IndexedDescriptor)
	if len(students) == 0 {
		x.graph = nil
		return
	}

	g := newGraph()
	for i := range students {
		s := &students[i]
		for j := range s.Descriptors {
			d := &s.Descriptors[j]
			if len(d.Embedding) == 0 {
				continue
			}
			g.Add(hnsw.MakeNode(d.ID, d.Embedding))
			x.byID[d.ID] = &IndexedDescriptor{
				DescriptorID: d.ID,
				StudentID:    s.ID,
				StudentName:  s.Name,
				TeacherID:    s.TeacherID,
			}
		}
	}
	x.graph = g
}

// Add inserts one student's descriptors into the index.
func (x *DescriptorIndex) Add(student *Student) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.graph == nil {
		x.graph = newGraph()
	}
	for i := range student.Descriptors {
		d := &student.Descriptors[i]
		if len(d.Embedding) == 0 {
			continue
		}
		x.graph.Add(hnsw.MakeNode(d.ID, d.Embedding))
		x.byID[d.ID] = &IndexedDescriptor{
			DescriptorID: d.ID,
			StudentID:    student.ID,
			StudentName:  student.Name,
			TeacherID:    student.TeacherID,
		}
	}
}

// Remove drops a student's descriptors from lookup. HNSW has no true
// deletion; removed nodes are filtered out of search results instead.
func (x *DescriptorIndex) Remove(studentID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for id, d := range x.byID {
		if d.StudentID == studentID {
			delete(x.byID, id)
		}
	}
}

// Nearest returns up to k indexed descriptors closest to the query,
// with their exact Euclidean distances.
func (x *DescriptorIndex) Nearest(query []float32, k int) ([]IndexedDescriptor, []float64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := x.graph.Search(query, k)

	results := make([]IndexedDescriptor, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		d, ok := x.byID[n.Key]
		if !ok {
			continue
		}
		results = append(results, *d)
		distances = append(distances, EuclideanDistance(query, n.Value))
	}
	return results, distances, nil
}

// Count returns the number of indexed descriptors.
func (x *DescriptorIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}
