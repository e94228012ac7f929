package database

// DefaultDescriptorDim is the descriptor length produced by the extractor's
// face recognition model.
const DefaultDescriptorDim = 128

// HNSW index parameters for the duplicate-enrollment index.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWSearchK is the number of candidates requested per duplicate check.
	// A handful is enough; the check only reports the nearest students.
	HNSWSearchK = 5
)
