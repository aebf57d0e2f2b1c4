package scenario

// Dispatcher maps (virtualUserID, iterationIndex) deterministically onto the
// registry's weight distribution. The same pair always selects the same
// scenario within one run; runs with different seeds may differ.
type Dispatcher struct {
	registry *Registry
	seed     uint64
}

// NewDispatcher creates a dispatcher over the registry with the given seed
func NewDispatcher(registry *Registry, seed int64) *Dispatcher {
	return &Dispatcher{registry: registry, seed: uint64(seed)}
}

// Pick selects the scenario for one iteration of one virtual user
func (d *Dispatcher) Pick(vuID int, iteration int64) Definition {
	h := mix64(fnv1a(d.seed, uint64(vuID), uint64(iteration)))
	// Map the top 53 hash bits onto [0, totalWeight)
	selector := float64(h>>11) / (1 << 53) * d.registry.TotalWeight()
	return d.registry.atSelector(selector)
}

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// fnv1a hashes the words byte by byte, FNV-1a
func fnv1a(words ...uint64) uint64 {
	h := uint64(fnvOffset)
	for _, w := range words {
		for i := 0; i < 8; i++ {
			h ^= w & 0xff
			h *= fnvPrime
			w >>= 8
		}
	}
	return h
}

// mix64 is the 64-bit finalizer from MurmurHash3; it makes the high bits of
// the selector uniform for sequential inputs.
func mix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}
