package engine

import (
	"hash/fnv"
	"math/rand"
)

// PartitionedRNG hands out independent, order-independent pseudo-random
// streams per subsystem name, all deterministically derived from one
// master seed by XOR-ing it with an FNV-1a hash of the name. This lets a
// generator, a server, and a resource pool constructed from one
// top-level seed each get their own stream, and means adding or removing
// a primitive never perturbs the draws any other primitive makes.
type PartitionedRNG struct {
	masterSeed int64
	streams    map[string]*rand.Rand
}

// NewPartitionedRNG builds a PartitionedRNG from a master seed.
func NewPartitionedRNG(masterSeed int64) *PartitionedRNG {
	return &PartitionedRNG{
		masterSeed: masterSeed,
		streams:    make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the RNG stream for name, creating it deterministically
// on first use. Repeated calls with the same name return the same *rand.Rand.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(p.deriveSeed(name)))
	p.streams[name] = r
	return r
}

func (p *PartitionedRNG) deriveSeed(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return p.masterSeed ^ int64(h.Sum64())
}
