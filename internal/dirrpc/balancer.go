package dirrpc

import (
	"errors"
	"math/rand"
	"sync/atomic"
)

// ErrNoEndpoints is returned when a balancer is asked to select from an
// empty endpoint list.
var ErrNoEndpoints = errors.New("dirrpc: no DIR endpoints configured")

// EndpointBalancer selects among a fixed, configured list of DIR addresses.
// This is static load distribution across a known endpoint set, not peer
// discovery: the list is supplied by configuration and never grows or
// shrinks at runtime, adapted (trimmed to the strategies this module needs)
// from the teacher's fapi/balancer.go service-discovery load balancer.
type EndpointBalancer interface {
	Select(endpoints []string) (string, error)
	Name() string
}

// RoundRobinBalancer cycles through the configured endpoints in order.
type RoundRobinBalancer struct {
	counter uint64
}

func NewRoundRobinBalancer() *RoundRobinBalancer { return &RoundRobinBalancer{} }

func (r *RoundRobinBalancer) Select(endpoints []string) (string, error) {
	if len(endpoints) == 0 {
		return "", ErrNoEndpoints
	}
	idx := atomic.AddUint64(&r.counter, 1) % uint64(len(endpoints))
	return endpoints[idx], nil
}

func (r *RoundRobinBalancer) Name() string { return "round_robin" }

// RandomBalancer selects a uniformly random endpoint on each call.
type RandomBalancer struct{}

func NewRandomBalancer() *RandomBalancer { return &RandomBalancer{} }

func (r *RandomBalancer) Select(endpoints []string) (string, error) {
	if len(endpoints) == 0 {
		return "", ErrNoEndpoints
	}
	return endpoints[rand.Intn(len(endpoints))], nil
}

func (r *RandomBalancer) Name() string { return "random" }

// WeightedEndpoint pairs a DIR address with its relative selection weight.
type WeightedEndpoint struct {
	Address string
	Weight  int
}

// WeightedRoundRobinBalancer cycles through endpoints proportionally to
// their configured weight.
type WeightedRoundRobinBalancer struct {
	endpoints []WeightedEndpoint
	current   []int
}

func NewWeightedRoundRobinBalancer(endpoints []WeightedEndpoint) *WeightedRoundRobinBalancer {
	return &WeightedRoundRobinBalancer{endpoints: endpoints, current: make([]int, len(endpoints))}
}

func (w *WeightedRoundRobinBalancer) Select([]string) (string, error) {
	if len(w.endpoints) == 0 {
		return "", ErrNoEndpoints
	}

	total := 0
	best := -1
	for i, e := range w.endpoints {
		w.current[i] += e.Weight
		total += e.Weight
		if best == -1 || w.current[i] > w.current[best] {
			best = i
		}
	}
	w.current[best] -= total
	return w.endpoints[best].Address, nil
}

func (w *WeightedRoundRobinBalancer) Name() string { return "weighted_round_robin" }
