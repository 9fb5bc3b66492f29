package cache

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dubai-invest/dubai-invest/internal/simulator"
	"go.uber.org/zap"
)

const simulationKeyPrefix = "dubai-invest:sim:"

// SimulationKey derives a cache key from parsed inputs, so differently
// formatted text for the same numbers shares one entry.
func SimulationKey(in simulator.Inputs) string {
	d := xxhash.New()
	for _, v := range []float64{
		in.PurchasePrice, in.DownPayment, in.AnnualRent, in.AnnualCharges,
		in.VacancyRatePercent, in.ResaleValue,
	} {
		_, _ = d.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		_, _ = d.WriteString("|")
	}
	_, _ = d.WriteString(strconv.Itoa(in.HoldingYears))
	return simulationKeyPrefix + strconv.FormatUint(d.Sum64(), 16)
}

// Simulations runs simulations through a cache.
type Simulations struct {
	cache     Cache
	simulator *simulator.Simulator
	logger    *zap.Logger
}

// NewSimulations wraps sim with c.
func NewSimulations(c Cache, sim *simulator.Simulator, logger *zap.Logger) *Simulations {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = Nop{}
	}
	return &Simulations{cache: c, simulator: sim, logger: logger}
}

// Simulate parses raw and returns the cached result when there is one.
// Only successful, present results are cached. hit reports a cache hit.
func (s *Simulations) Simulate(ctx context.Context, raw simulator.RawInputs) (result *simulator.Result, hit bool, err error) {
	in := raw.Parse()
	key := SimulationKey(in)

	if cached, ok := s.cache.Get(ctx, key); ok {
		var r simulator.Result
		if err := json.Unmarshal([]byte(cached), &r); err == nil {
			return &r, true, nil
		}
		s.logger.Warn("discarding unreadable cached simulation",
			zap.String("op", "cache.Simulations.Simulate"),
			zap.String("key", key),
		)
	}

	result, err = s.simulator.Simulate(in)
	if err != nil || result == nil {
		return result, false, err
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = s.cache.Set(ctx, key, string(data))
	}
	if err != nil {
		s.logger.Warn("failed to cache simulation",
			zap.String("op", "cache.Simulations.Simulate"),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return result, false, nil
}
