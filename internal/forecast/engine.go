package forecast

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/iwvelando/backlog-forecast/pkg/datetime"
	"go.uber.org/zap"
)

// Engine memoizes GetForecast on its inputs so repeated requests with an
// unchanged contract set, rule set, override map, filter and as-of month reuse
// the previous result. Returned forecasts are shared and must not be modified.
type Engine struct {
	logger *zap.Logger

	mu      sync.Mutex
	lastKey string
	last    Forecast
	hits    uint64
	misses  uint64
}

// NewEngine creates an Engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Run returns the forecast for in, recomputing only when in differs from the
// previous call.
func (e *Engine) Run(in Inputs) Forecast {
	key, err := Fingerprint(in)
	if err != nil {
		e.logger.Warn("failed to fingerprint forecast inputs; computing without cache",
			zap.String("op", "forecast.Engine.Run"),
			zap.Error(err),
		)
		return GetForecast(e.logger, in)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if key == e.lastKey {
		e.hits++
		e.logger.Debug("forecast cache hit",
			zap.String("op", "forecast.Engine.Run"),
			zap.Uint64("hits", e.hits),
		)
		return e.last
	}

	start := time.Now()
	result := GetForecast(e.logger, in)
	e.lastKey = key
	e.last = result
	e.misses++

	e.logger.Info("forecast computed",
		zap.String("op", "forecast.Engine.Run"),
		zap.Int("contracts", len(in.Contracts)),
		zap.Int("projected", len(result.Projections)),
		zap.Duration("duration", time.Since(start)),
	)
	return result
}

// Stats returns the cache hit and miss counts.
func (e *Engine) Stats() (hits, misses uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits, e.misses
}

// Invalidate drops the memoized result.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastKey = ""
	e.last = Forecast{}
}

// Fingerprint hashes the inputs. AsOf contributes only its month, so runs
// within the same calendar month share a key.
func Fingerprint(in Inputs) (string, error) {
	keyed := in
	keyed.AsOf = time.Time{}
	payload := struct {
		Inputs Inputs `json:"inputs"`
		Month  string `json:"month"`
	}{
		Inputs: keyed,
		Month:  datetime.MonthKey(in.AsOf, 0),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
