package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tohu/internal/blueprint"
	"github.com/roach88/tohu/internal/gen"
	"github.com/roach88/tohu/internal/record"
	"github.com/roach88/tohu/internal/store"
	"github.com/roach88/tohu/internal/testutil"
)

// Harness runs one scenario against a private in-memory ledger.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
	opts   []blueprint.Option
}

// RunOption configures Run.
type RunOption func(*Harness)

// WithBlueprintOptions passes compile options, such as extra apply
// functions, to the blueprint compiler.
func WithBlueprintOptions(opts ...blueprint.Option) RunOption {
	return func(h *Harness) { h.opts = append(h.opts, opts...) }
}

// WithLogger replaces the harness logger, which discards by default.
func WithLogger(l *slog.Logger) RunOption {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns the result. Failed expectations are
// reported in the result; the error return is for scenarios that could not
// be executed at all, such as an invalid blueprint.
//
// Execution flow:
// 1. Create a fresh in-memory ledger with a fixed run ID and logical clock
// 2. Load and compile the blueprint
// 3. Generate the batch with the scenario seed
// 4. Record the run; replay it when determinism is expected
// 5. Check spawn equivalence, then evaluate field assertions
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	clock := testutil.NewLedgerClock()
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		store.WithNow(clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	bp, err := blueprint.Load(scenario.Blueprint)
	if err != nil {
		return nil, fmt.Errorf("failed to load blueprint: %w", err)
	}
	compiled, err := blueprint.Compile(bp, h.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile blueprint: %w", err)
	}

	result := NewResult(scenario.Name)
	result.Seed, _ = compiled.Seed()
	if scenario.Seed != nil {
		result.Seed = *scenario.Seed
	}
	result.Num = defaultNum
	switch {
	case scenario.Num > 0:
		result.Num = scenario.Num
	case bp.Num > 0:
		result.Num = bp.Num
	}

	g, err := compiled.New()
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate blueprint: %w", err)
	}
	items, err := g.Generate(result.Num, gen.WithSeed(result.Seed))
	if err != nil {
		return nil, fmt.Errorf("failed to generate: %w", err)
	}
	result.Items = items
	if result.Fingerprint, err = items.Fingerprint(); err != nil {
		return nil, fmt.Errorf("failed to fingerprint batch: %w", err)
	}
	h.logger.Debug("scenario batch generated", "scenario", scenario.Name, "seed", result.Seed, "num", result.Num)

	run, err := h.store.RecordRun(ctx, store.Run{
		Blueprint:   bp.Name,
		Format:      store.FormatOf(scenario.Blueprint),
		Source:      bp.Source,
		Seed:        result.Seed,
		Num:         result.Num,
		Fingerprint: result.Fingerprint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	result.RunID = run.ID

	exp := scenario.Expect
	if exp.Count != nil && items.Len() != *exp.Count {
		result.AddError(fmt.Sprintf("expected %d items, got %d", *exp.Count, items.Len()))
	}
	if exp.Fingerprint != "" && exp.Fingerprint != result.Fingerprint {
		result.AddError(fmt.Sprintf("expected fingerprint %s, got %s", exp.Fingerprint, result.Fingerprint))
	}
	if exp.Deterministic {
		replay, err := h.store.Replay(ctx, run.ID, h.opts...)
		switch {
		case err != nil:
			result.AddError(fmt.Sprintf("replay failed: %v", err))
		case !replay.Verification.Matched:
			result.AddError(fmt.Sprintf("replay produced fingerprint %s, recorded %s", replay.Verification.Fingerprint, run.Fingerprint))
		}
	}
	if exp.SpawnEquivalent {
		if msg := checkSpawnEquivalence(compiled, result.Seed, result.Num); msg != "" {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(items, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// checkSpawnEquivalence advances a fresh instance through the first half of
// the batch, spawns it, and requires both to produce the same second half.
func checkSpawnEquivalence(compiled *blueprint.Compiled, seed uint64, num int) string {
	g, err := compiled.New()
	if err != nil {
		return fmt.Sprintf("spawn check: %v", err)
	}
	gen.ResetAll(g, seed)
	for i := 0; i < num/2; i++ {
		if _, err := g.Next(); err != nil {
			return fmt.Sprintf("spawn check: %v", err)
		}
	}
	s, err := gen.Spawn(g)
	if err != nil {
		return fmt.Sprintf("spawn check: %v", err)
	}
	for i := num / 2; i < num; i++ {
		a, errA := g.Next()
		b, errB := s.Next()
		if errA != nil || errB != nil {
			return fmt.Sprintf("spawn check: item %d: %v / %v", i, errA, errB)
		}
		if !record.ValueEqual(a, b) {
			return fmt.Sprintf("spawned generator diverged at item %d: %s vs %s", i, record.Repr(a), record.Repr(b))
		}
	}
	return ""
}
