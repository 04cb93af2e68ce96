// Package gosquit synthesises natural-language question / formal query
// pairs from a bank of typed relations and entities.
package gosquit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/gosquit/bank"
	"github.com/brunobiangulo/gosquit/dedup"
	"github.com/brunobiangulo/gosquit/grammar"
	"github.com/brunobiangulo/gosquit/graph"
	"github.com/brunobiangulo/gosquit/resolver"
	"github.com/brunobiangulo/gosquit/store"
	"github.com/brunobiangulo/gosquit/template"
)

// Engine is the main entry point for corpus generation.
type Engine interface {
	// Generate produces one record of the given shape. Expected failures
	// (no path, part-of-speech mismatch) are retried up to the attempt ratio.
	Generate(ctx context.Context, shape template.Shape) (*template.Example, error)

	// GenerateCorpus produces a de-duplicated corpus across a worker pool
	// and persists it unless the store is disabled.
	GenerateCorpus(ctx context.Context, req CorpusRequest) (*CorpusResult, error)

	// Skeletons returns the expanded skeletons of a shape.
	Skeletons(shape template.Shape) ([]string, error)

	// Templates returns the numbered skeletons of a shape.
	Templates(shape template.Shape) ([]template.Numbered, error)

	// ResolveEntity maps one mention to its best matching entity.
	ResolveEntity(mention string) (resolver.Match, error)

	// ResolveText replaces every [mention] in text with its entity ID.
	ResolveText(text string) (string, []resolver.Unresolved)

	// Stats summarises the bank, skeletons, type graph and stored corpus.
	Stats(ctx context.Context) (*Stats, error)

	// Records lists stored records.
	Records(ctx context.Context, f store.RecordFilter) ([]store.Record, error)

	// Runs lists stored generation runs, newest first.
	Runs(ctx context.Context) ([]store.Run, error)

	// Store returns the underlying store, nil when persistence is disabled.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// CorpusRequest describes a corpus run.
type CorpusRequest struct {
	// PerShape is the number of distinct records wanted per shape.
	PerShape map[template.Shape]int `json:"per_shape"`

	// MaxAttempts bounds attempts per shape. Zero means AttemptRatio times
	// the target.
	MaxAttempts int `json:"max_attempts,omitempty"`

	// SkipExisting treats hashes already in the store as duplicates.
	SkipExisting bool `json:"skip_existing,omitempty"`
}

// CorpusResult reports a finished corpus run. Records are ordered by shape
// (generation order), then by worker.
type CorpusResult struct {
	RunID       string                 `json:"run_id,omitempty"`
	Records     []template.Example     `json:"records"`
	PerShape    map[template.Shape]int `json:"per_shape"`
	Attempts    int                    `json:"attempts"`
	Duplicates  int                    `json:"duplicates"`
	NoPath      int                    `json:"no_path"`
	PosMismatch int                    `json:"pos_mismatch"`
	Stored      int                    `json:"stored"`
}

// Stats is the summary returned by Engine.Stats.
type Stats struct {
	Bank       bank.Stats             `json:"bank"`
	Preset     string                 `json:"preset"`
	Skeletons  map[template.Shape]int `json:"skeletons"`
	Typed      map[template.Shape]int `json:"typed_estimate"`
	Nodes      int                    `json:"nodes"`
	Edges      int                    `json:"edges"`
	Components [][]string             `json:"components"`
	Stored     map[string]int         `json:"stored,omitempty"`
	Runs       int                    `json:"runs,omitempty"`
}

// Option configures engine construction.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
	seen       dedup.Set
	bank       *bank.Bank
}

// WithLogger sets the engine logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer registers engine metrics on reg instead of a private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithDedup shares a seen-set across corpus runs. Without it each run
// starts from an empty in-memory set, or from Redis when configured.
func WithDedup(s dedup.Set) Option {
	return func(o *options) { o.seen = s }
}

// WithBank uses an already loaded bank instead of reading DataDir.
func WithBank(b *bank.Bank) Option {
	return func(o *options) { o.bank = b }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg      Config
	log      *zap.Logger
	bank     *bank.Bank
	trav     *graph.Traverser
	preset   grammar.Preset
	gen      *template.Generator
	resolver *resolver.Resolver
	store    *store.Store
	seen     dedup.Set
	redis    interface{ Close() error }
	metrics  *metrics

	rngMu sync.Mutex
	rng   *rand.Rand

	closed atomic.Bool
}

// New creates a new engine with the given configuration.
func New(cfg Config, opts ...Option) (Engine, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := o.logger.Named("gosquit")

	b := o.bank
	if b == nil {
		var err error
		b, err = bank.Load(cfg.DataDir, cfg.Bank)
		if err != nil {
			return nil, fmt.Errorf("loading bank: %w", err)
		}
	}

	preset, err := grammar.Lookup(cfg.Preset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	trav := graph.NewTraverser(graph.Build(b.Keys()), graph.ExclusionSet(cfg.Exclusions))
	e := &engine{
		cfg:    cfg,
		log:    log,
		bank:   b,
		trav:   trav,
		preset: preset,
		gen: template.NewGenerator(b, trav, preset, template.GeneratorOptions{
			Tries:        cfg.BindTries,
			Patience:     cfg.Patience,
			StartDomains: cfg.StartDomains,
		}),
		resolver: resolver.New(b.Entities(), resolver.Options{Cutoff: cfg.Cutoff, Logger: o.logger}),
		seen:     o.seen,
		metrics:  newMetrics(o.registerer),
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
	}

	if e.seen == nil && cfg.Redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		r, client, err := dedup.DialRedis(ctx, *cfg.Redis)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("connecting dedup redis: %w", err)
		}
		e.seen, e.redis = r, client
	}

	if !cfg.SkipStore {
		dbPath := cfg.resolveDBPath()
		s, err := store.New(dbPath, o.logger)
		if err != nil {
			e.closeRedis()
			return nil, fmt.Errorf("opening store: %w", err)
		}
		e.store = s
		log.Info("store opened", zap.String("path", dbPath))
	}

	log.Info("engine ready",
		zap.String("preset", preset.Name),
		zap.Int("keys", len(b.Keys())),
		zap.Int("labels", e.resolver.Len()),
	)
	return e, nil
}

func (e *engine) closeRedis() {
	if e.redis != nil {
		e.redis.Close()
	}
}

func checkShape(shape template.Shape) error {
	if _, ok := template.ParseShape(string(shape)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownShape, shape)
	}
	return nil
}

// expected reports whether err is a per-record failure that a retry may
// overcome, and its metric reason.
func expected(err error) (string, bool) {
	switch {
	case errors.Is(err, template.ErrNoPath):
		return reasonNoPath, true
	case errors.Is(err, template.ErrPartOfSpeech):
		return reasonPosMismatch, true
	}
	return "", false
}

// attempt runs one generation attempt and records its metrics.
func (e *engine) attempt(rng *rand.Rand, shape template.Shape) (template.Example, error) {
	start := time.Now()
	ex, err := e.gen.Generate(rng, shape)
	e.metrics.duration.WithLabelValues(string(shape)).Observe(time.Since(start).Seconds())
	if reason, ok := expected(err); ok {
		e.metrics.failures.WithLabelValues(string(shape), reason).Inc()
		e.log.Debug("attempt failed", zap.String("shape", string(shape)), zap.Error(err))
	}
	return ex, err
}

func (e *engine) Generate(ctx context.Context, shape template.Shape) (*template.Example, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if err := checkShape(shape); err != nil {
		return nil, err
	}

	e.rngMu.Lock()
	defer e.rngMu.Unlock()

	var last error
	for i := 0; i < e.cfg.AttemptRatio; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ex, err := e.attempt(e.rng, shape)
		if err == nil {
			e.metrics.generated.WithLabelValues(string(shape)).Inc()
			return &ex, nil
		}
		if _, ok := expected(err); !ok {
			return nil, err
		}
		last = err
	}
	return nil, fmt.Errorf("gosquit.Generate: %s: %d attempts: %w", shape, e.cfg.AttemptRatio, last)
}

// tally holds one worker's counters for one shape.
type tally struct {
	records     []template.Example
	attempts    int
	duplicates  int
	noPath      int
	posMismatch int
}

// quota splits n across workers; the first n%workers get one extra.
func quota(n, workers, i int) int {
	q := n / workers
	if i < n%workers {
		q++
	}
	return q
}

func (e *engine) GenerateCorpus(ctx context.Context, req CorpusRequest) (*CorpusResult, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	for shape, n := range req.PerShape {
		if err := checkShape(shape); err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("gosquit.GenerateCorpus: %w: negative target %d for %s", ErrInvalidRequest, n, shape)
		}
	}
	if req.SkipExisting && e.store == nil {
		return nil, fmt.Errorf("gosquit.GenerateCorpus: skip existing: %w", ErrStoreDisabled)
	}

	seen := e.seen
	if seen == nil {
		seen = dedup.NewMemory()
	}
	if req.SkipExisting {
		if err := e.store.EachHash(ctx, func(h string) error {
			_, err := seen.Add(ctx, h)
			return err
		}); err != nil {
			return nil, fmt.Errorf("priming dedup set: %w", err)
		}
	}

	res := &CorpusResult{PerShape: make(map[template.Shape]int)}
	if e.store != nil {
		res.RunID = uuid.New().String()
		cfgJSON, _ := json.Marshal(e.cfg.redacted())
		if err := e.store.CreateRun(ctx, store.Run{
			ID:      res.RunID,
			Preset:  e.preset.Name,
			Seed:    e.cfg.Seed,
			Workers: e.cfg.Workers,
			Config:  string(cfgJSON),
		}); err != nil {
			return nil, err
		}
	}

	log := e.log.With(zap.String("run", res.RunID))
	log.Info("corpus run started", zap.Int("workers", e.cfg.Workers))

	runErr := e.runWorkers(ctx, req, seen, res)

	if e.store != nil {
		if runErr == nil {
			res.Stored, runErr = e.persist(ctx, res)
		}
		status := store.RunFinished
		if runErr != nil {
			status = store.RunFailed
		}
		// The run row is closed even when ctx was cancelled.
		if err := e.store.FinishRun(context.WithoutCancel(ctx), res.RunID, status, store.RunTotals{
			Generated:   len(res.Records),
			Duplicates:  res.Duplicates,
			NoPath:      res.NoPath,
			PosMismatch: res.PosMismatch,
		}); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		log.Error("corpus run failed", zap.Error(runErr))
		return res, runErr
	}

	log.Info("corpus run finished",
		zap.Int("records", len(res.Records)),
		zap.Int("attempts", res.Attempts),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("no_path", res.NoPath),
		zap.Int("pos_mismatch", res.PosMismatch),
		zap.Int("stored", res.Stored),
	)
	return res, nil
}

func (e *engine) runWorkers(ctx context.Context, req CorpusRequest, seen dedup.Set, res *CorpusResult) error {
	workers := e.cfg.Workers
	shapes := template.Shapes()
	tallies := make([][]tally, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		tallies[w] = make([]tally, len(shapes))
		rng := rand.New(rand.NewPCG(e.cfg.Seed+uint64(w), uint64(w)))
		g.Go(func() error {
			for si, shape := range shapes {
				target := req.PerShape[shape]
				if target == 0 {
					continue
				}
				limit := req.MaxAttempts
				if limit <= 0 {
					limit = e.cfg.AttemptRatio * target
				}
				want := quota(target, workers, w)
				budget := quota(limit, workers, w)
				if err := e.work(gctx, rng, shape, want, budget, seen, &tallies[w][si]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()

	for si, shape := range shapes {
		for w := range tallies {
			t := tallies[w][si]
			res.Records = append(res.Records, t.records...)
			res.PerShape[shape] += len(t.records)
			res.Attempts += t.attempts
			res.Duplicates += t.duplicates
			res.NoPath += t.noPath
			res.PosMismatch += t.posMismatch
		}
		if target := req.PerShape[shape]; res.PerShape[shape] < target && err == nil {
			e.log.Warn("attempt budget exhausted",
				zap.String("shape", string(shape)),
				zap.Int("target", target),
				zap.Int("generated", res.PerShape[shape]),
			)
		}
	}
	return err
}

func (e *engine) work(ctx context.Context, rng *rand.Rand, shape template.Shape, want, budget int, seen dedup.Set, t *tally) error {
	for len(t.records) < want && t.attempts < budget {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.attempts++
		ex, err := e.attempt(rng, shape)
		if reason, ok := expected(err); ok {
			if reason == reasonNoPath {
				t.noPath++
			} else {
				t.posMismatch++
			}
			continue
		}
		if err != nil {
			return err
		}

		fresh, err := seen.Add(ctx, ex.Hash)
		if err != nil {
			return fmt.Errorf("dedup: %w", err)
		}
		if !fresh {
			t.duplicates++
			e.metrics.duplicates.WithLabelValues(string(shape)).Inc()
			continue
		}
		t.records = append(t.records, ex)
		e.metrics.generated.WithLabelValues(string(shape)).Inc()
	}
	return nil
}

// persist writes the run's records in batches.
func (e *engine) persist(ctx context.Context, res *CorpusResult) (int, error) {
	stored := 0
	for start := 0; start < len(res.Records); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(res.Records))
		batch := make([]store.Record, 0, end-start)
		for _, ex := range res.Records[start:end] {
			batch = append(batch, toStoreRecord(ex))
		}
		n, err := e.store.InsertRecords(ctx, res.RunID, batch)
		if err != nil {
			return stored, err
		}
		stored += n
	}
	return stored, nil
}

func toStoreRecord(ex template.Example) store.Record {
	return store.Record{
		Shape:        string(ex.Shape),
		Question:     ex.Question,
		Query:        ex.Query,
		Hash:         ex.Hash,
		Skeleton:     ex.Skeleton,
		Typed:        ex.Typed,
		Entities:     ex.Entities,
		ChainLengths: ex.ChainLengths,
	}
}

// ToStoreRecords converts generated examples to storable records.
func ToStoreRecords(examples []template.Example) []store.Record {
	out := make([]store.Record, len(examples))
	for i, ex := range examples {
		out[i] = toStoreRecord(ex)
	}
	return out
}

func (e *engine) Skeletons(shape template.Shape) ([]string, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	return e.gen.Skeletons(shape), nil
}

func (e *engine) Templates(shape template.Shape) ([]template.Numbered, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	return e.gen.Numbered(shape), nil
}

func (e *engine) ResolveEntity(mention string) (resolver.Match, error) {
	return e.resolver.ResolveOne(mention)
}

func (e *engine) ResolveText(text string) (string, []resolver.Unresolved) {
	return e.resolver.ResolveText(text)
}

func (e *engine) Stats(ctx context.Context) (*Stats, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	graphs := e.trav.Graphs()
	st := &Stats{
		Bank:       e.bank.Stats(),
		Preset:     e.preset.Name,
		Skeletons:  make(map[template.Shape]int),
		Typed:      make(map[template.Shape]int),
		Nodes:      len(graphs.Forward.Nodes()),
		Edges:      graphs.Forward.EdgeCount(),
		Components: graph.Components(graphs.Forward),
	}

	domains := e.cfg.StartDomains
	if len(domains) == 0 {
		domains = e.bank.StartDomains()
	}
	for _, shape := range template.Shapes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nums := e.gen.Numbered(shape)
		st.Skeletons[shape] = len(nums)
		st.Typed[shape] = e.typedEstimate(nums, domains)
	}

	if e.store != nil {
		counts, err := e.store.CountByShape(ctx)
		if err != nil {
			return nil, err
		}
		runs, err := e.store.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		st.Stored, st.Runs = counts, len(runs)
	}
	return st, nil
}

// typedEstimate counts the typed skeletons reachable from nums: path
// counts over every start domain for one chain, meeting pairs over every
// ordered pair of start domains for two.
func (e *engine) typedEstimate(nums []template.Numbered, domains []string) int {
	total := 0
	for _, n := range nums {
		switch len(n.ChainLengths) {
		case 1:
			for _, d := range domains {
				total += len(e.trav.Traverse(d, n.ChainLengths[0]))
			}
		case 2:
			for _, a := range domains {
				for _, b := range domains {
					total += len(e.trav.MeetAll(a, b, n.ChainLengths[0], n.ChainLengths[1]))
				}
			}
		}
	}
	return total
}

func (e *engine) Records(ctx context.Context, f store.RecordFilter) ([]store.Record, error) {
	if e.store == nil {
		return nil, ErrStoreDisabled
	}
	return e.store.ListRecords(ctx, f)
}

func (e *engine) Runs(ctx context.Context) ([]store.Run, error) {
	if e.store == nil {
		return nil, ErrStoreDisabled
	}
	return e.store.ListRuns(ctx)
}

func (e *engine) Store() *store.Store {
	return e.store
}

func (e *engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.closeRedis()
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
