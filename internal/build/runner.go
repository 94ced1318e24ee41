// Package build orchestrates one compilation pass: read sources,
// resolve a compiler profile per file, skip up-to-date files via the
// cache, compile stale files grouped by profile (one compiler process
// per group, groups in parallel) and commit the cache only when the
// whole pass succeeded.
package build

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Norgate-AV/vyc/internal/cache"
	"github.com/Norgate-AV/vyc/internal/compiler"
	"github.com/Norgate-AV/vyc/internal/config"
)

// Result summarizes a completed pass.
type Result struct {
	// All compiled units, cached and freshly compiled
	Units []*compiler.CompiledUnit

	// Number of files recompiled this pass
	Compiled int

	// Number of files served from the cache
	Cached int

	// Number of compiler invocations
	Invocations int
}

// group is one (profile, stale files) compilation unit. Files never
// appear in more than one group per pass.
type group struct {
	profile *compiler.Profile
	files   []*compiler.SourceFile
}

// Runner executes build passes.
type Runner struct {
	resolver *compiler.Resolver
	invoker  *compiler.Invoker
	cache    *cache.Cache // nil when caching is disabled
	log      *zap.Logger
}

// NewRunner creates a runner from a validated config.
func NewRunner(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}

	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}

	resolver, err := compiler.NewResolver(profiles, cfg.Default())
	if err != nil {
		return nil, err
	}

	r := &Runner{
		resolver: resolver,
		invoker:  compiler.NewInvoker(log),
		log:      log,
	}

	if !cfg.NoCache {
		c, err := cache.New(cfg.CacheDir)
		if err != nil {
			// Cache trouble never blocks a build
			log.Warn("cache disabled", zap.Error(err))
		} else {
			r.cache = c
		}
	}

	return r, nil
}

// Close releases the runner's cache resources.
func (r *Runner) Close() error {
	if r.cache != nil {
		return r.cache.Close()
	}

	return nil
}

// Run executes one pass over the given source files. Configuration and
// content-validation errors fail the pass before any compiler process
// is spawned. Cancelling ctx terminates in-flight compilers and leaves
// the cache untouched.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	sources := make([]*compiler.SourceFile, 0, len(paths))
	for _, path := range paths {
		src, err := compiler.ReadSource(path)
		if err != nil {
			return nil, err
		}

		sources = append(sources, src)
	}

	resolved := make(map[*compiler.SourceFile]*compiler.Profile, len(sources))
	for _, src := range sources {
		profile, err := r.resolver.Resolve(src)
		if err != nil {
			return nil, err
		}

		resolved[src] = profile
	}

	if r.cache != nil {
		if err := r.cache.LockPass(ctx); err != nil {
			return nil, err
		}
		defer r.cache.UnlockPass()
	}

	result := &Result{}
	groups := make(map[string]*group)

	for _, src := range sources {
		profile := resolved[src]

		if r.cache != nil && !r.cache.IsStale(src, profile) {
			if units, ok := r.cache.Units(src, profile); ok {
				result.Units = append(result.Units, units...)
				result.Cached++

				r.log.Debug("cache hit", zap.String("file", src.Path))
				continue
			}
			// Index says fresh but units are gone: recompile
		}

		key := profile.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{profile: profile}
			groups[key] = g
		}

		g.files = append(g.files, src)
	}

	if len(groups) == 0 {
		r.log.Info("nothing to compile", zap.Int("cached", result.Cached))
		return result, nil
	}

	compiled, err := r.compileGroups(ctx, groups)
	if err != nil {
		return nil, err
	}

	// Every group succeeded; record and persist
	for _, g := range groups {
		byPath := unitsByPath(compiled[g.profile.Key()])

		for _, src := range g.files {
			units := byPath[src.Path]
			result.Units = append(result.Units, units...)
			result.Compiled++

			if r.cache != nil {
				r.cache.RecordSuccess(src, g.profile, units)
			}
		}
	}

	if r.cache != nil {
		if err := r.cache.Commit(); err != nil {
			return nil, err
		}
	}

	result.Invocations = len(groups)

	r.log.Info("pass complete",
		zap.Int("compiled", result.Compiled),
		zap.Int("cached", result.Cached),
		zap.Int("invocations", result.Invocations),
	)

	return result, nil
}

// compileGroups invokes the compiler once per group, groups in
// parallel. The pass is all-or-nothing: the first failure cancels
// sibling groups and nothing is cached.
func (r *Runner) compileGroups(ctx context.Context, groups map[string]*group) (map[string][]*compiler.CompiledUnit, error) {
	var mu sync.Mutex
	compiled := make(map[string][]*compiler.CompiledUnit, len(groups))

	g, ctx := errgroup.WithContext(ctx)

	for key, grp := range groups {
		key, grp := key, grp
		paths := make([]string, 0, len(grp.files))
		for _, src := range grp.files {
			paths = append(paths, src.Path)
		}

		g.Go(func() error {
			units, err := r.invoker.Compile(ctx, grp.profile, paths)
			if err != nil {
				return err
			}

			mu.Lock()
			compiled[key] = units
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return compiled, nil
}

// unitsByPath indexes a group's units by source path so each file's
// results can be cached independently.
func unitsByPath(units []*compiler.CompiledUnit) map[string][]*compiler.CompiledUnit {
	byPath := make(map[string][]*compiler.CompiledUnit, len(units))
	for _, u := range units {
		byPath[u.SourcePath] = append(byPath[u.SourcePath], u)
	}

	return byPath
}
