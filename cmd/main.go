// Command hashset-fill fills a hashset.Set from several goroutines at
// once through Concurrent views, then checks and mutates it sequentially.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/thepudds/hashset"
)

type options struct {
	elements int
	capacity int
	workers  int
	budget   string
	remove   int
	seed     int64
	verbose  bool
}

func main() {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "hashset-fill",
		Short:        "Fill a hash set concurrently, then verify it sequentially.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
			return run(opts)
		},
	}
	addFlags(cmd.Flags(), opts)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addFlags(flags *pflag.FlagSet, opts *options) {
	flags.IntVarP(&opts.elements, "elements", "n", 100_000, "number of values to insert, duplicates included")
	flags.IntVarP(&opts.capacity, "capacity", "c", 0, "capacity hint; defaults to --elements")
	flags.IntVarP(&opts.workers, "workers", "w", 4, "number of concurrent writers")
	flags.StringVar(&opts.budget, "budget", "", "memory budget for the set's tables, such as 64MiB; unlimited if empty")
	flags.IntVar(&opts.remove, "remove", 0, "number of values to remove after the concurrent fill")
	flags.Int64Var(&opts.seed, "seed", 1, "seed for generating values")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output")
}

func run(opts *options) error {
	if opts.workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", opts.workers)
	}
	if opts.elements < 1 {
		return fmt.Errorf("--elements must be at least 1, got %d", opts.elements)
	}
	capacity := opts.capacity
	if capacity == 0 {
		capacity = opts.elements
	}

	setOpts := []hashset.Option{hashset.WithMaxThreads(opts.workers)}
	var budget *hashset.Budget
	if opts.budget != "" {
		limit, err := humanize.ParseBytes(opts.budget)
		if err != nil {
			return errors.Wrapf(err, "parsing --budget %q", opts.budget)
		}
		budget = hashset.NewBudget(int(limit))
		setOpts = append(setOpts, hashset.WithAllocator(budget))
	}

	s, err := hashset.New(capacity, hashset.HashInt64, setOpts...)
	if err != nil {
		return errors.Wrap(err, "creating set")
	}
	defer s.Dispose()
	log.Debugf("Created set with capacity %d for %d values.", s.Cap(), opts.elements)

	values := make([]int64, opts.elements)
	rng := rand.New(rand.NewSource(opts.seed))
	distinct := make(map[int64]struct{}, opts.elements)
	for i := range values {
		// Narrow range so some values repeat.
		values[i] = rng.Int63n(int64(opts.elements) * 2)
		distinct[values[i]] = struct{}{}
	}

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < opts.workers; w++ {
		view := s.Concurrent(w)
		g.Go(func() error {
			for i := view.ThreadIndex(); i < len(values); i += opts.workers {
				view.TryAdd(values[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	stats := s.Stats()
	log.Infof("Concurrent fill of %d values by %d workers took %v: %d added, %d duplicates, %d exhausted, %d claim retries.",
		len(values), opts.workers, time.Since(start), stats.Added, stats.Duplicates, stats.Exhausted, stats.ClaimRetries)

	want := len(distinct)
	if stats.Exhausted > 0 {
		log.Warningf("Capacity %d could not hold all %d distinct values.", s.Cap(), want)
		want = s.Len()
	}
	if s.Len() != want {
		return fmt.Errorf("set has %d values, want %d", s.Len(), want)
	}
	for _, v := range s.Values() {
		if _, ok := distinct[v]; !ok {
			return fmt.Errorf("set holds %d, which was never added", v)
		}
	}

	removed := 0
	for v := range distinct {
		if removed == opts.remove {
			break
		}
		if s.Remove(v) {
			removed++
		}
	}
	log.Debugf("Removed %d values, %d remain.", removed, s.Len())

	// Sequential adds may grow the table, subject to the budget.
	for i := 0; i < opts.elements; i++ {
		if _, err := s.Add(int64(opts.elements)*2 + int64(i)); err != nil {
			if errors.Is(err, hashset.ErrAllocation) {
				log.Warningf("Stopped growing after %d sequential adds: %v", i, err)
				break
			}
			return err
		}
	}
	stats = s.Stats()
	log.Infof("Final set: %d values, capacity %d, %d resizes.", s.Len(), s.Cap(), stats.ResizeGenerations)
	if budget != nil {
		log.Infof("Table memory: %s in use, %s peak, %s limit.",
			humanize.IBytes(uint64(budget.Used())), humanize.IBytes(uint64(budget.Peak())), humanize.IBytes(uint64(budget.Limit())))
	}
	return nil
}
