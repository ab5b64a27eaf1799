package main

import (
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/kamstrup/intmap"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/MdFirdousMehdi/the-entitytainer/entitytainer"
)

const batchSize = 1000

var (
	flagEntities   int
	flagOperations int
	flagSeed       int64
	flagHoles      bool
	flagJSON       bool
	flagVerify     int
)

var cmdRoot = &cobra.Command{
	Use:   "entitytainer-stress",
	Short: "Randomized stress and verification run against the entitytainer",
	Long: `
entitytainer-stress hammers a Hierarchy with random entity and relationship
operations while mirroring every change in an independent shadow model, then
cross-checks both and prints a performance report.
`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	cmdRoot.Flags().IntVar(&flagEntities, "entities", 4096, "size of the entity universe")
	cmdRoot.Flags().IntVar(&flagOperations, "ops", 200000, "number of random operations to run")
	cmdRoot.Flags().Int64Var(&flagSeed, "seed", 1, "RNG seed, for reproducible runs")
	cmdRoot.Flags().BoolVar(&flagHoles, "holes", false, "remove children with holes instead of shifting")
	cmdRoot.Flags().BoolVar(&flagJSON, "json", false, "emit the report as JSON")
	cmdRoot.Flags().IntVar(&flagVerify, "verify-every", 10000, "cross-check against the shadow model every N operations (0 = only at the end)")
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

// shadowModel mirrors the hierarchy with plain maps so the two can be
// compared after any number of operations.
type shadowModel struct {
	parentOf   *intmap.Map[entitytainer.Entity, entitytainer.Entity]
	childrenOf map[entitytainer.Entity][]entitytainer.Entity
	added      []entitytainer.Entity
	addedIdx   map[entitytainer.Entity]int
}

func newShadowModel(entities int) *shadowModel {
	return &shadowModel{
		parentOf:   intmap.New[entitytainer.Entity, entitytainer.Entity](entities),
		childrenOf: make(map[entitytainer.Entity][]entitytainer.Entity, entities),
		addedIdx:   make(map[entitytainer.Entity]int, entities),
	}
}

func (m *shadowModel) addEntity(e entitytainer.Entity) {
	m.addedIdx[e] = len(m.added)
	m.added = append(m.added, e)
}

func (m *shadowModel) removeEntity(e entitytainer.Entity) {
	idx := m.addedIdx[e]
	last := len(m.added) - 1
	m.added[idx] = m.added[last]
	m.addedIdx[m.added[idx]] = idx
	m.added = m.added[:last]
	delete(m.addedIdx, e)
	delete(m.childrenOf, e)
}

func (m *shadowModel) addChild(parent, child entitytainer.Entity) {
	m.childrenOf[parent] = append(m.childrenOf[parent], child)
	m.parentOf.Put(child, parent)
}

func (m *shadowModel) removeChild(parent, child entitytainer.Entity) {
	children := m.childrenOf[parent]
	for i, c := range children {
		if c == child {
			m.childrenOf[parent] = append(children[:i], children[i+1:]...)
			break
		}
	}
	m.parentOf.Del(child)
}

func run() error {
	log := logrus.WithFields(logrus.Fields{
		"entities": flagEntities,
		"ops":      flagOperations,
		"seed":     flagSeed,
	})

	// Every tier gets one bucket per entity, so bucket exhaustion cannot
	// interfere with the run; only the last-tier child limit is guarded.
	cfg := entitytainer.Config{
		MaxEntities:      flagEntities,
		TierCapacities:   []int{4, 16, 256},
		TierBucketCounts: []int{flagEntities, flagEntities, flagEntities},
		RemoveWithHoles:  flagHoles,
	}
	maxChildren := cfg.TierCapacities[len(cfg.TierCapacities)-1] - 2

	size, err := entitytainer.SizeNeeded(cfg)
	if err != nil {
		return errors.Wrap(err, "sizing hierarchy")
	}
	log.WithField("arena_bytes", size).Info("building hierarchy")

	h, err := entitytainer.New(cfg)
	if err != nil {
		return errors.Wrap(err, "building hierarchy")
	}

	rng := rand.New(rand.NewSource(flagSeed))
	model := newShadowModel(flagEntities)

	report := &Report{
		Entities:        flagEntities,
		Operations:      flagOperations,
		Seed:            flagSeed,
		RemoveWithHoles: flagHoles,
		ArenaBytes:      size,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	randomEntity := func() entitytainer.Entity {
		return entitytainer.Entity(rng.Intn(flagEntities-1) + 1)
	}

	log.Info("running")
	start := time.Now()
	batchStart := start
	for i := 0; i < flagOperations; i++ {
		switch roll := rng.Intn(100); {
		case roll < 20: // add entity
			e := randomEntity()
			if _, ok := model.addedIdx[e]; ok {
				report.Skipped++
				continue
			}
			h.AddEntity(e)
			model.addEntity(e)
			report.AddedEntities++

		case roll < 35: // remove entity
			if len(model.added) == 0 {
				report.Skipped++
				continue
			}
			e := model.added[rng.Intn(len(model.added))]
			// Detach its children first so they cannot dangle.
			for _, child := range append([]entitytainer.Entity(nil), model.childrenOf[e]...) {
				h.RemoveChild(e, child)
				model.removeChild(e, child)
				report.ChildRemoves++
			}
			h.RemoveEntity(e) // detaches e from its own parent too
			if p, ok := model.parentOf.Get(e); ok {
				model.removeChild(p, e)
			}
			model.removeEntity(e)
			report.Removed++

		case roll < 75: // add child
			if len(model.added) == 0 {
				report.Skipped++
				continue
			}
			parent := model.added[rng.Intn(len(model.added))]
			child := randomEntity()
			_, hasParent := model.parentOf.Get(child)
			if child == parent || hasParent || len(model.childrenOf[parent]) >= maxChildren {
				report.Skipped++
				continue
			}
			h.AddChild(parent, child)
			model.addChild(parent, child)
			report.ChildAdds++

		default: // remove child
			if len(model.added) == 0 {
				report.Skipped++
				continue
			}
			parent := model.added[rng.Intn(len(model.added))]
			children := model.childrenOf[parent]
			if len(children) == 0 {
				report.Skipped++
				continue
			}
			child := children[rng.Intn(len(children))]
			h.RemoveChild(parent, child)
			model.removeChild(parent, child)
			report.ChildRemoves++
		}

		if (i+1)%batchSize == 0 {
			now := time.Now()
			report.BatchTime.Samples = append(report.BatchTime.Samples, now.Sub(batchStart))
			batchStart = now
		}
		if flagVerify > 0 && (i+1)%flagVerify == 0 {
			if err := verify(h, model, flagHoles); err != nil {
				return errors.Wrapf(err, "verification failed after %d operations", i+1)
			}
		}
	}
	report.TotalTime = time.Since(start)
	report.OpsPerSecond = float64(flagOperations) / report.TotalTime.Seconds()

	if err := verify(h, model, flagHoles); err != nil {
		return errors.Wrap(err, "final verification failed")
	}
	log.Info("verification passed")

	runtime.ReadMemStats(&report.MemStatsEnd)
	report.BatchTime.Finalize()
	report.Final = h.CollectStats()

	if flagJSON {
		return report.GenerateJSON(os.Stdout)
	}
	return report.Generate(os.Stdout)
}

// verify cross-checks the hierarchy against the shadow model: child counts,
// child membership (and order, when removals shift), and reverse lookups.
func verify(h *entitytainer.Hierarchy, model *shadowModel, holes bool) error {
	for _, parent := range model.added {
		want := model.childrenOf[parent]
		if got := h.NumChildren(parent); got != len(want) {
			return errors.Errorf("entity %d: %d children, expected %d", parent, got, len(want))
		}

		children, count := h.Children(parent)
		if holes {
			seen := make(map[entitytainer.Entity]int, count)
			for _, c := range children {
				if c != entitytainer.NoEntity {
					seen[c]++
				}
			}
			for _, c := range want {
				if seen[c] == 0 {
					return errors.Errorf("entity %d: child %d missing", parent, c)
				}
				seen[c]--
			}
		} else {
			for i, c := range want {
				if children[i] != c {
					return errors.Errorf("entity %d: child %d at index %d, expected %d", parent, children[i], i, c)
				}
			}
		}

		for _, c := range want {
			if got := h.Parent(c); got != parent {
				return errors.Errorf("entity %d: parent lookup returned %d, expected %d", c, got, parent)
			}
			wantParent, ok := model.parentOf.Get(c)
			if !ok || wantParent != parent {
				return errors.Errorf("shadow model inconsistent for child %d", c)
			}
		}
	}
	return nil
}
