//go:build property

package cast

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/net/html"

	"github.com/conneroisu/imbui/internal/logging"
	"github.com/conneroisu/imbui/pkg/dom"
)

func propertyRuntime(opts ...Option) (*Runtime, *html.Node) {
	opts = append([]Option{WithLogger(logging.NewNopLogger())}, opts...)
	rt := NewRuntime(opts...)
	return rt, rt.Document().CreateElement("div")
}

// TestKeyedProperties validates that keyed lists keep nodes across reorders.
func TestKeyedProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("a permutation moves nodes without recreating them", prop.ForAll(
		func(n int, seed int64) bool {
			rt, container := propertyRuntime()
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("k%d", i)
			}
			if err := rt.Render(rowListTpl.With(rowsOf(rows(ids...))), container, nil); err != nil {
				return false
			}
			before := make(map[string]*html.Node, n)
			for i, in := range dom.QuerySelectorAll(container, "input") {
				before[ids[i]] = in
			}

			shuffled := append([]string(nil), ids...)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			if err := rt.Render(rowListTpl.With(rowsOf(rows(shuffled...))), container, nil); err != nil {
				return false
			}

			after := dom.QuerySelectorAll(container, "input")
			if len(after) != n {
				return false
			}
			for i, id := range shuffled {
				if after[i] != before[id] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.Int64(),
	))

	properties.Property("the rendered keys follow the input order with duplicates dropped", prop.ForAll(
		func(keys []int) bool {
			rt, container := propertyRuntime()
			list := Keyed(func(k int) any { return k }, func(k int) any { return k })
			if err := rt.Render(rowListTpl.With(list(keys)), container, nil); err != nil {
				return false
			}

			seen := make(map[int]bool)
			var want []any
			for _, k := range keys {
				if !seen[k] {
					seen[k] = true
					want = append(want, k)
				}
			}
			inst, _ := rt.Instance(container, rowListTpl)
			got := inst.Parts()[0].(*RangePart).Keys()
			if len(got) != len(want) {
				return false
			}
			for i := range want {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 6)),
	))

	properties.TestingRun(t)
}

// TestRangeProperties validates positional range reconciliation.
func TestRangeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(8642)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("item count tracks the value length and shrinking disposes", prop.ForAll(
		func(lengths []int) bool {
			disposed := 0
			rt, container := propertyRuntime(WithDisposeHook(func(*Instance) { disposed++ }))

			wantDisposed, prev := 0, 0
			for _, n := range lengths {
				items := make([]any, n)
				for i := range items {
					items[i] = itemTpl.With(i)
				}
				if err := rt.Render(listTpl.With(items), container, nil); err != nil {
					return false
				}
				if n < prev {
					wantDisposed += prev - n
				}
				prev = n

				if len(dom.QuerySelectorAll(container, "li")) != n {
					return false
				}
			}
			return disposed == wantDisposed
		},
		gen.SliceOf(gen.IntRange(0, 8)),
	))

	properties.Property("rendering the same values twice mutates nothing", prop.ForAll(
		func(id, class string, texts []string) bool {
			rt, container := propertyRuntime()
			items := make([]any, len(texts))
			for i, s := range texts {
				items[i] = s
			}
			if err := rt.Render(boxTpl.With(id, class, items), container, nil); err != nil {
				return false
			}

			rec := rt.Document().Record()
			defer rec.Stop()
			if err := rt.Render(boxTpl.With(id, class, items), container, nil); err != nil {
				return false
			}
			return len(rec.Mutations) == 0
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}
