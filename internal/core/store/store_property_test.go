// Package store 订单簿状态集合属性测试
package store

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"polymarket-arb-engine/internal/core/model"
)

// 固定价格网格，保证浮点价格键可精确比较
var priceGrid = []float64{0.10, 0.20, 0.30, 0.40, 0.50, 0.60, 0.70, 0.80, 0.90}

// TestStore_IncrementalConvergence_Property 测试增量应用的收敛性
// 属性: 任意增量变更序列应用后，盘口应与按"最后一次写入"规则
// 直接构建的盘口完全一致（size=0 视为删除）。
func TestStore_IncrementalConvergence_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("增量变更序列收敛到最终状态", prop.ForAll(
		func(priceIdx []int, sizes []float64, sideFlags []bool) bool {
			n := len(priceIdx)
			if len(sizes) < n {
				n = len(sizes)
			}
			if len(sideFlags) < n {
				n = len(sideFlags)
			}
			if n == 0 {
				return true
			}

			s := New(0.01)
			wantBids := make(map[float64]float64)
			wantAsks := make(map[float64]float64)

			for i := 0; i < n; i++ {
				px := priceGrid[priceIdx[i]%len(priceGrid)]
				sz := sizes[i]
				side := model.SideSell
				want := wantAsks
				if sideFlags[i] {
					side = model.SideBuy
					want = wantBids
				}

				s.Apply(&model.MarketEvent{
					Kind:    model.EventPriceChange,
					AssetID: "token-a",
					Changes: []model.PriceChange{{Price: px, Size: sz, Side: side}},
				})

				if sz == 0 {
					delete(want, px)
				} else {
					want[px] = sz
				}
			}

			b := s.Get("token-a")
			if b == nil {
				return false
			}
			return mapsEqual(b.Bids, wantBids) && mapsEqual(b.Asks, wantAsks)
		},
		gen.SliceOfN(30, gen.IntRange(0, 100)),
		gen.SliceOfN(30, gen.OneGenOf(gen.Float64Range(0, 0), gen.Float64Range(1, 1000))),
		gen.SliceOfN(30, gen.Bool()),
	))

	properties.TestingRun(t)
}

// TestStore_SnapshotResetsIncrements_Property 测试全量快照覆盖增量历史
// 属性: 无论此前应用过怎样的增量序列，一个 book 事件之后
// 盘口应与该事件携带的档位完全一致。
func TestStore_SnapshotResetsIncrements_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("全量快照覆盖全部增量历史", prop.ForAll(
		func(priceIdx []int, sizes []float64, snapIdx []int, snapSizes []float64) bool {
			s := New(0.01)

			// 任意增量前史
			n := len(priceIdx)
			if len(sizes) < n {
				n = len(sizes)
			}
			for i := 0; i < n; i++ {
				s.Apply(&model.MarketEvent{
					Kind:    model.EventPriceChange,
					AssetID: "token-a",
					Changes: []model.PriceChange{{
						Price: priceGrid[priceIdx[i]%len(priceGrid)],
						Size:  sizes[i],
						Side:  model.SideSell,
					}},
				})
			}

			// 全量快照
			m := len(snapIdx)
			if len(snapSizes) < m {
				m = len(snapSizes)
			}
			var asks []model.Level
			want := make(map[float64]float64)
			for i := 0; i < m; i++ {
				px := priceGrid[snapIdx[i]%len(priceGrid)]
				sz := snapSizes[i]
				asks = append(asks, model.Level{Price: px, Size: sz})
				if sz == 0 {
					delete(want, px)
				} else {
					want[px] = sz
				}
			}
			s.Apply(&model.MarketEvent{
				Kind:    model.EventBook,
				AssetID: "token-a",
				Asks:    asks,
			})

			b := s.Get("token-a")
			if b == nil {
				return false
			}
			return mapsEqual(b.Asks, want) && len(b.Bids) == 0
		},
		gen.SliceOfN(20, gen.IntRange(0, 100)),
		gen.SliceOfN(20, gen.Float64Range(0, 1000)),
		gen.SliceOfN(10, gen.IntRange(0, 100)),
		gen.SliceOfN(10, gen.Float64Range(0, 1000)),
	))

	properties.TestingRun(t)
}

func mapsEqual(got, want map[float64]float64) bool {
	if len(got) != len(want) {
		return false
	}
	for px, sz := range want {
		if got[px] != sz {
			return false
		}
	}
	return true
}
