package routing

import (
	"math/rand"
	"testing"

	"ddarpd/internal/model"
	"github.com/stretchr/testify/require"
)

func edge(src, dst model.NodeId, weight float64) model.TopologyEdge {
	return model.TopologyEdge{Src: src, Dst: dst, Weight: weight}
}

// S1 — three-node convergence: A-B-C beats direct A-C.
func TestDijkstraS1ThreeNodeConvergence(t *testing.T) {
	edges := []model.TopologyEdge{
		edge("A", "B", 10), edge("B", "A", 10),
		edge("B", "C", 10), edge("C", "B", 10),
		edge("A", "C", 50), edge("C", "A", 50),
	}

	res := Dijkstra("A", edges)
	require.Equal(t, model.NodeId("B"), res["B"].NextHop)
	require.InDelta(t, 10, res["B"].TotalCost, 0.0001)

	require.Equal(t, model.NodeId("B"), res["C"].NextHop)
	require.Equal(t, []model.NodeId{"A", "B", "C"}, res["C"].FullPath)
	require.InDelta(t, 20, res["C"].TotalCost, 0.0001)
}

func TestDijkstraUnreachableDestinationAbsent(t *testing.T) {
	edges := []model.TopologyEdge{edge("A", "B", 10)}
	res := Dijkstra("A", edges)
	_, ok := res["Z"]
	require.False(t, ok)
}

func TestDijkstraTieBreaksLexicographically(t *testing.T) {
	edges := []model.TopologyEdge{
		edge("A", "X", 10),
		edge("A", "B", 10),
		edge("X", "Z", 5),
		edge("B", "Z", 5),
	}
	res := Dijkstra("A", edges)
	require.Equal(t, model.NodeId("B"), res["Z"].NextHop)
}

func TestDijkstraResultInvariant3PathCostMatchesSum(t *testing.T) {
	edges := []model.TopologyEdge{
		edge("A", "B", 4), edge("B", "C", 6), edge("A", "C", 20),
	}
	res := Dijkstra("A", edges)
	for dest, r := range res {
		require.Equal(t, dest, r.FullPath[len(r.FullPath)-1])
		require.Equal(t, model.NodeId("A"), r.FullPath[0])
		require.Equal(t, r.FullPath[1], r.NextHop)

		sum := 0.0
		byPair := map[[2]model.NodeId]float64{}
		for _, e := range edges {
			byPair[[2]model.NodeId{e.Src, e.Dst}] = e.Weight
		}
		for i := 0; i < len(r.FullPath)-1; i++ {
			sum += byPair[[2]model.NodeId{r.FullPath[i], r.FullPath[i+1]}]
		}
		require.InDelta(t, r.TotalCost, sum, 0.0001)
	}
}

// Property-style: randomized graphs, cross-checked against Floyd-Warshall.
func TestDijkstraAgreesWithFloydWarshall(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 25; trial++ {
		n := 3 + rng.Intn(28)
		p := 0.3 + rng.Float64()*0.7

		nodes := make([]model.NodeId, n)
		for i := range nodes {
			nodes[i] = model.NodeId(rune('A' + i%26))
			if i >= 26 {
				nodes[i] = model.NodeId([]byte{byte('A' + i/26 - 1), byte('A' + i%26)})
			}
		}

		var edges []model.TopologyEdge
		weightMatrix := make(map[model.NodeId]map[model.NodeId]float64)
		for _, u := range nodes {
			weightMatrix[u] = make(map[model.NodeId]float64)
			for _, v := range nodes {
				weightMatrix[u][v] = 1e18
			}
			weightMatrix[u][u] = 0
		}

		for i, u := range nodes {
			for j, v := range nodes {
				if i == j {
					continue
				}
				if rng.Float64() < p {
					w := 0.1 + rng.Float64()*99.9
					edges = append(edges, edge(u, v, w))
					weightMatrix[u][v] = w
				}
			}
		}

		fw := floydWarshall(nodes, weightMatrix)

		source := nodes[0]
		got := Dijkstra(source, edges)

		for _, dest := range nodes {
			if dest == source {
				continue
			}
			want := fw[source][dest]
			r, reachable := got[dest]
			if want >= 1e17 {
				require.False(t, reachable, "trial %d: expected %s unreachable from %s", trial, dest, source)
				continue
			}
			require.True(t, reachable, "trial %d: expected %s reachable from %s", trial, dest, source)
			require.InDelta(t, want, r.TotalCost, 0.01, "trial %d dest %s", trial, dest)
		}
	}
}

func floydWarshall(nodes []model.NodeId, w map[model.NodeId]map[model.NodeId]float64) map[model.NodeId]map[model.NodeId]float64 {
	dist := make(map[model.NodeId]map[model.NodeId]float64, len(nodes))
	for _, u := range nodes {
		dist[u] = make(map[model.NodeId]float64, len(nodes))
		for _, v := range nodes {
			dist[u][v] = w[u][v]
		}
	}
	for _, k := range nodes {
		for _, i := range nodes {
			for _, j := range nodes {
				if dist[i][k]+dist[k][j] < dist[i][j] {
					dist[i][j] = dist[i][k] + dist[k][j]
				}
			}
		}
	}
	return dist
}
