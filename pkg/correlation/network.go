package correlation

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// EdgeKind categorizes the connection between two events.
type EdgeKind string

const (
	// EdgeParallel links events from different timelines at about the same year.
	EdgeParallel EdgeKind = "parallel"
	// EdgeRelated links events that share significant words.
	EdgeRelated EdgeKind = "related"
)

// NetworkNode is one event in the network.
type NetworkNode struct {
	EventID    string  `json:"event_id"`
	TimelineID string  `json:"timeline_id"`
	Title      string  `json:"title"`
	Year       int     `json:"year"`
	Degree     int     `json:"degree"`
	Cluster    int     `json:"cluster"`
	Centrality float64 `json:"centrality"` // betweenness
}

// NetworkEdge is an undirected connection. From sorts before To.
type NetworkEdge struct {
	From  string     `json:"from"`
	To    string     `json:"to"`
	Kinds []EdgeKind `json:"kinds"`
	Score float64    `json:"score,omitempty"` // best related score seen
}

// Cluster is a connected component of the network.
type Cluster struct {
	ID          int      `json:"id"`
	EventIDs    []string `json:"event_ids"`
	TimelineIDs []string `json:"timeline_ids"`
	Central     string   `json:"central_event"`
}

// NetworkStats summarizes the network.
type NetworkStats struct {
	Nodes          int     `json:"nodes"`
	Edges          int     `json:"edges"`
	ParallelEdges  int     `json:"parallel_edges"`
	RelatedEdges   int     `json:"related_edges"`
	Clusters       int     `json:"clusters"`
	Isolated       int     `json:"isolated"`
	LargestCluster int     `json:"largest_cluster"`
	AvgDegree      float64 `json:"avg_degree"`
}

// Network is the whole-working-set view of every parallel and related link.
// Building it runs both searches once per event, so it is quadratic in the
// number of events; it is meant for exports and robot output, not per frame.
type Network struct {
	g        *simple.UndirectedGraph
	idToNode map[string]int64
	nodeToID map[int64]string
	nodes    map[string]*NetworkNode
	edges    map[[2]string]*NetworkEdge
	clusters []Cluster
}

// BuildNetwork correlates every event in ws against the rest.
func BuildNetwork(ws model.WorkingSet) *Network {
	defer metrics.Timer(metrics.NetworkBuild)()

	n := &Network{
		g:        simple.NewUndirectedGraph(),
		idToNode: make(map[string]int64),
		nodeToID: make(map[int64]string),
		nodes:    make(map[string]*NetworkNode),
		edges:    make(map[[2]string]*NetworkEdge),
	}

	for _, tl := range ws {
		for _, ev := range tl.Events {
			if _, dup := n.idToNode[ev.ID]; dup {
				continue
			}
			node := n.g.NewNode()
			n.g.AddNode(node)
			n.idToNode[ev.ID] = node.ID()
			n.nodeToID[node.ID()] = ev.ID
			n.nodes[ev.ID] = &NetworkNode{
				EventID:    ev.ID,
				TimelineID: tl.ID,
				Title:      ev.Title,
				Year:       chrono.ParseYear(ev.Year),
				Cluster:    -1,
			}
		}
	}

	for _, tl := range ws {
		for _, ev := range tl.Events {
			for _, p := range FindParallels(ev, tl.ID, ws) {
				n.link(ev.ID, p.Event.ID, EdgeParallel, 0)
			}
			for _, r := range FindRelated(ev, tl.ID, ws) {
				n.link(ev.ID, r.Event.ID, EdgeRelated, r.Score)
			}
		}
	}

	n.computeClusters()
	return n
}

func (n *Network) link(a, b string, kind EdgeKind, score float64) {
	if a == b {
		return
	}
	u, okA := n.idToNode[a]
	v, okB := n.idToNode[b]
	if !okA || !okB {
		return
	}
	key := [2]string{a, b}
	if b < a {
		key = [2]string{b, a}
	}
	e, ok := n.edges[key]
	if !ok {
		e = &NetworkEdge{From: key[0], To: key[1]}
		n.edges[key] = e
		n.g.SetEdge(n.g.NewEdge(n.g.Node(u), n.g.Node(v)))
	}
	hasKind := false
	for _, k := range e.Kinds {
		if k == kind {
			hasKind = true
			break
		}
	}
	if !hasKind {
		e.Kinds = append(e.Kinds, kind)
		sort.Slice(e.Kinds, func(i, j int) bool { return e.Kinds[i] < e.Kinds[j] })
	}
	if score > e.Score {
		e.Score = score
	}
}

func (n *Network) computeClusters() {
	for id, node := range n.nodes {
		node.Degree = n.g.From(n.idToNode[id]).Len()
	}
	if n.g.Edges().Len() > 0 {
		for nid, c := range network.Betweenness(n.g) {
			n.nodes[n.nodeToID[nid]].Centrality = c
		}
	}

	var comps [][]string
	for _, comp := range topo.ConnectedComponents(n.g) {
		ids := make([]string, 0, len(comp))
		for _, node := range comp {
			ids = append(ids, n.nodeToID[node.ID()])
		}
		sort.Strings(ids)
		comps = append(comps, ids)
	}
	sort.SliceStable(comps, func(i, j int) bool {
		if len(comps[i]) != len(comps[j]) {
			return len(comps[i]) > len(comps[j])
		}
		return comps[i][0] < comps[j][0]
	})

	n.clusters = make([]Cluster, 0, len(comps))
	for i, ids := range comps {
		c := Cluster{ID: i, EventIDs: ids}
		seenTL := make(map[string]bool)
		for _, id := range ids {
			node := n.nodes[id]
			node.Cluster = i
			if !seenTL[node.TimelineID] {
				seenTL[node.TimelineID] = true
				c.TimelineIDs = append(c.TimelineIDs, node.TimelineID)
			}
			if c.Central == "" || moreCentral(node, n.nodes[c.Central]) {
				c.Central = id
			}
		}
		sort.Strings(c.TimelineIDs)
		n.clusters = append(n.clusters, c)
	}
}

func moreCentral(a, b *NetworkNode) bool {
	if a.Centrality != b.Centrality {
		return a.Centrality > b.Centrality
	}
	if a.Degree != b.Degree {
		return a.Degree > b.Degree
	}
	return a.EventID < b.EventID
}

// Node returns the node for an event id.
func (n *Network) Node(eventID string) (NetworkNode, bool) {
	node, ok := n.nodes[eventID]
	if !ok {
		return NetworkNode{}, false
	}
	return *node, true
}

// Nodes returns all nodes sorted by event id.
func (n *Network) Nodes() []NetworkNode {
	out := make([]NetworkNode, 0, len(n.nodes))
	for _, node := range n.nodes {
		out = append(out, *node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

// Edges returns all edges sorted by (From, To).
func (n *Network) Edges() []NetworkEdge {
	out := make([]NetworkEdge, 0, len(n.edges))
	for _, e := range n.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Neighbors returns the ids of events directly linked to eventID, sorted.
func (n *Network) Neighbors(eventID string) []string {
	id, ok := n.idToNode[eventID]
	if !ok {
		return nil
	}
	var out []string
	it := n.g.From(id)
	for it.Next() {
		out = append(out, n.nodeToID[it.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// Clusters returns connected components, largest first.
func (n *Network) Clusters() []Cluster {
	return n.clusters
}

// Stats returns aggregate counts for the network.
func (n *Network) Stats() NetworkStats {
	s := NetworkStats{
		Nodes:    len(n.nodes),
		Edges:    len(n.edges),
		Clusters: len(n.clusters),
	}
	for _, e := range n.edges {
		for _, k := range e.Kinds {
			switch k {
			case EdgeParallel:
				s.ParallelEdges++
			case EdgeRelated:
				s.RelatedEdges++
			}
		}
	}
	for _, c := range n.clusters {
		if len(c.EventIDs) == 1 {
			s.Isolated++
		}
		if len(c.EventIDs) > s.LargestCluster {
			s.LargestCluster = len(c.EventIDs)
		}
	}
	if s.Nodes > 0 {
		s.AvgDegree = float64(2*s.Edges) / float64(s.Nodes)
	}
	return s
}

// Report is the JSON shape printed by cdv --robot-network.
type Report struct {
	Stats    NetworkStats  `json:"stats"`
	Nodes    []NetworkNode `json:"nodes"`
	Edges    []NetworkEdge `json:"edges"`
	Clusters []Cluster     `json:"clusters"`
}

// Report snapshots the network for serialization.
func (n *Network) Report() Report {
	return Report{
		Stats:    n.Stats(),
		Nodes:    n.Nodes(),
		Edges:    n.Edges(),
		Clusters: n.Clusters(),
	}
}
