package clustering

import (
	"slices"
	"time"

	"TrendPipeline/internal/domain"
)

const (
	// MaxClusterKeywords caps the keyword union kept on a cluster.
	MaxClusterKeywords = 10
	// MaxEvidence caps the representative snapshots kept on a cluster.
	MaxEvidence = 12
)

// Engine groups window snapshots into topic cluster candidates.
type Engine struct {
	keywords KeywordOptions
}

// NewEngine builds an engine with the given keyword thresholds.
func NewEngine(opts KeywordOptions) *Engine {
	return &Engine{keywords: opts.withDefaults()}
}

// Group is the set of snapshots sharing one fingerprint.
type Group struct {
	Fingerprint string
	Title       string
	Keywords    []string
	Platforms   map[string]struct{}
	Items       []domain.TrendSnapshot
	Latest      time.Time

	bestRank   int
	keywordSet map[string]struct{}
}

func (g *Group) addKeywords(keywords []string) {
	for _, k := range keywords {
		if _, ok := g.keywordSet[k]; ok {
			continue
		}
		g.keywordSet[k] = struct{}{}
		g.Keywords = append(g.Keywords, k)
	}
}

// Fingerprint returns the stable identity of a title. ok is false when the
// title normalizes to nothing.
func (e *Engine) Fingerprint(title string) (fp string, ok bool) {
	return contentFingerprint(title)
}

// Group partitions snapshots by fingerprint, preserving first-seen order.
// Snapshots whose title has no fingerprint are dropped.
func (e *Engine) Group(snapshots []domain.TrendSnapshot) []*Group {
	byFingerprint := make(map[string]*Group, len(snapshots))
	ordered := make([]*Group, 0, len(snapshots))

	for _, snap := range snapshots {
		fp, ok := e.Fingerprint(snap.Title)
		if !ok {
			continue
		}
		g, ok := byFingerprint[fp]
		if !ok {
			g = &Group{
				Fingerprint: fp,
				Title:       snap.Title,
				Platforms:   map[string]struct{}{},
				Latest:      snap.CapturedAt,
				bestRank:    snap.Rank,
				keywordSet:  map[string]struct{}{},
			}
			byFingerprint[fp] = g
			ordered = append(ordered, g)
		}

		g.Platforms[snap.Platform] = struct{}{}
		g.addKeywords(ExtractKeywords(snap.Title, e.keywords))
		g.Items = append(g.Items, snap)

		if snap.CapturedAt.After(g.Latest) {
			g.Latest = snap.CapturedAt
		}
		if snap.Rank < g.bestRank {
			g.Title = snap.Title
			g.bestRank = snap.Rank
		}
	}

	return ordered
}

// Build groups and scores snapshots into cluster candidates for the window.
func (e *Engine) Build(snapshots []domain.TrendSnapshot, windowStart, windowEnd time.Time) []domain.TopicCluster {
	groups := e.Group(snapshots)
	clusters := make([]domain.TopicCluster, 0, len(groups))

	for _, g := range groups {
		resonance := len(g.Platforms)
		keywords := g.Keywords
		if len(keywords) > MaxClusterKeywords {
			keywords = keywords[:MaxClusterKeywords]
		}

		clusters = append(clusters, domain.TopicCluster{
			Fingerprint:      g.Fingerprint,
			Title:            g.Title,
			Keywords:         append([]string(nil), keywords...),
			Evidence:         toEvidence(g.Items),
			ResonanceCount:   resonance,
			GrowthScore:      BlendGrowth(GrowthScore(g.Items), MomentumScore(g.Items)),
			PersistenceScore: PersistenceScore(len(g.Items), resonance),
			LatestSnapshotAt: g.Latest,
			WindowStart:      windowStart,
			WindowEnd:        windowEnd,
		})
	}

	return clusters
}

// toEvidence keeps the MaxEvidence most recent snapshots, newest first.
func toEvidence(items []domain.TrendSnapshot) []domain.Evidence {
	recent := slices.Clone(items)
	slices.SortStableFunc(recent, func(a, b domain.TrendSnapshot) int {
		return b.CapturedAt.Compare(a.CapturedAt)
	})
	n := min(len(recent), MaxEvidence)
	out := make([]domain.Evidence, 0, n)
	for _, item := range recent[:n] {
		out = append(out, domain.Evidence{
			Platform:   item.Platform,
			Title:      item.Title,
			URL:        item.URL,
			Rank:       item.Rank,
			HeatValue:  item.HeatValue,
			CapturedAt: item.CapturedAt,
		})
	}
	return out
}
