package scout

import (
	"math"
	"sort"

	"github.com/colonyforge/core/internal/honeycomb"
)

// Feature value range assumed for the default feature set (complexity,
// risk, urgency): a 1-5 Swarming Protocol score.
const (
	featureMin = 1.0
	featureMax = 5.0
)

// featureDefault substitutes for an absent feature key — the midpoint of
// the assumed range, used for cold-start/incomplete feature vectors.
var featureDefault = (featureMin + featureMax) / 2.0

var defaultFeatureKeys = []string{"complexity", "risk", "urgency"}

// EpisodeMatcher finds episodes whose task features are similar to a
// target vector, using normalized Euclidean distance.
type EpisodeMatcher struct {
	featureKeys []string
}

// NewEpisodeMatcher constructs an EpisodeMatcher over the default feature
// key set (complexity, risk, urgency).
func NewEpisodeMatcher() *EpisodeMatcher {
	return &EpisodeMatcher{featureKeys: defaultFeatureKeys}
}

// NewEpisodeMatcherWithKeys constructs an EpisodeMatcher over a custom
// feature key set.
func NewEpisodeMatcherWithKeys(keys []string) *EpisodeMatcher {
	return &EpisodeMatcher{featureKeys: keys}
}

func (m *EpisodeMatcher) similarity(target, candidate map[string]float64) float64 {
	squaredSum := 0.0
	for _, key := range m.featureKeys {
		t, ok := target[key]
		if !ok {
			t = featureDefault
		}
		c, ok := candidate[key]
		if !ok {
			c = featureDefault
		}
		diff := t - c
		squaredSum += diff * diff
	}

	distance := math.Sqrt(squaredSum)
	span := featureMax - featureMin
	maxDistance := span * math.Sqrt(float64(len(m.featureKeys)))
	if maxDistance == 0 {
		return 1.0
	}
	return math.Max(0.0, 1.0-distance/maxDistance)
}

// FindSimilar scores every episode against targetFeatures, keeps those at
// or above minSimilarity, and returns the topK most similar in descending
// order of similarity.
func (m *EpisodeMatcher) FindSimilar(
	targetFeatures map[string]float64,
	episodes []honeycomb.Episode,
	topK int,
	minSimilarity float64,
) []SimilarEpisode {
	if len(episodes) == 0 {
		return nil
	}

	scored := make([]SimilarEpisode, 0, len(episodes))
	for _, ep := range episodes {
		sim := m.similarity(targetFeatures, ep.TaskFeatures)
		if sim >= minSimilarity {
			scored = append(scored, SimilarEpisode{Episode: ep, Similarity: sim})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
