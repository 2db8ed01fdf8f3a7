package services

import (
	"path"
	"sort"
	"strings"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

// MatcherService assigns curated media to scenes using keyword-overlap
// scoring.
type MatcherService struct{}

// NewMatcherService creates a new matcher service
func NewMatcherService() *MatcherService {
	return &MatcherService{}
}

// Match returns the best candidate for a scene. When no candidate
// scores above zero, the first available asset is used as a fallback.
// An empty candidate set returns ok=false; that alone is not an error,
// only total absence of media for a scene is, and the quality gate
// catches it.
func (m *MatcherService) Match(scene models.Scene, candidates []models.MediaAsset) (models.MediaAsset, bool) {
	if len(candidates) == 0 {
		return models.MediaAsset{}, false
	}
	ranked := m.Rank(scene, candidates)
	best := ranked[0]
	if m.Score(scene, best) == 0 {
		return candidates[0], true
	}
	return best, true
}

// Rank orders candidates best-first: higher keyword overlap, then
// higher curation relevance, then original list position. The sort is
// stable so equal candidates keep their input order.
func (m *MatcherService) Rank(scene models.Scene, candidates []models.MediaAsset) []models.MediaAsset {
	ranked := make([]models.MediaAsset, len(candidates))
	copy(ranked, candidates)

	scores := make(map[string]int, len(candidates))
	for _, asset := range candidates {
		scores[asset.StorageKey] = m.Score(scene, asset)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i].StorageKey], scores[ranked[j].StorageKey]
		if si != sj {
			return si > sj
		}
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	return ranked
}

// Score counts keyword overlaps between the scene's visual-requirement
// keywords and the asset's tags plus filename tokens. A
// case-insensitive substring match counts one point per keyword.
func (m *MatcherService) Score(scene models.Scene, asset models.MediaAsset) int {
	haystack := make([]string, 0, len(asset.Tags)+4)
	for _, tag := range asset.Tags {
		haystack = append(haystack, strings.ToLower(tag))
	}
	haystack = append(haystack, tokenizeKey(asset.StorageKey)...)

	score := 0
	for _, keyword := range scene.Visuals.Keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}
		for _, token := range haystack {
			if strings.Contains(token, kw) {
				score++
				break
			}
		}
	}
	return score
}

// tokenizeKey splits a storage key's filename into lowercase tokens.
func tokenizeKey(key string) []string {
	name := path.Base(key)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
}
