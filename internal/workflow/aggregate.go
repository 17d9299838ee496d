package workflow

import "paperflow_go_backend/internal/models"

// DimensionMeans holds per-dimension score means. A nil field means no
// completed review contributed to it.
type DimensionMeans struct {
	TechnicalQuality *float64 `json:"technical_quality"`
	Novelty          *float64 `json:"novelty"`
	Clarity          *float64 `json:"clarity"`
	Significance     *float64 `json:"significance"`
}

// ScoreSummary is the aggregate over a paper's completed reviews.
type ScoreSummary struct {
	CompletedReviews int                           `json:"completed_reviews"`
	AverageScore     *float64                      `json:"average_score"`
	Dimensions       DimensionMeans                `json:"dimensions"`
	Recommendations  map[models.Recommendation]int `json:"recommendations"`
}

// HasData reports whether at least one completed review was aggregated.
func (s ScoreSummary) HasData() bool {
	return s.CompletedReviews > 0
}

type mean struct {
	sum   int
	count int
}

func (m *mean) add(v *int) {
	if v == nil {
		return
	}
	m.sum += *v
	m.count++
}

func (m mean) value() *float64 {
	if m.count == 0 {
		return nil
	}
	v := float64(m.sum) / float64(m.count)
	return &v
}

// Aggregate summarises the completed reviews in reviews. Incomplete reviews
// are ignored. Every recommendation is present in the histogram, at zero when
// no review carries it.
func Aggregate(reviews []models.Review) ScoreSummary {
	summary := ScoreSummary{
		Recommendations: make(map[models.Recommendation]int, len(models.AllRecommendations)),
	}
	for _, rec := range models.AllRecommendations {
		summary.Recommendations[rec] = 0
	}

	var overall, technical, novelty, clarity, significance mean
	for i := range reviews {
		r := &reviews[i]
		if !r.IsCompleted {
			continue
		}
		summary.CompletedReviews++
		overall.add(r.OverallScore)
		technical.add(r.TechnicalQuality)
		novelty.add(r.Novelty)
		clarity.add(r.Clarity)
		significance.add(r.Significance)
		if r.Recommendation != nil {
			summary.Recommendations[*r.Recommendation]++
		}
	}

	summary.AverageScore = overall.value()
	summary.Dimensions = DimensionMeans{
		TechnicalQuality: technical.value(),
		Novelty:          novelty.value(),
		Clarity:          clarity.value(),
		Significance:     significance.value(),
	}
	return summary
}
