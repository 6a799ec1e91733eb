package memory

// Record is a single raw memory pulled from the source collection.
// Text is immutable once read; identity is the ID.
type Record struct {
	ID        string
	Text      string
	Agent     string
	Namespace string
	UserID    string
	CreatedAt int64 // milliseconds since epoch
	Embedding []float32
}

// ScoringMethod marks which scorer produced a ScoredRecord.
type ScoringMethod string

const (
	MethodRule ScoringMethod = "rule"
	MethodLLM  ScoringMethod = "llm"
)

// Category classifies a record. The set is closed; CategoryNoise is the
// sentinel meaning "discard".
type Category string

const (
	CategoryTradingWinPattern    Category = "trading_win_pattern"
	CategoryTradingLossLesson    Category = "trading_loss_lesson"
	CategoryMarketInsight        Category = "market_insight"
	CategorySystemRule           Category = "system_rule"
	CategoryTechnicalSolution    Category = "technical_solution"
	CategoryArchitectureDecision Category = "architecture_decision"
	CategoryGeneralKnowledge     Category = "general_knowledge"
	CategoryNoise                Category = "noise"
)

// AllCategories lists every member of the closed category set, noise last.
var AllCategories = []Category{
	CategoryTradingWinPattern,
	CategoryTradingLossLesson,
	CategoryMarketInsight,
	CategorySystemRule,
	CategoryTechnicalSolution,
	CategoryArchitectureDecision,
	CategoryGeneralKnowledge,
	CategoryNoise,
}

// KeepableCategories is the closed set minus the noise sentinel.
var KeepableCategories = AllCategories[:len(AllCategories)-1]

// ValidCategory reports whether c is a member of the closed set.
func ValidCategory(c Category) bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ScoredRecord is a Record after scoring. Score is always clamped to
// [0,100] and Category is always a member of the closed set.
type ScoredRecord struct {
	Record
	Score     int
	Category  Category
	Tags      []string
	Summary   string
	Method    ScoringMethod
	Reasoning string
}

// HasTag reports whether the record carries the given tag.
func (s *ScoredRecord) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ClampScore forces a score into the [0,100] range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// VectorGeometry describes a collection's vector configuration.
type VectorGeometry struct {
	Size     int
	Distance string
}

// DefaultGeometry is used when the source collection declares no vectors.
var DefaultGeometry = VectorGeometry{Size: 1536, Distance: "Cosine"}
