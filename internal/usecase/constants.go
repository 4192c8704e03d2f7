package usecase

// Pipeline stage names, reported on failed results and metrics labels.
const (
	StageExtraction      = "extraction"
	StageStandardization = "standardization"
	StageRetrieval       = "retrieval"
	StageGeneration      = "generation"
	StageScoring         = "scoring"
)

// Default pipeline configuration values.
const (
	DefaultTopK                  = 3
	DefaultNeutralRetrievalScore = 0.5
	DefaultSimpleModePenalty     = 0.5
	DefaultAutoApproveThreshold  = 0.8
	DefaultReviewThreshold       = 0.6
)
