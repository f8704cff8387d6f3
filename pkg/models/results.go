package models

import "time"

// EquivalenceClassSummary describes one equivalence class without its member
// records.
type EquivalenceClassSummary struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
	Size   int      `json:"size"`
	Risk   float64  `json:"risk"`
}

// AttackRisk is the report of one adversary model.
type AttackRisk struct {
	Model         string    `json:"model"`
	Risk          float64   `json:"risk"`
	Level         string    `json:"level"`
	PerClass      []float64 `json:"per_class"`
	MaxRisk       float64   `json:"max_risk"`
	UniqueClasses int       `json:"unique_classes"`
	Violations    int       `json:"violations"`
}

// JournalistRisk extends AttackRisk with the population estimates used to
// contextualize the score.
type JournalistRisk struct {
	AttackRisk
	PopulationSize             int `json:"population_size"`
	SampledRecords             int `json:"sampled_records"`
	EstimatedPopulationUniques int `json:"estimated_population_uniques"`
	RecordsAtRisk              int `json:"records_at_risk"`
}

// MarketerRisk extends AttackRisk with the expected number of bulk matches.
type MarketerRisk struct {
	AttackRisk
	SuccessfulMatches int `json:"successful_matches"`
}

// RiskHistogram buckets equivalence classes by size.
type RiskHistogram struct {
	Unique int `json:"1"`
	Small  int `json:"2-4"`
	Medium int `json:"5-10"`
	Large  int `json:"gt10"`
}

// RiskMetrics is the output of a risk assessment.
type RiskMetrics struct {
	OperationID      string    `json:"operation_id,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
	QuasiIdentifiers []string  `json:"quasi_identifiers"`
	KThreshold       int       `json:"k_threshold"`
	TotalRecords     int       `json:"total_records"`

	ProsecutorRisk float64 `json:"prosecutor_risk"`
	JournalistRisk float64 `json:"journalist_risk"`
	MarketerRisk   float64 `json:"marketer_risk"`
	RiskLevel      string  `json:"risk_level"`

	Prosecutor AttackRisk     `json:"prosecutor"`
	Journalist JournalistRisk `json:"journalist"`
	Marketer   MarketerRisk   `json:"marketer"`

	EquivalenceClasses []EquivalenceClassSummary `json:"equivalence_classes"`
	UniqueRecords      int                       `json:"unique_records"`
	SmallGroups        int                       `json:"small_groups"`
	ViolatingClasses   int                       `json:"violating_classes"`
	ViolatingRecords   int                       `json:"violating_records"`
	Histogram          RiskHistogram             `json:"histogram"`
	Recommendations    []string                  `json:"recommendations"`
}

// AnonymizationResult is the immutable artifact of one transform.
type AnonymizationResult struct {
	OperationID        string                 `json:"operation_id,omitempty"`
	CreatedAt          time.Time              `json:"created_at,omitempty"`
	Technique          string                 `json:"technique"`
	Dataset            *Dataset               `json:"dataset"`
	OriginalRecords    int                    `json:"original_records"`
	RecordsSuppressed  int                    `json:"records_suppressed"`
	RecordsGeneralized int                    `json:"records_generalized"`
	InformationLoss    float64                `json:"information_loss"`
	Compliant          bool                   `json:"compliant"`
	NoiseScale         float64                `json:"noise_scale,omitempty"`
	MaxDistance        float64                `json:"max_distance,omitempty"`
	Parameters         map[string]interface{} `json:"parameters"`
}

// ColumnUtility is the mean preservation of a single numeric column.
type ColumnUtility struct {
	Column        string  `json:"column"`
	OriginalMean  float64 `json:"original_mean"`
	ProcessedMean float64 `json:"processed_mean"`
	Preservation  float64 `json:"preservation"`
}

// UtilityMeasurement compares an original dataset with a transformed one.
type UtilityMeasurement struct {
	OperationID             string          `json:"operation_id,omitempty"`
	CreatedAt               time.Time       `json:"created_at,omitempty"`
	SourceOperationID       string          `json:"source_operation_id,omitempty"`
	OverallUtility          float64         `json:"overall_utility"`
	UtilityLevel            string          `json:"utility_level"`
	StatisticalSimilarity   float64         `json:"statistical_similarity"`
	CorrelationPreservation float64         `json:"correlation_preservation"`
	DistributionSimilarity  float64         `json:"distribution_similarity"`
	InformationLoss         float64         `json:"information_loss"`
	Columns                 []ColumnUtility `json:"columns"`
}

// OperationKind names what an Operation holds.
type OperationKind string

const (
	OperationKindRisk          OperationKind = "risk"
	OperationKindAnonymization OperationKind = "anonymization"
	OperationKindUtility       OperationKind = "utility"
)

// Operation is the envelope persisted by result stores.
type Operation struct {
	ID            string               `json:"id"`
	Kind          OperationKind        `json:"kind"`
	CreatedAt     time.Time            `json:"created_at"`
	Risk          *RiskMetrics         `json:"risk,omitempty"`
	Anonymization *AnonymizationResult `json:"anonymization,omitempty"`
	Utility       *UtilityMeasurement  `json:"utility,omitempty"`
}

// NewRiskOperation wraps risk metrics in an Operation.
func NewRiskOperation(m *RiskMetrics) *Operation {
	return &Operation{ID: m.OperationID, Kind: OperationKindRisk, CreatedAt: m.CreatedAt, Risk: m}
}

// NewAnonymizationOperation wraps an anonymization result in an Operation.
func NewAnonymizationOperation(r *AnonymizationResult) *Operation {
	return &Operation{ID: r.OperationID, Kind: OperationKindAnonymization, CreatedAt: r.CreatedAt, Anonymization: r}
}

// NewUtilityOperation wraps a utility measurement in an Operation.
func NewUtilityOperation(u *UtilityMeasurement) *Operation {
	return &Operation{ID: u.OperationID, Kind: OperationKindUtility, CreatedAt: u.CreatedAt, Utility: u}
}

// Technique returns the anonymization technique, or the operation kind for
// non-anonymization operations.
func (o *Operation) Technique() string {
	if o.Anonymization != nil {
		return o.Anonymization.Technique
	}
	return string(o.Kind)
}
