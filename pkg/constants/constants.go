package constants

import "time"

// Application constants
const (
	// Application metadata
	AppName        = "sdc-server"
	AppDescription = "Microdata Privacy Risk & Anonymization Engine"
	AppVersion     = "0.1.0"

	// API constants
	APIVersion = "v1"
	APIPrefix  = "/api/v1"

	// Default configuration values
	DefaultPort            = 8080
	DefaultMetricsPort     = 9090
	DefaultHost            = "0.0.0.0"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxRequestSize  = 64 * 1024 * 1024 // 64MB

	// Callers wanting bounded latency cap the row count before invoking a transform.
	DefaultMaxRecords = 1000000

	// Storage defaults
	DefaultStorageTimeout = 10 * time.Second
	DefaultResultTTL      = 24 * time.Hour
	DefaultKeyPrefix      = "sdc"
	DefaultPostgresTable  = "sdc_operations"
)

// Risk model constants
const (
	// Journalist risk is this fraction of prosecutor risk.
	JournalistAttenuation = 0.4
	// Marketer risk is this multiple of prosecutor risk before the aggregate clamp.
	MarketerAmplification = 1.3

	DefaultKThreshold           = 5
	DefaultSampleSizePct        = 100.0
	DefaultPopulationMultiplier = 50.0
	MinPopulationSize           = 100000

	// Classes above these per-class risks count towards records at risk / matches.
	JournalistAtRiskThreshold = 0.2
	MarketerMatchThreshold    = 0.3

	// Risk level boundaries (inclusive lower bound).
	RiskHighThreshold   = 0.4
	RiskMediumThreshold = 0.2

	// Recommendation triggers (strict lower bound).
	RecommendCriticalProsecutor = 0.4
	RecommendModerateProsecutor = 0.2
	RecommendJournalist         = 0.3
	RecommendMarketer           = 0.25
	RecommendUniqueRatio        = 0.1
)

// Risk levels
const (
	RiskLevelLow    = "Low"
	RiskLevelMedium = "Medium"
	RiskLevelHigh   = "High"
)

// Utility level boundaries (inclusive lower bound) and labels
const (
	UtilityExcellentThreshold = 0.9
	UtilityGoodThreshold      = 0.75
	UtilityFairThreshold      = 0.5

	UtilityLevelExcellent = "Excellent"
	UtilityLevelGood      = "Good"
	UtilityLevelFair      = "Fair"
	UtilityLevelPoor      = "Poor"
)

// Anonymization defaults
const (
	DefaultKValue           = 5
	DefaultSuppressionLimit = 0.1
	DefaultEpsilon          = 1.0
	DefaultSensitivity      = 1.0
	DefaultLValue           = 2
	DefaultRecursiveC       = 3.0
	DefaultTValue           = 0.2
	DefaultTargetSizePct    = 100.0

	// Numeric quasi-identifiers are floored to a multiple of this when generalized.
	GeneralizationBucket = 10
	GeneralizedMarker    = "*"

	// Information loss reported by DP is DPLossCoefficient / epsilon, capped at 1.
	DPLossCoefficient = 0.1
	// Synthetic resampling reports a fixed information loss.
	SyntheticInformationLoss = 0.2
	// Multiplicative jitter bound applied to numeric fields by the sampler.
	SyntheticJitter = 0.1
)

// Privacy techniques
const (
	TechniqueKAnonymity          = "k-anonymity"
	TechniqueLDiversity          = "l-diversity"
	TechniqueTCloseness          = "t-closeness"
	TechniqueDifferentialPrivacy = "differential-privacy"
	TechniqueSyntheticData       = "synthetic-data"
)

// Noise mechanisms
const (
	MechanismLaplace       = "laplace"
	MechanismSecureLaplace = "secure-laplace"
)

// Synthetic data methods
const (
	SyntheticMethodResample = "resample"
)

// l-diversity models
const (
	DiversityDistinct  = "distinct"
	DiversityEntropy   = "entropy"
	DiversityRecursive = "recursive"
)

// Operation kinds recorded in metrics and the result store
const (
	OperationRiskAssessment = "risk-assessment"
	OperationUtility        = "utility-measurement"
)

// HTTP headers
const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderRequestID          = "X-Request-ID"
	HeaderCacheControl       = "Cache-Control"
)

// Content types
const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Storage backends
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
	StorageTypeS3       = "s3"
)

// Dataset formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// File extensions
const (
	ExtCSV  = ".csv"
	ExtJSON = ".json"
)
