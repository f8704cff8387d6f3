package privacy

import (
	"fmt"

	"github.com/inferloop/sdc/pkg/constants"
)

// RecommendationInput carries the aggregate scores guidance is derived from.
type RecommendationInput struct {
	ProsecutorRisk   float64
	JournalistRisk   float64
	MarketerRisk     float64
	UniqueRecords    int
	TotalRecords     int
	ViolatingClasses int
	KThreshold       int
}

// Recommendation messages.
const (
	MsgCriticalProsecutor = "CRITICAL: High prosecutor attack risk. Too many unique/small records."
	MsgCriticalAction     = "Action: Increase k-threshold or apply aggressive suppression"
	MsgModerateProsecutor = "WARNING: Moderate prosecutor attack risk detected."
	MsgJournalist         = "Journalist attack risk is elevated. Consider sampling restrictions."
	MsgMarketer           = "Marketer bulk targeting risk is significant."
	MsgMarketerAction     = "Action: Apply L-Diversity or T-Closeness to sensitive attributes"
	MsgUniqueAction       = "Consider L-Diversity or synthetic data generation"
	MsgAcceptable         = "Risk levels are acceptable. Data appears well-protected."
)

// GenerateRecommendations maps risk scores to guidance strings. It always
// returns at least one message.
func GenerateRecommendations(in RecommendationInput) []string {
	var recs []string

	switch {
	case in.ProsecutorRisk > constants.RecommendCriticalProsecutor:
		recs = append(recs, MsgCriticalProsecutor, MsgCriticalAction)
	case in.ProsecutorRisk > constants.RecommendModerateProsecutor:
		recs = append(recs, MsgModerateProsecutor,
			fmt.Sprintf("Action: Consider suppressing records with k-anonymity < %d", in.KThreshold))
	}

	if in.JournalistRisk > constants.RecommendJournalist {
		recs = append(recs, MsgJournalist)
	}

	if in.MarketerRisk > constants.RecommendMarketer {
		recs = append(recs, MsgMarketer, MsgMarketerAction)
	}

	if float64(in.UniqueRecords) > float64(in.TotalRecords)*constants.RecommendUniqueRatio {
		recs = append(recs,
			fmt.Sprintf("High ratio of unique records (%d/%d)", in.UniqueRecords, in.TotalRecords),
			MsgUniqueAction)
	}

	if in.ViolatingClasses > 0 {
		recs = append(recs, fmt.Sprintf("%d groups violate k-anonymity (k=%d)", in.ViolatingClasses, in.KThreshold))
	}

	if len(recs) == 0 {
		recs = append(recs, MsgAcceptable)
	}
	return recs
}
