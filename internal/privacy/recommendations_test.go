package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRecommendations(t *testing.T) {
	tests := []struct {
		name string
		in   RecommendationInput
		want []string
	}{
		{
			name: "acceptable",
			in:   RecommendationInput{ProsecutorRisk: 0.1, TotalRecords: 100, KThreshold: 5},
			want: []string{MsgAcceptable},
		},
		{
			name: "prosecutor at moderate boundary is not flagged",
			in:   RecommendationInput{ProsecutorRisk: 0.2, TotalRecords: 100, KThreshold: 5},
			want: []string{MsgAcceptable},
		},
		{
			name: "moderate prosecutor",
			in:   RecommendationInput{ProsecutorRisk: 0.21, TotalRecords: 100, KThreshold: 3},
			want: []string{MsgModerateProsecutor, "Action: Consider suppressing records with k-anonymity < 3"},
		},
		{
			name: "prosecutor at critical boundary stays moderate",
			in:   RecommendationInput{ProsecutorRisk: 0.4, TotalRecords: 100, KThreshold: 5},
			want: []string{MsgModerateProsecutor, "Action: Consider suppressing records with k-anonymity < 5"},
		},
		{
			name: "critical prosecutor",
			in:   RecommendationInput{ProsecutorRisk: 0.41, TotalRecords: 100, KThreshold: 5},
			want: []string{MsgCriticalProsecutor, MsgCriticalAction},
		},
		{
			name: "journalist",
			in:   RecommendationInput{JournalistRisk: 0.31, TotalRecords: 100, KThreshold: 5},
			want: []string{MsgJournalist},
		},
		{
			name: "journalist at boundary",
			in:   RecommendationInput{JournalistRisk: 0.3, TotalRecords: 100, KThreshold: 5},
			want: []string{MsgAcceptable},
		},
		{
			name: "marketer",
			in:   RecommendationInput{MarketerRisk: 0.26, TotalRecords: 100, KThreshold: 5},
			want: []string{MsgMarketer, MsgMarketerAction},
		},
		{
			name: "unique ratio at boundary",
			in:   RecommendationInput{UniqueRecords: 10, TotalRecords: 100, KThreshold: 5},
			want: []string{MsgAcceptable},
		},
		{
			name: "unique ratio",
			in:   RecommendationInput{UniqueRecords: 11, TotalRecords: 100, KThreshold: 5},
			want: []string{"High ratio of unique records (11/100)", MsgUniqueAction},
		},
		{
			name: "violations",
			in:   RecommendationInput{ViolatingClasses: 4, TotalRecords: 100, KThreshold: 7},
			want: []string{"4 groups violate k-anonymity (k=7)"},
		},
		{
			name: "everything",
			in: RecommendationInput{
				ProsecutorRisk:   0.9,
				JournalistRisk:   0.36,
				MarketerRisk:     1,
				UniqueRecords:    8,
				TotalRecords:     10,
				ViolatingClasses: 9,
				KThreshold:       2,
			},
			want: []string{
				MsgCriticalProsecutor, MsgCriticalAction,
				MsgJournalist,
				MsgMarketer, MsgMarketerAction,
				"High ratio of unique records (8/10)", MsgUniqueAction,
				"9 groups violate k-anonymity (k=2)",
			},
		},
		{
			name: "empty dataset",
			in:   RecommendationInput{KThreshold: 5},
			want: []string{MsgAcceptable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateRecommendations(tt.in))
		})
	}
}
