package privacy

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
	"github.com/inferloop/sdc/pkg/models"
)

// classAction is the fate of an equivalence class under a transform.
type classAction int

const (
	actionKeep classAction = iota
	actionSuppress
	actionGeneralize
)

// ctxCheckInterval is how many classes or rows are processed between
// cancellation checks.
const ctxCheckInterval = 256

// suppressionBudget tracks how many records may still be dropped. The first
// class that does not fit exhausts the budget for every later class.
type suppressionBudget struct {
	remaining int
	exhausted bool
}

func newSuppressionBudget(limit float64, n int) *suppressionBudget {
	return &suppressionBudget{remaining: int(math.Floor(limit * float64(n)))}
}

func (b *suppressionBudget) take(size int) bool {
	if b.exhausted || size > b.remaining {
		b.exhausted = true
		return false
	}
	b.remaining -= size
	return true
}

func validateSuppressionLimit(limit float64) error {
	if math.IsNaN(limit) || limit < 0 || limit > 1 {
		return errors.InvalidArgument(errors.ErrInvalidSuppression, errors.CodeInvalidSuppression,
			fmt.Sprintf("suppression limit must be in [0, 1], got %g", limit))
	}
	return nil
}

func validateQuasiIdentifiers(qis []string) error {
	if len(qis) == 0 {
		return errors.InvalidArgument(errors.ErrEmptyQuasiIdentifiers, errors.CodeEmptyQuasiIdentifiers,
			"at least one quasi-identifier is required")
	}
	return nil
}

// generalizeValue coarsens a quasi-identifier value. Numbers are floored to a
// multiple of ten and everything else becomes the wildcard marker.
func generalizeValue(v interface{}) interface{} {
	if f, ok := models.IsNumeric(v); ok {
		return math.Floor(f/constants.GeneralizationBucket) * constants.GeneralizationBucket
	}
	return constants.GeneralizedMarker
}

func generalizeRecord(record models.Record, quasiIdentifiers []string) models.Record {
	out := record.Clone()
	for _, qi := range quasiIdentifiers {
		out[qi] = generalizeValue(record[qi])
	}
	return out
}

// maskRecord replaces every quasi-identifier with the wildcard marker so all
// masked records fall into a single class.
func maskRecord(record models.Record, quasiIdentifiers []string) models.Record {
	out := record.Clone()
	for _, qi := range quasiIdentifiers {
		out[qi] = constants.GeneralizedMarker
	}
	return out
}

// applyActions rebuilds the record list in original row order.
func applyActions(ctx context.Context, ds *models.Dataset, quasiIdentifiers []string,
	actions map[string]classAction, generalize func(models.Record, []string) models.Record) ([]models.Record, error) {

	out := make([]models.Record, 0, ds.Len())
	for i, record := range ds.Records {
		if i%ctxCheckInterval == 0 {
			if err := checkContext(ctx); err != nil {
				return nil, err
			}
		}

		key := strings.Join(quasiIdentifierValues(record, quasiIdentifiers), keySeparator)
		switch actions[key] {
		case actionSuppress:
			continue
		case actionGeneralize:
			out = append(out, generalize(record, quasiIdentifiers))
		default:
			out = append(out, record.Clone())
		}
	}
	return out, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeCancelled, errors.CodeCancelled, "operation cancelled")
	}
	return nil
}

func informationLoss(suppressed, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(suppressed) / float64(n)
}

func isGeneralizedClass(class *EquivalenceClass) bool {
	for _, v := range class.Values {
		if v == constants.GeneralizedMarker {
			return true
		}
	}
	return false
}
