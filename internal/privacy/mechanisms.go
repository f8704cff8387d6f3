package privacy

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/differential-privacy/go/v2/noise"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inferloop/sdc/pkg/constants"
)

// NoiseMechanism perturbs a single value under an epsilon budget.
type NoiseMechanism interface {
	Name() string
	AddNoise(value, sensitivity, epsilon float64) (float64, error)
}

// LaplaceMechanism draws Laplace noise by inverse-CDF sampling from a
// uniform variate.
type LaplaceMechanism struct {
	mu         sync.Mutex
	randSource *rand.Rand
}

// NewLaplaceMechanism uses randSource for uniform variates; nil seeds from
// the clock.
func NewLaplaceMechanism(randSource *rand.Rand) *LaplaceMechanism {
	if randSource == nil {
		randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &LaplaceMechanism{randSource: randSource}
}

func (lm *LaplaceMechanism) Name() string {
	return constants.MechanismLaplace
}

func (lm *LaplaceMechanism) AddNoise(value, sensitivity, epsilon float64) (float64, error) {
	if epsilon <= 0 {
		return 0, fmt.Errorf("epsilon must be positive, got %f", epsilon)
	}
	if sensitivity < 0 {
		return 0, fmt.Errorf("sensitivity must be non-negative, got %f", sensitivity)
	}

	laplace := distuv.Laplace{Mu: 0, Scale: NoiseScale(sensitivity, epsilon)}
	return value + laplace.Quantile(lm.uniform()), nil
}

// uniform returns a variate in the open interval (0, 1).
func (lm *LaplaceMechanism) uniform() float64 {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for {
		if u := lm.randSource.Float64(); u > 0 {
			return u
		}
	}
}

// SecureLaplaceMechanism delegates to the Google differential privacy
// library, which samples from a discretized Laplace resistant to floating
// point attacks.
type SecureLaplaceMechanism struct {
	noise noise.Noise
}

func NewSecureLaplaceMechanism() *SecureLaplaceMechanism {
	return &SecureLaplaceMechanism{noise: noise.Laplace()}
}

func (sm *SecureLaplaceMechanism) Name() string {
	return constants.MechanismSecureLaplace
}

func (sm *SecureLaplaceMechanism) AddNoise(value, sensitivity, epsilon float64) (float64, error) {
	// One contribution per record, bounded by sensitivity.
	return sm.noise.AddNoiseFloat64(value, 1, sensitivity, epsilon, 0)
}

// NoiseScale is the Laplace scale b = sensitivity / epsilon.
func NoiseScale(sensitivity, epsilon float64) float64 {
	return sensitivity / epsilon
}
