package kem

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/codec"
	"github.com/BackendStack21/pqcore-go/ring"
	"github.com/BackendStack21/pqcore-go/utils"
)

// NoiseProfile summarizes the decryption noise observed over many
// encapsulations. Decryption of a coefficient fails only if its noise
// reaches Threshold in absolute value.
type NoiseProfile struct {
	Level     pqcore.SecurityLevel `json:"level"`
	Trials    int                  `json:"trials"`
	Threshold int                  `json:"threshold"`
	Mean      float64              `json:"mean"`
	StdDev    float64              `json:"std_dev"`
	MaxAbs    float64              `json:"max_abs"`
	Failures  int                  `json:"failures"`

	// TrialMaxAbs holds the largest absolute coefficient noise of each trial.
	TrialMaxAbs []float64 `json:"trial_max_abs"`

	// Histogram of all coefficient noise values: HistogramCounts[i] counts
	// values in [HistogramEdges[i], HistogramEdges[i+1]).
	HistogramEdges  []float64 `json:"histogram_edges"`
	HistogramCounts []float64 `json:"histogram_counts"`
}

// NoiseHistogramBins is the number of histogram bins over the centered range.
const NoiseHistogramBins = 128

// Margin returns how far the worst observed noise stays below the threshold,
// as a fraction of the threshold.
func (p *NoiseProfile) Margin() float64 {
	return 1 - p.MaxAbs/float64(p.Threshold)
}

// MeasureNoise runs trials key generations and encapsulations with
// randomness from rand and records v - s.u - Decompress(m, 1) for every
// coefficient.
func MeasureNoise(params pqcore.Params, trials int, rand io.Reader) (*NoiseProfile, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("trials must be positive, got %d", trials)
	}
	profile := &NoiseProfile{
		Level:       params.Level,
		Trials:      trials,
		Threshold:   ring.Q / 4,
		TrialMaxAbs: make([]float64, 0, trials),
	}
	total, err := utils.SafeMultiply(trials, ring.N)
	if err != nil {
		return nil, fmt.Errorf("trials: %w", err)
	}
	all := make([]float64, 0, total)

	seed := make([]byte, pqcore.SeedSize)
	m := make([]byte, pqcore.SeedSize)
	for i := 0; i < trials; i++ {
		if _, err := io.ReadFull(rand, seed); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rand, m); err != nil {
			return nil, err
		}
		kp, err := GenerateKeyPairFromSeed(params, seed)
		if err != nil {
			return nil, err
		}
		res, err := EncapsulateDeterministic(params, kp.PublicKey, m)
		if err != nil {
			return nil, err
		}
		s, err := parseSecretKey(params, kp.SecretKey)
		if err != nil {
			return nil, err
		}
		ct, err := ParseCiphertext(params, res.Ciphertext)
		if err != nil {
			return nil, err
		}

		msg, _ := codec.Decode(m, 1)
		noise := ring.Sub(noisyMessage(s, ct, params), codec.Decompress(msg, 1))
		trialMax := 0.0
		for _, c := range noise {
			x := float64(ring.Centered(c))
			all = append(all, x)
			if x < 0 {
				x = -x
			}
			if x > trialMax {
				trialMax = x
			}
		}
		profile.TrialMaxAbs = append(profile.TrialMaxAbs, trialMax)

		if !bytes.Equal(decrypt(params, s, ct), m) {
			profile.Failures++
		}
		s.Zeroize()
		Destroy(kp)
	}

	profile.Mean, profile.StdDev = stat.MeanStdDev(all, nil)
	profile.MaxAbs = floats.Max(profile.TrialMaxAbs)

	sort.Float64s(all)
	profile.HistogramEdges = floats.Span(make([]float64, NoiseHistogramBins+1), -(ring.Q/2 + 1), ring.Q/2+1)
	profile.HistogramCounts = stat.Histogram(nil, profile.HistogramEdges, all, nil)
	return profile, nil
}
