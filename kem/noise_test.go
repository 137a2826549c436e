package kem

import (
	"testing"

	"golang.org/x/crypto/sha3"

	"github.com/BackendStack21/pqcore-go/core"
)

func deterministicReader(label string) *sha3ShakeReader {
	h := sha3.NewShake256()
	h.Write([]byte(label))
	return &sha3ShakeReader{h}
}

type sha3ShakeReader struct{ sha3.ShakeHash }

func TestMeasureNoise(t *testing.T) {
	for _, params := range []struct {
		name   string
		trials int
	}{{"PQ-TEST", 200}, {"PQ-1024", 50}} {
		p := core.PQTestParams
		if params.name == "PQ-1024" {
			p = core.PQ1024Params
		}
		profile, err := MeasureNoise(p, params.trials, deterministicReader(params.name))
		if err != nil {
			t.Fatalf("MeasureNoise failed: %v", err)
		}
		if profile.Failures != 0 {
			t.Fatalf("%s: %d decryption failures", params.name, profile.Failures)
		}
		if profile.MaxAbs >= float64(profile.Threshold) || profile.Margin() <= 0 {
			t.Fatalf("%s: max noise %.0f reaches threshold %d", params.name, profile.MaxAbs, profile.Threshold)
		}
		if len(profile.TrialMaxAbs) != params.trials {
			t.Fatalf("%s: %d trial maxima", params.name, len(profile.TrialMaxAbs))
		}
		if profile.Mean > 10 || profile.Mean < -10 || profile.StdDev <= 0 {
			t.Fatalf("%s: implausible noise mean %.2f std %.2f", params.name, profile.Mean, profile.StdDev)
		}
	}

	if _, err := MeasureNoise(core.PQTestParams, 0, deterministicReader("x")); err == nil {
		t.Fatal("MeasureNoise accepted zero trials")
	}
	if _, err := MeasureNoise(core.PQTestParams, 1, errorReader{}); err == nil {
		t.Fatal("MeasureNoise ignored a reader error")
	}
}
