package core

import (
	"testing"

	pqcore "github.com/BackendStack21/pqcore-go"
)

func TestGetParams(t *testing.T) {
	for _, level := range Levels() {
		params, err := GetParams(level)
		if err != nil {
			t.Fatalf("GetParams(%s) failed: %v", level, err)
		}
		if params.Level != level {
			t.Errorf("Expected %s, got %s", level, params.Level)
		}
		if err := ValidateParams(params); err != nil {
			t.Errorf("ValidateParams(%s) failed: %v", level, err)
		}
	}

	if _, err := GetParams("INVALID"); err == nil {
		t.Error("GetParams(INVALID) should fail")
	}
}

func TestSizes(t *testing.T) {
	cases := []struct {
		params             pqcore.Params
		pk, sk, ct, sigLen int
		capacity           uint32
	}{
		{PQTestParams, 800, 768, 768, 4 + 67*32 + 4*32, 16},
		{PQ512Params, 800, 768, 768, 4 + 67*32 + 10*32, 1024},
		{PQ768Params, 1184, 1152, 1088, 4 + 67*32 + 10*32, 1024},
		{PQ1024Params, 1568, 1536, 1568, 4 + 67*32 + 12*32, 4096},
	}
	for _, c := range cases {
		p := c.params
		if p.PublicKeySize() != c.pk || p.SecretKeySize() != c.sk || p.CiphertextSize() != c.ct {
			t.Errorf("%s: sizes pk=%d sk=%d ct=%d", p.Level, p.PublicKeySize(), p.SecretKeySize(), p.CiphertextSize())
		}
		if p.SignatureSize() != c.sigLen {
			t.Errorf("%s: signature size %d, want %d", p.Level, p.SignatureSize(), c.sigLen)
		}
		if p.OTSCapacity() != c.capacity {
			t.Errorf("%s: capacity %d, want %d", p.Level, p.OTSCapacity(), c.capacity)
		}
	}
}

func TestValidateParams(t *testing.T) {
	base := PQ768Params
	mutations := map[string]func(p *pqcore.Params){
		"n":            func(p *pqcore.Params) { p.N = 512 },
		"q":            func(p *pqcore.Params) { p.Q = 7681 },
		"k low":        func(p *pqcore.Params) { p.K = 1 },
		"k high":       func(p *pqcore.Params) { p.K = 5 },
		"eta":          func(p *pqcore.Params) { p.Eta = 4 },
		"du":           func(p *pqcore.Params) { p.DU = 12 },
		"dv zero":      func(p *pqcore.Params) { p.DV = 0 },
		"dv >= du":     func(p *pqcore.Params) { p.DV = p.DU },
		"height zero":  func(p *pqcore.Params) { p.TreeHeight = 0 },
		"height large": func(p *pqcore.Params) { p.TreeHeight = MaxTreeHeight + 1 },
		"failure":      func(p *pqcore.Params) { p.FailureLog2 = -100 },
	}
	for name, mutate := range mutations {
		p := base
		mutate(&p)
		if err := ValidateParams(p); err == nil {
			t.Errorf("ValidateParams should reject %s", name)
		}
	}
}

func TestIsPrime(t *testing.T) {
	primes := []int{2, 3, 5, 7, 3329, 7681, 12289}
	for _, p := range primes {
		if !isPrime(p) {
			t.Errorf("%d should be prime", p)
		}
	}
	composites := []int{-1, 0, 1, 4, 9, 3328, 3333}
	for _, c := range composites {
		if isPrime(c) {
			t.Errorf("%d should not be prime", c)
		}
	}
}
