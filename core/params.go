// Package core provides parameter sets and validation for pqcore.
package core

import (
	"errors"
	"fmt"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/ring"
)

// PQTestParams shares the PQ-512 KEM and uses a 16-leaf OTS tree.
var PQTestParams = pqcore.Params{
	Level:       pqcore.PQTest,
	N:           ring.N,
	Q:           ring.Q,
	K:           2,
	Eta:         2,
	DU:          10,
	DV:          4,
	TreeHeight:  4,
	FailureLog2: -139,
}

// PQ512Params is the parameter set for NIST category 1.
var PQ512Params = pqcore.Params{
	Level:       pqcore.PQ512,
	N:           ring.N,
	Q:           ring.Q,
	K:           2,
	Eta:         2,
	DU:          10,
	DV:          4,
	TreeHeight:  10,
	FailureLog2: -139,
}

// PQ768Params is the parameter set for NIST category 3.
// Its KEM is the CPA layer of round-3 Kyber768.
var PQ768Params = pqcore.Params{
	Level:       pqcore.PQ768,
	N:           ring.N,
	Q:           ring.Q,
	K:           3,
	Eta:         2,
	DU:          10,
	DV:          4,
	TreeHeight:  10,
	FailureLog2: -164,
}

// PQ1024Params is the parameter set for NIST category 5.
var PQ1024Params = pqcore.Params{
	Level:       pqcore.PQ1024,
	N:           ring.N,
	Q:           ring.Q,
	K:           4,
	Eta:         2,
	DU:          11,
	DV:          5,
	TreeHeight:  12,
	FailureLog2: -174,
}

// Levels lists the supported security levels.
func Levels() []pqcore.SecurityLevel {
	return []pqcore.SecurityLevel{pqcore.PQTest, pqcore.PQ512, pqcore.PQ768, pqcore.PQ1024}
}

// GetParams returns the parameter set for the given security level.
func GetParams(level pqcore.SecurityLevel) (pqcore.Params, error) {
	switch level {
	case pqcore.PQTest:
		return PQTestParams, nil
	case pqcore.PQ512:
		return PQ512Params, nil
	case pqcore.PQ768:
		return PQ768Params, nil
	case pqcore.PQ1024:
		return PQ1024Params, nil
	default:
		return pqcore.Params{}, fmt.Errorf("unknown security level: %s", level)
	}
}

// MaxTreeHeight bounds OTS key generation time and memory.
const MaxTreeHeight = 20

// ValidateParams validates the parameter set for security and consistency.
func ValidateParams(params pqcore.Params) error {
	if params.N != ring.N {
		return fmt.Errorf("ring degree must be %d", ring.N)
	}
	if params.Q != ring.Q {
		return fmt.Errorf("modulus must be %d", ring.Q)
	}
	if !isPrime(params.Q) || (params.Q-1)%params.N != 0 {
		return errors.New("modulus must be a prime congruent to 1 mod n")
	}
	if params.K < 2 || params.K > 4 {
		return errors.New("module rank must be in [2, 4]")
	}
	if params.Eta != 2 && params.Eta != 3 {
		return errors.New("eta must be 2 or 3")
	}
	if params.DU < 1 || params.DU > 11 || params.DV < 1 || params.DV > 11 {
		return errors.New("compression widths must be in [1, 11]")
	}
	if params.DV >= params.DU {
		return errors.New("dv must be smaller than du")
	}
	if params.TreeHeight < 1 || params.TreeHeight > MaxTreeHeight {
		return fmt.Errorf("tree height must be in [1, %d]", MaxTreeHeight)
	}
	if params.FailureLog2 > -128 {
		return errors.New("decryption failure bound must be at most 2^-128")
	}
	return nil
}

// isPrime checks if a number is prime using a simple trial division.
// This is used for validating parameters, not for generating large primes.
func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
