package ring

import (
	"math/rand"
	"testing"

	"github.com/kr/pretty"
)

func randomElement(rng *rand.Rand) Element {
	var e Element
	for i := range e {
		e[i] = uint16(rng.Intn(Q))
	}
	return e
}

func checkReduced(t *testing.T, name string, e Element) {
	t.Helper()
	for i, c := range e {
		if c >= Q {
			t.Fatalf("%s: coefficient %d = %d not reduced", name, i, c)
		}
	}
}

func TestAddSub(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 100; trial++ {
		a, b := randomElement(rng), randomElement(rng)
		sum := Add(a, b)
		checkReduced(t, "Add", sum)
		if Sub(sum, b) != a {
			t.Fatalf("Sub(Add(a, b), b) != a")
		}
		diff := Sub(a, b)
		checkReduced(t, "Sub", diff)
		if Add(diff, b) != a {
			t.Fatalf("Add(Sub(a, b), b) != a")
		}
	}

	var max Element
	for i := range max {
		max[i] = Q - 1
	}
	for i, c := range Add(max, max) {
		if c != Q-2 {
			t.Fatalf("Add(max, max)[%d] = %d, want %d", i, c, Q-2)
		}
	}
}

func TestMultiplyMatchesSchoolbook(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 20; trial++ {
		a, b := randomElement(rng), randomElement(rng)
		got := Multiply(a, b)
		want := MultiplySchoolbook(a, b)
		if got != want {
			t.Fatalf("Multiply != MultiplySchoolbook:\n%v", pretty.Diff(got, want))
		}
	}
}

func TestMultiplyNegacyclic(t *testing.T) {
	// X * X^255 = X^256 = -1
	var x, x255 Element
	x[1] = 1
	x255[255] = 1
	got := Multiply(x, x255)
	var want Element
	want[0] = Q - 1
	if got != want {
		t.Fatalf("X * X^255 != -1: %v", pretty.Diff(got, want))
	}

	var one Element
	one[0] = 1
	a := randomElement(rand.New(rand.NewSource(3)))
	if Multiply(a, one) != a {
		t.Fatal("multiplication by 1 is not the identity")
	}
}

func TestNTTRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for trial := 0; trial < 50; trial++ {
		a := randomElement(rng)
		hat := NTT(a)
		checkReduced(t, "NTT", hat)
		if InvNTT(hat) != a {
			t.Fatal("InvNTT(NTT(a)) != a")
		}
	}
}

func TestZetas(t *testing.T) {
	if zetas[0] != 1 || zetas[1] != 1729 || zetas[127] != 2154 {
		t.Fatalf("unexpected zeta table head/tail: %d %d %d", zetas[0], zetas[1], zetas[127])
	}
	if 128*nInv%Q != 1 {
		t.Fatal("nInv is not the inverse of 128")
	}
}

func TestDotProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, k := range []int{1, 2, 3, 4} {
		a, b := NewVector(k), NewVector(k)
		for i := 0; i < k; i++ {
			a[i], b[i] = randomElement(rng), randomElement(rng)
		}
		var want Element
		for i := 0; i < k; i++ {
			want = Add(want, MultiplySchoolbook(a[i], b[i]))
		}
		if got := DotProduct(a, b); got != want {
			t.Fatalf("k=%d: DotProduct mismatch: %v", k, pretty.Diff(got, want))
		}
	}
}

func TestMatrixVectorProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	const k = 3
	m := make([]Vector, k)
	for i := range m {
		m[i] = NewVector(k)
		for j := range m[i] {
			m[i][j] = randomElement(rng)
		}
	}
	v := NewVector(k)
	for i := range v {
		v[i] = randomElement(rng)
	}
	got := MatrixVectorProduct(m, v)
	for i := range m {
		if got[i] != DotProduct(m[i], v) {
			t.Fatalf("row %d mismatch", i)
		}
	}
}

func TestVectorLengthMismatchPanics(t *testing.T) {
	cases := map[string]func(){
		"DotProduct":    func() { DotProduct(NewVector(2), NewVector(3)) },
		"DotProductNTT": func() { DotProductNTT(NewVector(3), NewVector(2)) },
		"Add":           func() { NewVector(2).Add(NewVector(1)) },
	}
	for name, fn := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s did not panic on length mismatch", name)
				}
			}()
			fn()
		}()
	}
}

func TestCentered(t *testing.T) {
	cases := map[uint16]int16{0: 0, 1: 1, 1664: 1664, 1665: -1664, Q - 1: -1, Q - 2: -2}
	for in, want := range cases {
		if got := Centered(in); got != want {
			t.Errorf("Centered(%d) = %d, want %d", in, got, want)
		}
	}

	var c [N]int16
	c[0], c[1], c[2] = -2, 3, -1664
	e := FromCentered(c)
	if e[0] != Q-2 || e[1] != 3 || e[2] != Q-1664 {
		t.Fatalf("FromCentered gave %d %d %d", e[0], e[1], e[2])
	}
	for i := 0; i < 3; i++ {
		if Centered(e[i]) != c[i] {
			t.Errorf("Centered(FromCentered(%d)) = %d", c[i], Centered(e[i]))
		}
	}
}

func TestVectorZeroize(t *testing.T) {
	v := NewVector(2)
	v[0][0], v[1][255] = 7, 9
	v.Zeroize()
	if v[0] != (Element{}) || v[1] != (Element{}) {
		t.Fatal("Zeroize left data behind")
	}
}

func BenchmarkMultiply(b *testing.B) {
	rng := rand.New(rand.NewSource(7))
	x, y := randomElement(rng), randomElement(rng)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Multiply(x, y)
	}
}

func BenchmarkMultiplySchoolbook(b *testing.B) {
	rng := rand.New(rand.NewSource(8))
	x, y := randomElement(rng), randomElement(rng)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MultiplySchoolbook(x, y)
	}
}
