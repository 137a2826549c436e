package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Helper types for unmarshaling JSON responses
type keyPairExport struct {
	SecurityLevel string `json:"security_level"`
	PublicKey     string `json:"public_key"`
	SecretKey     string `json:"secret_key"`
}

type encapsulationExport struct {
	Ciphertext   string `json:"ciphertext"`
	SharedSecret string `json:"shared_secret"`
}

type signatureExport struct {
	Signature string `json:"signature"`
	LeafIndex uint32 `json:"leaf_index"`
	Remaining uint32 `json:"remaining"`
}

type statusExport struct {
	Status    string `json:"status"`
	NextIndex uint32 `json:"next_index"`
	Capacity  uint32 `json:"capacity"`
}

// runCLI executes the pqcore-cli via `go run ./cmd/pqcore-cli` from the repository root.
func runCLI(t *testing.T, timeout time.Duration, args ...string) (stdout string, stderr string, err error) {
	return runCLIWithStdin(t, timeout, "", args...)
}

func runCLIWithStdin(t *testing.T, timeout time.Duration, stdin string, args ...string) (stdout string, stderr string, err error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmdArgs := append([]string{"run", "./cmd/pqcore-cli"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmd.Dir = filepath.Join("..", "..")
	cmd.Stdin = strings.NewReader(stdin)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := runCLI(t, 60*time.Second, args...)
	if err != nil {
		t.Fatalf("%s failed: %v, stderr: %s", strings.Join(args, " "), err, stderr)
	}
	return stdout
}

func readJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
}

func TestHelpAndVersion(t *testing.T) {
	stdout := mustRun(t, "help")
	if !strings.Contains(stdout, "pqcore-cli - pqcore") {
		t.Fatalf("help output does not contain expected header, got: %s", stdout)
	}

	stdout = mustRun(t, "version")
	if !strings.Contains(stdout, "version") {
		t.Fatalf("version output unexpected: %s", stdout)
	}
}

func TestKEMEncapsulateDecapsulate(t *testing.T) {
	dir := t.TempDir()
	kpFile := filepath.Join(dir, "kem_kp.json")
	encapFile := filepath.Join(dir, "encap.json")

	mustRun(t, "kem", "keygen", "--level", "test", "--output", kpFile)
	var kp keyPairExport
	readJSON(t, kpFile, &kp)
	if kp.SecurityLevel != "PQ-TEST" {
		t.Fatalf("security level = %q", kp.SecurityLevel)
	}

	// The level is taken from the key file.
	mustRun(t, "kem", "encapsulate", "--public-key", kpFile, "--output", encapFile)
	var encap encapsulationExport
	readJSON(t, encapFile, &encap)

	stdout := mustRun(t, "kem", "decapsulate", "--secret-key", kpFile, "--ciphertext", encapFile)
	var res map[string]string
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decapsulate output is not JSON: %v, out: %s", err, stdout)
	}
	if res["shared_secret"] != encap.SharedSecret {
		t.Fatalf("shared secrets differ: %s vs %s", res["shared_secret"], encap.SharedSecret)
	}
}

func TestKEMDeterministic(t *testing.T) {
	dir := t.TempDir()
	seed := strings.Repeat("00", 32)
	kp1 := filepath.Join(dir, "kp1.json")
	kp2 := filepath.Join(dir, "kp2.json")

	mustRun(t, "kem", "keygen", "--level", "test", "--seed", seed, "--format", "hex", "--output", kp1)
	mustRun(t, "kem", "keygen", "--level", "test", "--seed", seed, "--format", "hex", "--output", kp2)
	var a, b keyPairExport
	readJSON(t, kp1, &a)
	readJSON(t, kp2, &b)
	if a.PublicKey != b.PublicKey || a.SecretKey != b.SecretKey {
		t.Fatal("seeded keygen is not deterministic")
	}
	if len(a.PublicKey) != 2*800 {
		t.Fatalf("hex public key has %d chars", len(a.PublicKey))
	}

	out1 := mustRun(t, "kem", "encap", "--public-key", kp1, "--message-seed", seed)
	out2 := mustRun(t, "kem", "encap", "--public-key", kp1, "--message-seed", seed)
	if out1 != out2 {
		t.Fatal("deterministic encapsulation differs")
	}
}

func TestKEMKeygenEncryptDecrypt(t *testing.T) {
	dir := t.TempDir()
	kpFile := filepath.Join(dir, "kem_kp.json")
	ctFile := filepath.Join(dir, "kem_ct.json")
	message := "Hello pqcore"

	mustRun(t, "kem", "keygen", "--level", "768", "--output", kpFile)
	mustRun(t, "kem", "encrypt", "--public-key", kpFile, "--message", message, "--output", ctFile)

	stdout := mustRun(t, "kem", "decrypt", "--secret-key", kpFile, "--ciphertext", ctFile)
	if out := strings.TrimSpace(stdout); out != message {
		t.Fatalf("decrypted message mismatch: expected %q got %q", message, out)
	}
}

func TestKEMEncryptStdinMessage(t *testing.T) {
	dir := t.TempDir()
	kpFile := filepath.Join(dir, "kem_kp.json")
	ctFile := filepath.Join(dir, "kem_ct.json")
	message := "message from stdin"

	mustRun(t, "kem", "keygen", "--level", "512", "--output", kpFile)
	if _, stderr, err := runCLIWithStdin(t, 60*time.Second, message, "kem", "encrypt", "--public-key", kpFile, "--output", ctFile); err != nil {
		t.Fatalf("kem encrypt from stdin failed: %v, stderr: %s", err, stderr)
	}
	stdout := mustRun(t, "kem", "decrypt", "--secret-key", kpFile, "--ciphertext", ctFile)
	if strings.TrimSpace(stdout) != message {
		t.Fatalf("decrypted %q", stdout)
	}
}

func TestOTSKeygenSignVerify(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")
	treeFile := filepath.Join(dir, "tree.json")
	sigFile := filepath.Join(dir, "sig.json")
	message := "A signed message"

	mustRun(t, "ots", "keygen", "--level", "test", "--state-dir", stateDir, "--output", treeFile)
	mustRun(t, "ots", "sign", "--state-dir", stateDir, "--public-key", treeFile, "--message", message, "--output", sigFile)

	var sig signatureExport
	readJSON(t, sigFile, &sig)
	if sig.LeafIndex != 0 || sig.Remaining != 15 {
		t.Fatalf("first signature used leaf %d with %d remaining", sig.LeafIndex, sig.Remaining)
	}

	stdout := mustRun(t, "ots", "verify", "--public-key", treeFile, "--message", message, "--signature", sigFile)
	var res map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("unable to parse verify output as json: %v, out: %s", err, stdout)
	}
	if valid, _ := res["valid"].(bool); !valid {
		t.Fatalf("signature reported invalid: %v", res)
	}

	stdout, _, err := runCLI(t, 60*time.Second, "ots", "verify", "--public-key", treeFile, "--message", "other", "--signature", sigFile)
	if err == nil {
		t.Fatalf("verify of a different message succeeded: %s", stdout)
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil || res["valid"] != false {
		t.Fatalf("expected valid=false, got %s", stdout)
	}
}

func TestOTSStateSurvivesRestarts(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")
	treeFile := filepath.Join(dir, "tree.json")

	mustRun(t, "ots", "keygen", "--level", "test", "--state-dir", stateDir, "--output", treeFile)

	seen := make(map[uint32]bool)
	for i := 0; i < 16; i++ {
		stdout := mustRun(t, "ots", "sign", "--state-dir", stateDir, "--public-key", treeFile, "--message", "m")
		var sig signatureExport
		if err := json.Unmarshal([]byte(stdout), &sig); err != nil {
			t.Fatalf("sign output is not JSON: %v", err)
		}
		if seen[sig.LeafIndex] {
			t.Fatalf("leaf %d used twice", sig.LeafIndex)
		}
		seen[sig.LeafIndex] = true
	}

	_, stderr, err := runCLI(t, 60*time.Second, "ots", "sign", "--state-dir", stateDir, "--public-key", treeFile, "--message", "m")
	if err == nil || !strings.Contains(stderr, "exhausted") {
		t.Fatalf("expected exhaustion error, got %v, stderr: %s", err, stderr)
	}

	stdout := mustRun(t, "ots", "status", "--state-dir", stateDir, "--public-key", treeFile)
	var st statusExport
	if err := json.Unmarshal([]byte(stdout), &st); err != nil {
		t.Fatalf("status output is not JSON: %v", err)
	}
	if st.Status != "exhausted" || st.NextIndex != 16 || st.Capacity != 16 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestNoiseReport(t *testing.T) {
	report := filepath.Join(t.TempDir(), "noise.html")
	stdout := mustRun(t, "noise", "--level", "test", "--trials", "20", "--output", report)

	var res struct {
		Failures int     `json:"failures"`
		MaxAbs   float64 `json:"max_abs"`
		Report   string  `json:"report"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("noise output is not JSON: %v, out: %s", err, stdout)
	}
	if res.Failures != 0 || res.MaxAbs <= 0 || res.Report != report {
		t.Fatalf("unexpected noise summary: %s", stdout)
	}
	html, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(html), "coefficient noise") {
		t.Fatal("report does not contain the histogram")
	}
}

func TestBenchmarkCommand(t *testing.T) {
	benchOut := mustRun(t, "benchmark", "--level", "test", "--iterations", "2")
	for _, section := range []string{"KEM", "KeyGen", "Encapsulate", "Decapsulate", "Encrypt", "Decrypt", "TreeGen", "Sign", "Verify"} {
		if !strings.Contains(benchOut, section) {
			t.Fatalf("benchmark output missing expected section '%s': %s", section, benchOut)
		}
	}
}

func TestMissingRequiredFlag(t *testing.T) {
	if _, _, err := runCLI(t, 60*time.Second, "kem", "encrypt", "--message", "test"); err == nil {
		t.Fatal("expected encrypt without public-key to fail, but it succeeded")
	}
	if _, _, err := runCLI(t, 60*time.Second, "ots", "keygen", "--level", "test"); err == nil {
		t.Fatal("expected ots keygen without state-dir to fail, but it succeeded")
	}
}

func TestInvalidSecurityLevel(t *testing.T) {
	_, stderr, err := runCLI(t, 60*time.Second, "kem", "keygen", "--level", "256")
	if err == nil {
		t.Fatal("CLI accepted security level 256")
	}
	if !strings.Contains(stderr, "invalid security level") {
		t.Fatalf("unexpected error output: %s", stderr)
	}
}
