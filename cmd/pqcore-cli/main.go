// Package main provides the pqcore-cli command line interface.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	pqcore "github.com/BackendStack21/pqcore-go"
	"github.com/BackendStack21/pqcore-go/core"
	"github.com/BackendStack21/pqcore-go/kem"
	"github.com/BackendStack21/pqcore-go/ots"
	"github.com/BackendStack21/pqcore-go/store"
	"github.com/BackendStack21/pqcore-go/utils"
)

const (
	version = "0.4.0"
	appName = "pqcore-cli"

	// MaxInputFileSize bounds every file the CLI reads.
	MaxInputFileSize = 100 * 1024 * 1024
)

var logger = utils.NewLogger(appName + ": ")

// OutputFormat represents the output format for serialization
type OutputFormat string

const (
	FormatHex    OutputFormat = "hex"
	FormatBase64 OutputFormat = "base64"
)

// CLIConfig holds CLI configuration
type CLIConfig struct {
	SecurityLevel pqcore.SecurityLevel
	LevelSet      bool
	OutputFormat  OutputFormat
	OutputFile    string
	InputFile     string
	StateDir      string
	Verbose       bool
	Timing        bool
}

// KEMKeyPairExport represents an exported KEM key pair
type KEMKeyPairExport struct {
	SecurityLevel string `json:"security_level"`
	PublicKey     string `json:"public_key"`
	SecretKey     string `json:"secret_key"`
	CreatedAt     string `json:"created_at"`
}

// EncapsulationExport represents an exported encapsulation result
type EncapsulationExport struct {
	SecurityLevel string `json:"security_level"`
	Ciphertext    string `json:"ciphertext"`
	SharedSecret  string `json:"shared_secret"`
}

// EncryptedExport represents an exported encrypted message
type EncryptedExport struct {
	SecurityLevel string `json:"security_level"`
	Ciphertext    string `json:"ciphertext"`
}

// OTSKeyExport is the public part of an OTS tree.
type OTSKeyExport struct {
	SecurityLevel string `json:"security_level"`
	Root          string `json:"root"`
	Capacity      uint32 `json:"capacity"`
	CreatedAt     string `json:"created_at"`
}

// SignatureExport represents an exported signature
type SignatureExport struct {
	SecurityLevel string `json:"security_level"`
	Message       string `json:"message"`
	Signature     string `json:"signature"`
	LeafIndex     uint32 `json:"leaf_index"`
	Remaining     uint32 `json:"remaining"`
}

// OTSStatusExport reports the signing state of a tree.
type OTSStatusExport struct {
	SecurityLevel string `json:"security_level"`
	Root          string `json:"root"`
	Status        string `json:"status"`
	NextIndex     uint32 `json:"next_index"`
	Capacity      uint32 `json:"capacity"`
	Remaining     uint32 `json:"remaining"`
}

// NoiseExport summarizes a noise measurement.
type NoiseExport struct {
	SecurityLevel string  `json:"security_level"`
	Trials        int     `json:"trials"`
	Threshold     int     `json:"threshold"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	MaxAbs        float64 `json:"max_abs"`
	Margin        float64 `json:"margin"`
	Failures      int     `json:"failures"`
	FailureLog2   int     `json:"failure_log2"`
	Report        string  `json:"report,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("pqcore library version %s\n", pqcore.Version)
	case "kem":
		handleKEM(os.Args[2:])
	case "ots":
		handleOTS(os.Args[2:])
	case "noise":
		handleNoise(os.Args[2:])
	case "benchmark":
		handleBenchmark(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - pqcore post-quantum KEM and OTS tree CLI

USAGE:
    %s <COMMAND> [OPTIONS]

COMMANDS:
    kem         Key Encapsulation Mechanism operations
    ots         One-time signature tree operations
    noise       Measure decryption noise and render a histogram report
    benchmark   Run performance benchmarks
    version     Show version information
    help        Show this help message

SECURITY LEVELS:
    test, 512, 768 (default), 1024

EXAMPLES:
    %s kem keygen --level 768 --output keypair.json
    %s kem encapsulate --public-key keypair.json --output encap.json
    %s kem decapsulate --secret-key keypair.json --ciphertext encap.json
    %s kem encrypt --public-key keypair.json --message "Hello World"
    %s ots keygen --level 512 --state-dir ./ots-state --output tree.json
    %s ots sign --state-dir ./ots-state --public-key tree.json --message "Document"
    %s ots verify --public-key tree.json --message "Document" --signature sig.json
    %s noise --level 768 --trials 200 --output noise.html
    %s benchmark --level 768 --iterations 10
`, appName, appName, appName, appName, appName, appName, appName, appName, appName, appName, appName)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// ============================================================================
// KEM Commands
// ============================================================================

func handleKEM(args []string) {
	if len(args) < 1 {
		printKEMUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	switch subcommand {
	case "keygen":
		kemKeygen(args[1:])
	case "encapsulate", "encap":
		kemEncapsulate(args[1:])
	case "decapsulate", "decap":
		kemDecapsulate(args[1:])
	case "encrypt", "enc":
		kemEncrypt(args[1:])
	case "decrypt", "dec":
		kemDecrypt(args[1:])
	case "help", "--help", "-h":
		printKEMUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown KEM subcommand: %s\n", subcommand)
		printKEMUsage()
		os.Exit(1)
	}
}

func printKEMUsage() {
	fmt.Printf(`%s kem - Key Encapsulation Mechanism operations

USAGE:
    %s kem <SUBCOMMAND> [OPTIONS]

SUBCOMMANDS:
    keygen          Generate a new KEM key pair
    encapsulate     Encapsulate (create shared secret and ciphertext)
    decapsulate     Decapsulate (recover shared secret from ciphertext)
    encrypt         Encrypt a message (KEM + XChaCha20-Poly1305)
    decrypt         Decrypt a message
    help            Show this help message

OPTIONS:
    --level <test|512|768|1024>  Security level (default: from key file, else 768)
    --seed <hex>                 Deterministic key generation seed (32 bytes)
    --message-seed <hex>         Deterministic encapsulation message (32 bytes)
    --output <file>              Output file (default: stdout)
    --format <hex|base64>        Output encoding (default: base64)
    --timing                     Show timing information
    --verbose                    Verbose output
`, appName, appName)
}

func kemKeygen(args []string) {
	config := parseConfig(args)
	params := mustParams(config.SecurityLevel)

	start := time.Now()
	var kp *pqcore.KeyPair
	var err error
	if seedHex := getArg(args, "--seed", "-s"); seedHex != "" {
		kp, err = kem.GenerateKeyPairFromSeed(params, mustHex32(seedHex, "--seed"))
	} else {
		kp, err = kem.GenerateKeyPair(config.SecurityLevel)
	}
	elapsed := time.Since(start)
	if err != nil {
		fatalf("generating key pair: %v", err)
	}
	defer kem.Destroy(kp)

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Key generation took: %v\n", elapsed)
	}

	export := KEMKeyPairExport{
		SecurityLevel: string(params.Level),
		PublicKey:     encodeBytes(kp.PublicKey, config.OutputFormat),
		SecretKey:     encodeBytes(kp.SecretKey, config.OutputFormat),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(export, config.OutputFile)

	if config.Verbose {
		logger.Printf("generated %s key pair: public key %d bytes, secret key %d bytes",
			params.Level, len(kp.PublicKey), len(kp.SecretKey))
	}
}

func kemEncapsulate(args []string) {
	config := parseConfig(args)
	pkFile := getArg(args, "--public-key", "-pk")
	if pkFile == "" {
		fatalf("--public-key is required")
	}
	params := resolveParams(config, pkFile)

	pk, err := loadKeyFromFile(pkFile, "public_key")
	if err != nil {
		fatalf("loading public key: %v", err)
	}

	start := time.Now()
	var result *pqcore.EncapsulationResult
	if mHex := getArg(args, "--message-seed", "-ms"); mHex != "" {
		result, err = kem.EncapsulateDeterministic(params, pk, mustHex32(mHex, "--message-seed"))
	} else {
		result, err = kem.Encapsulate(params, pk)
	}
	elapsed := time.Since(start)
	if err != nil {
		fatalf("encapsulating: %v", err)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Encapsulation took: %v\n", elapsed)
	}

	writeJSON(EncapsulationExport{
		SecurityLevel: string(params.Level),
		Ciphertext:    encodeBytes(result.Ciphertext, config.OutputFormat),
		SharedSecret:  encodeBytes(result.SharedSecret, config.OutputFormat),
	}, config.OutputFile)

	if config.Verbose {
		logger.Printf("ciphertext %d bytes, shared secret %d bytes", len(result.Ciphertext), len(result.SharedSecret))
	}
}

func kemDecapsulate(args []string) {
	config := parseConfig(args)
	skFile := getArg(args, "--secret-key", "-sk")
	ctFile := getArg(args, "--ciphertext", "-ct")
	if skFile == "" || ctFile == "" {
		fatalf("--secret-key and --ciphertext are required")
	}
	params := resolveParams(config, skFile, ctFile)

	sk, err := loadKeyFromFile(skFile, "secret_key")
	if err != nil {
		fatalf("loading secret key: %v", err)
	}
	defer utils.Zeroize(sk)
	ct, err := loadKeyFromFile(ctFile, "ciphertext")
	if err != nil {
		fatalf("loading ciphertext: %v", err)
	}

	start := time.Now()
	ss, err := kem.Decapsulate(params, sk, ct)
	elapsed := time.Since(start)
	if err != nil {
		fatalf("decapsulating: %v", err)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Decapsulation took: %v\n", elapsed)
	}

	writeJSON(map[string]string{
		"shared_secret": encodeBytes(ss, config.OutputFormat),
	}, config.OutputFile)
}

func kemEncrypt(args []string) {
	config := parseConfig(args)
	pkFile := getArg(args, "--public-key", "-pk")
	if pkFile == "" {
		fatalf("--public-key is required")
	}
	params := resolveParams(config, pkFile)

	msg := readMessage(args)
	pk, err := loadKeyFromFile(pkFile, "public_key")
	if err != nil {
		fatalf("loading public key: %v", err)
	}

	start := time.Now()
	encrypted, err := kem.Encrypt(params, pk, msg)
	elapsed := time.Since(start)
	if err != nil {
		fatalf("encrypting: %v", err)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Encryption took: %v\n", elapsed)
	}

	encBytes := kem.SerializeEncryptedMessage(encrypted)
	writeJSON(EncryptedExport{
		SecurityLevel: string(params.Level),
		Ciphertext:    encodeBytes(encBytes, config.OutputFormat),
	}, config.OutputFile)

	if config.Verbose {
		logger.Printf("plaintext %d bytes, ciphertext %d bytes", len(msg), len(encBytes))
	}
}

func kemDecrypt(args []string) {
	config := parseConfig(args)
	skFile := getArg(args, "--secret-key", "-sk")
	ctFile := getArg(args, "--ciphertext", "-ct")
	if skFile == "" || ctFile == "" {
		fatalf("--secret-key and --ciphertext are required")
	}
	params := resolveParams(config, skFile, ctFile)

	sk, err := loadKeyFromFile(skFile, "secret_key")
	if err != nil {
		fatalf("loading secret key: %v", err)
	}
	defer utils.Zeroize(sk)
	data, err := loadKeyFromFile(ctFile, "ciphertext")
	if err != nil {
		fatalf("loading ciphertext: %v", err)
	}
	em, err := kem.DeserializeEncryptedMessage(params, data)
	if err != nil {
		fatalf("parsing ciphertext: %v", err)
	}

	start := time.Now()
	plaintext, err := kem.Decrypt(params, sk, em)
	elapsed := time.Since(start)
	if err != nil {
		fatalf("decrypting: %v", err)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Decryption took: %v\n", elapsed)
	}

	if config.OutputFile != "" {
		writeOutput(plaintext, config.OutputFile)
		return
	}
	fmt.Print(string(plaintext))
}

// ============================================================================
// OTS Commands
// ============================================================================

func handleOTS(args []string) {
	if len(args) < 1 {
		printOTSUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	switch subcommand {
	case "keygen":
		otsKeygen(args[1:])
	case "sign":
		otsSign(args[1:])
	case "verify":
		otsVerify(args[1:])
	case "status":
		otsStatus(args[1:])
	case "help", "--help", "-h":
		printOTSUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown OTS subcommand: %s\n", subcommand)
		printOTSUsage()
		os.Exit(1)
	}
}

func printOTSUsage() {
	fmt.Printf(`%s ots - One-time signature tree operations

Each tree signs at most 2^height messages. The signing state and the
leaf-index reservations live in a badger database under --state-dir.

USAGE:
    %s ots <SUBCOMMAND> [OPTIONS]

SUBCOMMANDS:
    keygen      Generate a tree and store its signing state
    sign        Sign a message with the next unused leaf
    verify      Verify a signature against a tree root
    status      Show how many signatures a tree has left
    help        Show this help message

OPTIONS:
    --level <test|512|768|1024>  Security level (default: from key file, else 768)
    --state-dir <dir>            Signing state database (keygen, sign, status)
    --public-key <file>          Tree file written by keygen
    --message <text>             Message (else --input <file>, else stdin)
    --signature <file>           Signature file written by sign
    --output <file>              Output file (default: stdout)
    --format <hex|base64>        Output encoding (default: base64)
`, appName, appName)
}

func openStateStore(config CLIConfig) *store.BadgerStore {
	if config.StateDir == "" {
		fatalf("--state-dir is required")
	}
	st, err := store.OpenBadger(store.BadgerConfig{Dir: config.StateDir, SyncWrites: true})
	if err != nil {
		fatalf("%v", err)
	}
	return st
}

func otsKeygen(args []string) {
	config := parseConfig(args)
	params := mustParams(config.SecurityLevel)
	db := openStateStore(config)
	defer db.Close()

	start := time.Now()
	var root []byte
	var state *ots.State
	var err error
	if seedHex := getArg(args, "--seed", "-s"); seedHex != "" {
		root, state, err = ots.Generate(params, mustHex32(seedHex, "--seed"), db)
	} else {
		root, state, err = ots.GenerateTree(params.Level, db)
	}
	elapsed := time.Since(start)
	if err != nil {
		fatalf("generating tree: %v", err)
	}
	defer state.Destroy()

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Tree generation took: %v\n", elapsed)
	}

	saveState(db, state)
	writeJSON(OTSKeyExport{
		SecurityLevel: string(params.Level),
		Root:          encodeBytes(root, config.OutputFormat),
		Capacity:      state.Capacity(),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}, config.OutputFile)

	if config.Verbose {
		logger.Printf("generated %s tree with %d leaves", params.Level, state.Capacity())
	}
}

// loadTree restores the signing state for the root named in --public-key.
func loadTree(args []string, config CLIConfig, db *store.BadgerStore) *ots.State {
	pkFile := getArg(args, "--public-key", "-pk")
	if pkFile == "" {
		fatalf("--public-key is required")
	}
	root, err := loadKeyFromFile(pkFile, "root")
	if err != nil {
		fatalf("loading root: %v", err)
	}
	data, err := db.LoadState(root)
	if err != nil {
		fatalf("no signing state for this root in %s: %v", config.StateDir, err)
	}
	state, err := ots.Restore(data, db)
	utils.Zeroize(data)
	if err != nil {
		fatalf("restoring signing state: %v", err)
	}
	return state
}

func saveState(db *store.BadgerStore, state *ots.State) {
	data, err := state.MarshalBinary()
	if err != nil {
		fatalf("serializing state: %v", err)
	}
	defer utils.Zeroize(data)
	if err := db.SaveState(state.Root(), data); err != nil {
		fatalf("saving state: %v", err)
	}
}

func otsSign(args []string) {
	config := parseConfig(args)
	db := openStateStore(config)
	defer db.Close()
	state := loadTree(args, config, db)
	defer state.Destroy()

	msg := readMessage(args)

	start := time.Now()
	sig, err := ots.Sign(state, msg)
	elapsed := time.Since(start)
	if err != nil {
		fatalf("signing: %v", err)
	}
	saveState(db, state)

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Signing took: %v\n", elapsed)
	}

	writeJSON(SignatureExport{
		SecurityLevel: string(state.Params().Level),
		Message:       base64.StdEncoding.EncodeToString(msg),
		Signature:     encodeBytes(ots.SerializeSignature(sig), config.OutputFormat),
		LeafIndex:     sig.LeafIndex,
		Remaining:     state.Remaining(),
	}, config.OutputFile)

	if config.Verbose {
		logger.Printf("signed with leaf %d, %d signatures left", sig.LeafIndex, state.Remaining())
	}
}

func otsVerify(args []string) {
	config := parseConfig(args)
	pkFile := getArg(args, "--public-key", "-pk")
	sigFile := getArg(args, "--signature", "-sig")
	if pkFile == "" || sigFile == "" {
		fatalf("--public-key and --signature are required")
	}
	params := resolveParams(config, pkFile, sigFile)

	root, err := loadKeyFromFile(pkFile, "root")
	if err != nil {
		fatalf("loading root: %v", err)
	}
	sigBytes, err := loadKeyFromFile(sigFile, "signature")
	if err != nil {
		fatalf("loading signature: %v", err)
	}
	sig, err := ots.DeserializeSignature(params, sigBytes)
	if err != nil {
		fatalf("parsing signature: %v", err)
	}
	msg := readMessage(args)

	start := time.Now()
	valid := ots.Verify(params, root, msg, sig)
	elapsed := time.Since(start)

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Verification took: %v\n", elapsed)
	}

	writeJSON(map[string]interface{}{
		"valid":      valid,
		"leaf_index": sig.LeafIndex,
	}, config.OutputFile)
	if !valid {
		os.Exit(1)
	}
}

func otsStatus(args []string) {
	config := parseConfig(args)
	db := openStateStore(config)
	defer db.Close()
	state := loadTree(args, config, db)
	defer state.Destroy()

	writeJSON(OTSStatusExport{
		SecurityLevel: string(state.Params().Level),
		Root:          encodeBytes(state.Root(), config.OutputFormat),
		Status:        state.Status().String(),
		NextIndex:     state.NextIndex(),
		Capacity:      state.Capacity(),
		Remaining:     state.Remaining(),
	}, config.OutputFile)
}

// ============================================================================
// Noise report
// ============================================================================

func handleNoise(args []string) {
	config := parseConfig(args)
	params := mustParams(config.SecurityLevel)
	trials := getIntArg(args, "--trials", "-n", 100)

	start := time.Now()
	profile, err := kem.MeasureNoise(params, trials, utils.RandReader)
	if err != nil {
		fatalf("measuring noise: %v", err)
	}
	if config.Timing {
		fmt.Fprintf(os.Stderr, "Noise measurement took: %v\n", time.Since(start))
	}

	export := NoiseExport{
		SecurityLevel: string(params.Level),
		Trials:        profile.Trials,
		Threshold:     profile.Threshold,
		Mean:          profile.Mean,
		StdDev:        profile.StdDev,
		MaxAbs:        profile.MaxAbs,
		Margin:        profile.Margin(),
		Failures:      profile.Failures,
		FailureLog2:   params.FailureLog2,
	}

	if config.OutputFile != "" {
		if err := renderNoiseReport(profile, config.OutputFile); err != nil {
			fatalf("writing report: %v", err)
		}
		export.Report = config.OutputFile
	}

	out, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		fatalf("marshaling output: %v", err)
	}
	fmt.Println(string(out))
}

func toBarItems(vals []float64) []opts.BarData {
	out := make([]opts.BarData, len(vals))
	for i, v := range vals {
		out[i] = opts.BarData{Value: v}
	}
	return out
}

func newBarChart(title, subtitle string, labels []string, series string, values []float64) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries(series, toBarItems(values)).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	return bar
}

// renderNoiseReport writes an HTML page with the coefficient noise histogram
// and the worst coefficient of every trial.
func renderNoiseReport(p *kem.NoiseProfile, path string) error {
	labels := make([]string, len(p.HistogramCounts))
	for i := range labels {
		labels[i] = fmt.Sprintf("%.0f", 0.5*(p.HistogramEdges[i]+p.HistogramEdges[i+1]))
	}
	subtitle := fmt.Sprintf("trials=%d, mean=%.3f, std=%.3f, max|e|=%.0f, threshold=%d, failures=%d",
		p.Trials, p.Mean, p.StdDev, p.MaxAbs, p.Threshold, p.Failures)

	trialLabels := make([]string, len(p.TrialMaxAbs))
	for i := range trialLabels {
		trialLabels[i] = strconv.Itoa(i)
	}

	page := components.NewPage()
	page.AddCharts(
		newBarChart(string(p.Level)+" coefficient noise", subtitle, labels, "count", p.HistogramCounts),
		newBarChart(string(p.Level)+" worst coefficient per trial",
			fmt.Sprintf("margin to q/4: %.1f%%", 100*p.Margin()), trialLabels, "max |e|", p.TrialMaxAbs),
	)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

// ============================================================================
// Benchmark
// ============================================================================

func timeIt(iterations int, fn func() error) time.Duration {
	var total time.Duration
	for i := 0; i < iterations; i++ {
		start := time.Now()
		err := fn()
		total += time.Since(start)
		if err != nil {
			fatalf("%v", err)
		}
	}
	return total / time.Duration(iterations)
}

func handleBenchmark(args []string) {
	config := parseConfig(args)
	params := mustParams(config.SecurityLevel)
	iterations := getIntArg(args, "--iterations", "-n", 10)
	if iterations < 1 {
		iterations = 1
	}

	fmt.Printf("pqcore Benchmark Results\n")
	fmt.Printf("========================\n")
	fmt.Printf("Security Level: %s\n", params.Level)
	fmt.Printf("Iterations: %d\n\n", iterations)

	fmt.Println("Key Encapsulation Mechanism (KEM)")
	fmt.Println("---------------------------------")

	var kp *pqcore.KeyPair
	fmt.Printf("  KeyGen:      %v (avg)\n", timeIt(iterations, func() (err error) {
		kp, err = kem.GenerateKeyPair(params.Level)
		return err
	}))

	var res *pqcore.EncapsulationResult
	fmt.Printf("  Encapsulate: %v (avg)\n", timeIt(iterations, func() (err error) {
		res, err = kem.Encapsulate(params, kp.PublicKey)
		return err
	}))

	fmt.Printf("  Decapsulate: %v (avg)\n", timeIt(iterations, func() error {
		_, err := kem.Decapsulate(params, kp.SecretKey, res.Ciphertext)
		return err
	}))

	testMessage := bytes.Repeat([]byte("Hello, pqcore!"), 10)
	var encrypted *pqcore.EncryptedMessage
	fmt.Printf("  Encrypt:     %v (avg)\n", timeIt(iterations, func() (err error) {
		encrypted, err = kem.Encrypt(params, kp.PublicKey, testMessage)
		return err
	}))
	fmt.Printf("  Decrypt:     %v (avg)\n", timeIt(iterations, func() error {
		_, err := kem.Decrypt(params, kp.SecretKey, encrypted)
		return err
	}))

	fmt.Println()
	fmt.Println("One-Time Signature Tree")
	fmt.Println("-----------------------")

	var root []byte
	var state *ots.State
	fmt.Printf("  TreeGen:     %v (avg, %d leaves)\n", timeIt(iterations, func() (err error) {
		root, state, err = ots.GenerateTree(params.Level, store.NewMemoryStore())
		return err
	}), params.OTSCapacity())

	signs := iterations
	if uint32(signs) > state.Capacity() {
		signs = int(state.Capacity())
	}
	var sig *pqcore.Signature
	fmt.Printf("  Sign:        %v (avg)\n", timeIt(signs, func() (err error) {
		sig, err = ots.Sign(state, testMessage)
		return err
	}))
	fmt.Printf("  Verify:      %v (avg)\n", timeIt(iterations, func() error {
		if !ots.Verify(params, root, testMessage, sig) {
			return fmt.Errorf("verify failed")
		}
		return nil
	}))

	fmt.Println()
	fmt.Println("Benchmark complete!")
}

// ============================================================================
// Utility Functions
// ============================================================================

func parseLevel(level string) (pqcore.SecurityLevel, error) {
	switch strings.ToUpper(level) {
	case "TEST", "PQ-TEST", "PQ_TEST":
		return pqcore.PQTest, nil
	case "512", "PQ-512", "PQ_512":
		return pqcore.PQ512, nil
	case "768", "PQ-768", "PQ_768":
		return pqcore.PQ768, nil
	case "1024", "PQ-1024", "PQ_1024":
		return pqcore.PQ1024, nil
	}
	return "", fmt.Errorf("invalid security level '%s'. Must be one of: test, 512, 768, 1024", level)
}

func parseConfig(args []string) CLIConfig {
	config := CLIConfig{
		SecurityLevel: pqcore.PQ768,
		OutputFormat:  FormatBase64,
	}

	if level := getArg(args, "--level", "-l"); level != "" {
		l, err := parseLevel(level)
		if err != nil {
			fatalf("%v", err)
		}
		config.SecurityLevel = l
		config.LevelSet = true
	}

	format := getArg(args, "--format", "-f")
	switch format {
	case "hex":
		config.OutputFormat = FormatHex
	case "base64", "":
	default:
		fatalf("invalid format '%s'. Must be one of: hex, base64", format)
	}

	config.OutputFile = getArg(args, "--output", "-o")
	config.InputFile = getArg(args, "--input", "-i")
	config.StateDir = getArg(args, "--state-dir", "-d")
	config.Verbose = hasFlag(args, "--verbose", "-v")
	if config.Verbose {
		utils.SetDebug(true)
	}
	config.Timing = hasFlag(args, "--timing", "-t")

	return config
}

func getArg(args []string, long, short string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == long || args[i] == short {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, long, short string) bool {
	for _, arg := range args {
		if arg == long || arg == short {
			return true
		}
	}
	return false
}

func getIntArg(args []string, long, short string, def int) int {
	s := getArg(args, long, short)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		fatalf("invalid value for %s: %v", long, err)
	}
	return n
}

func mustParams(level pqcore.SecurityLevel) pqcore.Params {
	params, err := core.GetParams(level)
	if err != nil {
		fatalf("%v", err)
	}
	return params
}

// resolveParams uses --level when given, else the security_level recorded in
// the first of files that has one.
func resolveParams(config CLIConfig, files ...string) pqcore.Params {
	if config.LevelSet {
		return mustParams(config.SecurityLevel)
	}
	for _, f := range files {
		if level := levelFromFile(f); level != "" {
			l, err := parseLevel(level)
			if err != nil {
				fatalf("%s: %v", f, err)
			}
			return mustParams(l)
		}
	}
	return mustParams(config.SecurityLevel)
}

func levelFromFile(filename string) string {
	data, err := readFileLimited(filename)
	if err != nil {
		return ""
	}
	var v struct {
		SecurityLevel string `json:"security_level"`
	}
	if json.Unmarshal(data, &v) != nil {
		return ""
	}
	return v.SecurityLevel
}

func mustHex32(s, flag string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		fatalf("invalid %s hex: %v", flag, err)
	}
	if len(b) != 32 {
		fatalf("%s must be exactly 32 bytes", flag)
	}
	return b
}

// readMessage takes the message from --message, --input or stdin, in that order.
func readMessage(args []string) []byte {
	if message := getArg(args, "--message", "-m"); message != "" {
		return []byte(message)
	}
	if inputFile := getArg(args, "--input", "-i"); inputFile != "" {
		data, err := readFileLimited(inputFile)
		if err != nil {
			fatalf("reading input file: %v", err)
		}
		return data
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, MaxInputFileSize))
	if err != nil {
		fatalf("reading from stdin: %v", err)
	}
	return data
}

func encodeBytes(data []byte, format OutputFormat) string {
	switch format {
	case FormatHex:
		return hex.EncodeToString(data)
	default:
		return base64.StdEncoding.EncodeToString(data)
	}
}

func decodeString(s string) ([]byte, error) {
	// Hex first: every hex string is also valid base64.
	if data, err := hex.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return nil, fmt.Errorf("unable to decode string")
}

func readFileLimited(filename string) ([]byte, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > MaxInputFileSize {
		return nil, fmt.Errorf("input file too large: %d > %d bytes", info.Size(), MaxInputFileSize)
	}
	return os.ReadFile(filename)
}

// loadKeyFromFile reads keyField from a JSON export, or the whole file as a
// hex or base64 string.
func loadKeyFromFile(filename, keyField string) ([]byte, error) {
	data, err := readFileLimited(filename)
	if err != nil {
		return nil, err
	}

	var jsonData map[string]interface{}
	if err := json.Unmarshal(data, &jsonData); err == nil {
		if val, ok := jsonData[keyField].(string); ok {
			return decodeString(val)
		}
		return nil, fmt.Errorf("%s: no %q field", filename, keyField)
	}

	return decodeString(strings.TrimSpace(string(data)))
}

func writeJSON(v interface{}, filename string) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("marshaling output: %v", err)
	}
	writeOutput(output, filename)
}

func writeOutput(data []byte, filename string) {
	if filename == "" {
		fmt.Println(string(data))
		return
	}
	// 0600: outputs may hold secret keys.
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		fatalf("creating output file: %v", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		fatalf("writing output file: %v", err)
	}
	if err := os.Chmod(filename, 0600); err != nil {
		fatalf("setting file permissions: %v", err)
	}
}
