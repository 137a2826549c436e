package pqcore

// Version of the pqcore Go implementation.
const Version = "0.4.0"

// API summary:
//
// Key Encapsulation (KEM):
//   - kem.GenerateKeyPair(level) - Generate a key pair for the given security level
//   - kem.GenerateKeyPairFromSeed(params, seed) - Deterministic key generation
//   - kem.Encapsulate(params, pk) - Generate shared secret and ciphertext
//   - kem.Decapsulate(params, sk, ct) - Recover shared secret from ciphertext
//   - kem.Encrypt(params, pk, plaintext) - Encrypt a message (KEM+DEM)
//   - kem.Decrypt(params, sk, encrypted) - Decrypt an encrypted message
//   - kem.NewScheme(params) - circl kem.Scheme adapter
//
// One-time signature tree (OTS):
//   - ots.GenerateTree(level, store) - Build a tree from a fresh random seed
//   - ots.Generate(params, seed, store) - Build a tree, returns root and signing state
//   - ots.Sign(state, message) - Sign with the next unused leaf
//   - ots.Verify(params, root, message, signature) - Verify against the root
//   - ots.Restore(data, store) - Resume from State.MarshalBinary output
//   - store.OpenBadger(cfg) - Durable leaf-index reservations
//
// Parameters:
//   - core.GetParams(level) - Get parameters for security level
//   - PQ512, PQ768, PQ1024 - NIST categories 1, 3 and 5
//   - PQTest - small tree for tests
