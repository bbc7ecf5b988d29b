package auth

import "golang.org/x/crypto/bcrypt"

// VerificationResult reports the outcome of a password check.
type VerificationResult int

const (
	// VerificationFailed means the password does not match the hash, or
	// there is no hash to check against.
	VerificationFailed VerificationResult = iota
	// VerificationSuccess means the password matches the hash.
	VerificationSuccess
)

// PasswordHasher is the credential capability the services consume.
// Only hashes ever reach the store; plaintext passwords stay inside one
// request.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) VerificationResult
}

// BcryptHasher hashes passwords with bcrypt at a configurable cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher builds a hasher. Costs outside bcrypt's valid range
// fall back to the library default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify checks the password against the stored hash. An empty hash
// always fails.
func (h *BcryptHasher) Verify(hash, password string) VerificationResult {
	if hash == "" {
		return VerificationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return VerificationFailed
	}
	return VerificationSuccess
}
