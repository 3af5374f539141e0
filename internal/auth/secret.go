package auth

import "golang.org/x/crypto/bcrypt"

// HashSecret hashes a shared secret with the given bcrypt cost.
func HashSecret(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareSecret verifies a presented secret against its bcrypt hash.
func CompareSecret(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

func secretMatches(hashed, presented string) bool {
	if hashed == "" || presented == "" {
		return false
	}
	return CompareSecret(hashed, presented) == nil
}
