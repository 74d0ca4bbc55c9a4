// Package recoveryshares implements social recovery of an account's
// master key (MK) via Shamir's Secret Sharing over GF(2^8): split MK
// into n shares of which any k reconstruct it, so a user can recover
// their account by collecting shares from trusted contacts without
// ever storing MK whole anywhere but the account itself.
package recoveryshares

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// sharePrefix tags every share string with a format version.
const sharePrefix = "abc-mk-v1"

// mkLength is the fixed size of the master key these shares carry.
const mkLength = 32

// Split divides mk into n shares, requiring k shares to reconstruct it.
// n: total shares to generate; k: threshold required to reconstruct.
func Split(mk []byte, n, k int) ([]string, error) {
	if len(mk) != mkLength {
		return nil, fmt.Errorf("%w: got %d bytes", ErrWrongSecretLength, len(mk))
	}
	if k < 2 {
		return nil, ErrThresholdInvalid
	}
	if n < k {
		return nil, ErrSharesInsufficient
	}
	if n > 255 {
		return nil, ErrSharesExceedMax
	}

	// One random polynomial of degree k-1 per secret byte:
	// f_i(x) = mk[i] + a_1*x + ... + a_(k-1)*x^(k-1)
	coeffs, err := generateCoefficients(len(mk), k)
	if err != nil {
		return nil, err
	}
	return evaluatePolynomials(mk, coeffs, n, k)
}

func generateCoefficients(secretLen, k int) ([]byte, error) {
	numCoeffs := secretLen * (k - 1)
	coeffs := make([]byte, numCoeffs)
	if _, err := rand.Read(coeffs); err != nil {
		return nil, fmt.Errorf("failed to generate random coefficients: %w", err)
	}
	return coeffs, nil
}

func evaluatePolynomials(secret, coeffs []byte, n, k int) ([]string, error) {
	shares := make([]string, n)

	for x := 1; x <= n; x++ {
		shareValue := make([]byte, len(secret))
		xByte := byte(x)

		for i, secretByte := range secret {
			coeffStart := i * (k - 1)

			val := secretByte
			xPoly := xByte

			for j := 0; j < k-1; j++ {
				c := coeffs[coeffStart+j]
				term := gfMul(c, xPoly)
				val = gfAdd(val, term)

				if j < k-2 {
					xPoly = gfMul(xPoly, xByte)
				}
			}
			shareValue[i] = val
		}

		shares[x-1] = fmt.Sprintf("%s-%d-%d-%x", sharePrefix, k, x, shareValue)
	}

	return shares, nil
}

// Combine reconstructs the MK from a list of shares (§D.2). Requires at
// least k shares, where k is the threshold embedded in the shares.
func Combine(shareStrings []string) ([]byte, error) {
	if len(shareStrings) == 0 {
		return nil, ErrNoShares
	}

	uniqueShares, _, secretLen, err := parseAndValidateShares(shareStrings)
	if err != nil {
		return nil, err
	}

	secret, err := interpolateSecret(uniqueShares, secretLen)
	if err != nil {
		return nil, err
	}
	if len(secret) != mkLength {
		return nil, fmt.Errorf("%w: got %d bytes", ErrWrongSecretLength, len(secret))
	}
	return secret, nil
}

type parsedShare struct {
	x byte
	y []byte
}

func parseAndValidateShares(shareStrings []string) ([]parsedShare, int, int, error) {
	uniqueShares, firstThreshold, secretLen, err := processShares(shareStrings)
	if err != nil {
		return nil, 0, 0, err
	}

	if len(uniqueShares) < firstThreshold {
		return nil, 0, 0, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughUniqueShares, len(uniqueShares), firstThreshold)
	}

	return uniqueShares, firstThreshold, secretLen, nil
}

//nolint:gocognit // mirrors the threshold/length validation loop it's grounded on
func processShares(shareStrings []string) ([]parsedShare, int, int, error) {
	var firstThreshold int
	var secretLen int
	var uniqueShares []parsedShare
	usedIndices := make(map[byte]bool)

	for _, s := range shareStrings {
		p, k, err := parseShare(s)
		if err != nil {
			return nil, 0, 0, err
		}

		if len(uniqueShares) == 0 {
			firstThreshold = k
			secretLen = len(p.y)
		}

		if err := validateShare(p, k, firstThreshold, secretLen); err != nil {
			return nil, 0, 0, err
		}

		if usedIndices[p.x] {
			continue
		}

		usedIndices[p.x] = true
		uniqueShares = append(uniqueShares, p)

		if len(uniqueShares) == firstThreshold {
			break
		}
	}
	return uniqueShares, firstThreshold, secretLen, nil
}

func validateShare(p parsedShare, k, firstThreshold, secretLen int) error {
	if k != firstThreshold {
		return ErrThresholdMismatch
	}
	if len(p.y) != secretLen {
		return ErrLengthMismatch
	}
	return nil
}

func parseShare(s string) (parsedShare, int, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 6 {
		return parsedShare{}, 0, fmt.Errorf("%w: %s", ErrInvalidShareFormat, s)
	}

	if parts[0] != "abc" || parts[1] != "mk" || parts[2] != "v1" {
		return parsedShare{}, 0, fmt.Errorf("%w: %s", ErrUnsupportedVersion, s)
	}

	k, err := strconv.Atoi(parts[3])
	if err != nil {
		return parsedShare{}, 0, fmt.Errorf("%w: %s", ErrInvalidThreshold, s)
	}

	idx, err := strconv.Atoi(parts[4])
	if err != nil || idx < 1 || idx > 255 {
		return parsedShare{}, 0, fmt.Errorf("%w: %s", ErrInvalidIndex, s)
	}

	val, err := hex.DecodeString(parts[5])
	if err != nil {
		return parsedShare{}, 0, fmt.Errorf("%w: %s", ErrInvalidHex, s)
	}

	return parsedShare{x: byte(idx), y: val}, k, nil
}

func interpolateSecret(uniqueShares []parsedShare, secretLen int) ([]byte, error) {
	weights := make([]byte, len(uniqueShares))
	for i, sI := range uniqueShares {
		weight := byte(1)
		for j, sJ := range uniqueShares {
			if i == j {
				continue
			}
			top := sJ.x
			bottom := gfSub(sJ.x, sI.x)
			factor := gfDiv(top, bottom)
			weight = gfMul(weight, factor)
		}
		weights[i] = weight
	}

	secret := make([]byte, secretLen)
	for i := 0; i < secretLen; i++ {
		var val byte
		for j, s := range uniqueShares {
			term := gfMul(s.y[i], weights[j])
			val = gfAdd(val, term)
		}
		secret[i] = val
	}

	return secret, nil
}
