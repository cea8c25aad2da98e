package joincode

import (
	"math/rand/v2"
	"regexp"
	"strconv"
)

// Codes are 8-digit numeric strings in [10000000, 99999999], so a leading
// zero can never appear.
const (
	minCode = 10000000
	maxCode = 99999999
)

var codePattern = regexp.MustCompile(`^\d{8}$`)

// Generator produces join-code candidates. Uniqueness is not its concern:
// the caller checks each candidate against the issued codes and regenerates
// on collision.
type Generator interface {
	Generate() string
}

type randomGenerator struct{}

func NewRandomGenerator() Generator {
	return randomGenerator{}
}

func (randomGenerator) Generate() string {
	return strconv.FormatInt(minCode+rand.Int64N(maxCode-minCode+1), 10)
}

// Valid reports whether code is a well-formed join code.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}
