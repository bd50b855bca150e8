package screen

import (
	"math/rand/v2"
	"strconv"
)

const (
	MinCode = 100000
	MaxCode = 999999
)

// Code addresses this screen inside topic names. It is not a credential.
type Code int

// GenerateScreenCode returns a uniformly distributed code in [MinCode, MaxCode].
func GenerateScreenCode() Code {
	return Code(MinCode + rand.IntN(MaxCode-MinCode+1))
}

func (c Code) Int() int {
	return int(c)
}

func (c Code) String() string {
	return strconv.Itoa(int(c))
}

func (c Code) Valid() bool {
	return c >= MinCode && c <= MaxCode
}
