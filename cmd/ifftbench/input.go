package main

import (
	"fmt"
	"math/rand/v2"
)

// constantSample is the value every sample of the "const" input holds.
const constantSample = complex64(complex(2.1327392395, 3.033729))

// generateInput returns samples spectrum values of the requested kind.
func generateInput(kind string, samples int, seed uint64) ([]complex64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("invalid sample count %d", samples)
	}
	data := make([]complex64, samples)
	switch kind {
	case "const":
		for i := range data {
			data[i] = constantSample
		}
	case "random":
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		for i := range data {
			data[i] = complex(float32(rng.Float64()*2-1), float32(rng.Float64()*2-1))
		}
	default:
		return nil, fmt.Errorf("unknown input %q (want const or random)", kind)
	}
	return data, nil
}
