// Package neural provides the fixed-topology feedforward networks that act as
// shooting policies.
package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrTopology      = errors.New("invalid topology")
)

// Network is a bias-free feedforward network with sigmoid activations.
// Weight matrix i has shape (sizes[i], sizes[i+1]) and maps a row vector of
// layer i activations to layer i+1.
//
// Forward only reads the weights, so a network may be evaluated from many
// goroutines at once as long as nobody mutates it.
type Network struct {
	sizes   []int
	weights []*mat.Dense
}

// New creates a network with standard normal weights.
// sizes lists input, at least one hidden layer, and output.
func New(rng *rand.Rand, sizes []int) (*Network, error) {
	if err := checkSizes(sizes); err != nil {
		return nil, err
	}
	weights := make([]*mat.Dense, len(sizes)-1)
	for i := range weights {
		r, c := sizes[i], sizes[i+1]
		data := make([]float64, r*c)
		for j := range data {
			data[j] = rng.NormFloat64()
		}
		weights[i] = mat.NewDense(r, c, data)
	}
	return &Network{sizes: append([]int(nil), sizes...), weights: weights}, nil
}

// FromWeights wraps existing matrices, checking them against sizes.
// The network takes ownership of the matrices.
func FromWeights(sizes []int, weights []*mat.Dense) (*Network, error) {
	if err := checkSizes(sizes); err != nil {
		return nil, err
	}
	if len(weights) != len(sizes)-1 {
		return nil, fmt.Errorf("%w: %d weight matrices for %d layers", ErrTopology, len(weights), len(sizes))
	}
	for i, w := range weights {
		r, c := w.Dims()
		if r != sizes[i] || c != sizes[i+1] {
			return nil, fmt.Errorf("%w: matrix %d is %dx%d, want %dx%d",
				ErrTopology, i, r, c, sizes[i], sizes[i+1])
		}
	}
	return &Network{sizes: append([]int(nil), sizes...), weights: weights}, nil
}

func checkSizes(sizes []int) error {
	if len(sizes) < 3 {
		return fmt.Errorf("%w: %d layers, need input, hidden and output", ErrTopology, len(sizes))
	}
	for i, s := range sizes {
		if s <= 0 {
			return fmt.Errorf("%w: layer %d has size %d", ErrTopology, i, s)
		}
	}
	return nil
}

// LayerSizes returns a copy of the layer sizes.
func (n *Network) LayerSizes() []int {
	return append([]int(nil), n.sizes...)
}

// NumInputs is the input layer size.
func (n *Network) NumInputs() int { return n.sizes[0] }

// NumOutputs is the output layer size.
func (n *Network) NumOutputs() int { return n.sizes[len(n.sizes)-1] }

// Weights returns read-only views of the weight matrices.
func (n *Network) Weights() []mat.Matrix {
	out := make([]mat.Matrix, len(n.weights))
	for i, w := range n.weights {
		out[i] = w
	}
	return out
}

// Forward computes the output activations for input.
func (n *Network) Forward(input []float64) ([]float64, error) {
	if len(input) != n.sizes[0] {
		return nil, fmt.Errorf("%w: expected %d inputs, got %d", ErrShapeMismatch, n.sizes[0], len(input))
	}
	a := mat.NewDense(1, len(input), append([]float64(nil), input...))
	for _, w := range n.weights {
		_, c := w.Dims()
		z := mat.NewDense(1, c, nil)
		z.Mul(a, w)
		z.Apply(func(_, _ int, v float64) float64 { return Sigmoid(v) }, z)
		a = z
	}
	return mat.Row(nil, 0, a), nil
}

// Sigmoid is the logistic function 1/(1+e^-z).
func Sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// Mutate perturbs each weight independently: with probability rate it
// becomes w + u*epsilon for u uniform in [-1, 1).
func (n *Network) Mutate(rng *rand.Rand, epsilon, rate float64) {
	for _, w := range n.weights {
		w.Apply(func(_, _ int, v float64) float64 {
			if rng.Float64() >= rate {
				return v
			}
			return v + (rng.Float64()*2-1)*epsilon
		}, w)
	}
}

// Clone returns a deep copy sharing no mutable state with n.
func (n *Network) Clone() *Network {
	clone := &Network{
		sizes:   append([]int(nil), n.sizes...),
		weights: make([]*mat.Dense, len(n.weights)),
	}
	for i, w := range n.weights {
		clone.weights[i] = mat.DenseCopyOf(w)
	}
	return clone
}

// Equal reports whether two networks have identical sizes and bit-identical
// weights.
func (n *Network) Equal(o *Network) bool {
	if len(n.sizes) != len(o.sizes) || len(n.weights) != len(o.weights) {
		return false
	}
	for i := range n.sizes {
		if n.sizes[i] != o.sizes[i] {
			return false
		}
	}
	for k, w := range n.weights {
		r, c := w.Dims()
		or, oc := o.weights[k].Dims()
		if r != or || c != oc {
			return false
		}
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if math.Float64bits(w.At(i, j)) != math.Float64bits(o.weights[k].At(i, j)) {
					return false
				}
			}
		}
	}
	return true
}

// Topology returns the layer sizes used for a board with the given number of
// cells: a one-hot input of three states per cell, hidden layers placed at
// the given fractions between input and output size, and one output per
// cell.
func Topology(cells int, hidden []float64) []int {
	inputs := cells * 3
	sizes := make([]int, 0, len(hidden)+2)
	sizes = append(sizes, inputs)
	for _, f := range hidden {
		sizes = append(sizes, int(math.Ceil(float64(inputs)+f*float64(cells-inputs))))
	}
	return append(sizes, cells)
}
