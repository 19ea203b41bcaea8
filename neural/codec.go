package neural

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrCorrupt is returned when serialized network data is malformed.
var ErrCorrupt = errors.New("corrupt network data")

// Bounds on lengths read from disk, so a corrupt header cannot trigger a
// huge allocation.
const (
	maxDim      = 1 << 16
	maxElements = 1 << 26
)

// Encoding is little-endian throughout:
//
//	layerCount int32, layerSizes [layerCount]int32,
//	matrixCount int32, then per matrix:
//	rows int32, cols int32, elementCount int32, elements [elementCount]float64
//
// Elements are stored column-major.

// WriteTo serializes the network to w.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	ew := &errWriter{w: w}
	ew.int32(len(n.sizes))
	for _, s := range n.sizes {
		ew.int32(s)
	}
	ew.int32(len(n.weights))
	for _, m := range n.weights {
		r, c := m.Dims()
		ew.int32(r)
		ew.int32(c)
		ew.int32(r * c)
		for j := 0; j < c; j++ {
			for i := 0; i < r; i++ {
				ew.float64(m.At(i, j))
			}
		}
	}
	return ew.n, ew.err
}

// ReadNetwork decodes one network written by WriteTo.
func ReadNetwork(r io.Reader) (*Network, error) {
	er := &errReader{r: r}
	layers := er.dim("layer count", maxDim)
	sizes := make([]int, 0, layers)
	for i := 0; i < layers && er.err == nil; i++ {
		sizes = append(sizes, er.dim("layer size", maxDim))
	}
	count := er.dim("matrix count", maxDim)
	weights := make([]*mat.Dense, 0, count)
	for k := 0; k < count && er.err == nil; k++ {
		rows := er.dim("rows", maxDim)
		cols := er.dim("cols", maxDim)
		elems := er.dim("element count", maxElements)
		if er.err != nil {
			break
		}
		if k >= len(sizes)-1 || rows != sizes[k] || cols != sizes[k+1] {
			return nil, fmt.Errorf("%w: matrix %d is %dx%d, layer sizes are %v", ErrCorrupt, k, rows, cols, sizes)
		}
		if rows == 0 || cols == 0 {
			return nil, fmt.Errorf("%w: matrix %d is empty", ErrCorrupt, k)
		}
		if elems != rows*cols {
			return nil, fmt.Errorf("%w: matrix %d is %dx%d but holds %d elements", ErrCorrupt, k, rows, cols, elems)
		}
		colMajor := er.float64s(elems)
		if er.err != nil {
			break
		}
		data := make([]float64, elems)
		for j := 0; j < cols; j++ {
			for i := 0; i < rows; i++ {
				data[i*cols+j] = colMajor[j*rows+i]
			}
		}
		weights = append(weights, mat.NewDense(rows, cols, data))
	}
	if er.err != nil {
		return nil, er.err
	}
	net, err := FromWeights(sizes, weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return net, nil
}

type errWriter struct {
	w   io.Writer
	n   int64
	err error
	buf [8]byte
}

func (ew *errWriter) write(b []byte) {
	if ew.err != nil {
		return
	}
	n, err := ew.w.Write(b)
	ew.n += int64(n)
	ew.err = err
}

func (ew *errWriter) int32(v int) {
	binary.LittleEndian.PutUint32(ew.buf[:4], uint32(int32(v)))
	ew.write(ew.buf[:4])
}

func (ew *errWriter) float64(v float64) {
	binary.LittleEndian.PutUint64(ew.buf[:8], math.Float64bits(v))
	ew.write(ew.buf[:8])
}

type errReader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (er *errReader) read(n int) []byte {
	if er.err != nil {
		return nil
	}
	if _, err := io.ReadFull(er.r, er.buf[:n]); err != nil {
		er.fail(err)
		return nil
	}
	return er.buf[:n]
}

func (er *errReader) fail(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("%w: truncated: %v", ErrCorrupt, err)
	}
	er.err = err
}

// readChunk is the number of floats decoded per read. Memory grows only as
// element bytes arrive, so a header claiming a huge matrix in a short
// stream costs at most one chunk.
const readChunk = 4096

// float64s reads n little-endian floats.
func (er *errReader) float64s(n int) []float64 {
	var (
		out []float64
		buf [readChunk * 8]byte
	)
	for len(out) < n && er.err == nil {
		c := min(readChunk, n-len(out))
		b := buf[:c*8]
		if _, err := io.ReadFull(er.r, b); err != nil {
			er.fail(err)
			return nil
		}
		for i := 0; i < c; i++ {
			out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])))
		}
	}
	return out
}

// dim reads an int32 that must lie in [0, limit].
func (er *errReader) dim(what string, limit int32) int {
	b := er.read(4)
	if b == nil {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(b))
	if v < 0 || v > limit {
		er.err = fmt.Errorf("%w: %s %d out of range", ErrCorrupt, what, v)
		return 0
	}
	return int(v)
}
