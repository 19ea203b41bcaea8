package evolve

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pthm-cable/salvo/neural"
)

// Population file layout, little-endian:
//
//	magic "SALV", version uint32   (absent in version 0 files)
//	generation int32, networkCount int32, then networkCount networks
//	in the neural package encoding.
const (
	fileMagic   = "SALV"
	FileVersion = 1

	maxNetworks = 1 << 20
)

// ErrCorrupt is returned when a population file cannot be decoded.
var ErrCorrupt = errors.New("corrupt population file")

// Population is the unit of persistence: the networks plus the number of
// generations they have been trained for.
type Population struct {
	Generation int
	Networks   []*neural.Network
}

// WriteTo encodes the population in the current file version.
func (p *Population) WriteTo(w io.Writer) (int64, error) {
	var total int64
	var hdr [16]byte
	copy(hdr[:4], fileMagic)
	binary.LittleEndian.PutUint32(hdr[4:], FileVersion)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(int32(p.Generation)))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(int32(len(p.Networks))))
	n, err := w.Write(hdr[:])
	total += int64(n)
	if err != nil {
		return total, err
	}
	for i, net := range p.Networks {
		n, err := net.WriteTo(w)
		total += n
		if err != nil {
			return total, fmt.Errorf("writing network %d: %w", i, err)
		}
	}
	return total, nil
}

// ReadPopulation decodes a population. Files without the magic header are
// read as version 0, which has the same body.
func ReadPopulation(r io.Reader) (*Population, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(fileMagic))
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCorrupt, err)
	}
	if bytes.Equal(head, []byte(fileMagic)) {
		var hdr [8]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			return nil, fmt.Errorf("%w: reading header: %v", ErrCorrupt, err)
		}
		if v := binary.LittleEndian.Uint32(hdr[4:]); v != FileVersion {
			return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
		}
	}

	var body [8]byte
	if _, err := io.ReadFull(br, body[:]); err != nil {
		return nil, fmt.Errorf("%w: reading counts: %v", ErrCorrupt, err)
	}
	generation := int32(binary.LittleEndian.Uint32(body[:4]))
	count := int32(binary.LittleEndian.Uint32(body[4:]))
	if generation < 0 {
		return nil, fmt.Errorf("%w: negative generation %d", ErrCorrupt, generation)
	}
	if count < 0 || count > maxNetworks {
		return nil, fmt.Errorf("%w: network count %d", ErrCorrupt, count)
	}

	pop := &Population{Generation: int(generation), Networks: make([]*neural.Network, 0, count)}
	for i := 0; i < int(count); i++ {
		net, err := neural.ReadNetwork(br)
		if err != nil {
			return nil, fmt.Errorf("%w: network %d: %v", ErrCorrupt, i, err)
		}
		pop.Networks = append(pop.Networks, net)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after %d networks", ErrCorrupt, count)
	}
	return pop, nil
}

// Save writes pop to path atomically: the data goes to a temporary file in
// the same directory which then replaces path, so an interrupted save never
// destroys the previous generation.
func Save(path string, pop *Population) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating population directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp population file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	bw := bufio.NewWriter(tmp)
	if _, err := pop.WriteTo(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing population: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing population: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing population: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing population: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing population file: %w", err)
	}
	return nil
}

// Load reads the population stored at path.
func Load(path string) (*Population, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening population: %w", err)
	}
	defer f.Close()
	return ReadPopulation(f)
}

// LoadOrEmpty loads the population at path. A missing or unreadable file is
// not an error: training starts over from an empty generation-zero
// population, and the reason is logged.
func LoadOrEmpty(path string, logger *slog.Logger) *Population {
	pop, err := Load(path)
	switch {
	case err == nil:
		logger.Info("population loaded", "path", path, "generation", pop.Generation, "networks", len(pop.Networks))
		return pop
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("no saved population, starting fresh", "path", path)
	default:
		logger.Warn("discarding unreadable population, starting fresh", "path", path, "error", err)
	}
	return &Population{}
}
