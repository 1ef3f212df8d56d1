package flat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// matrixMagic prefixes every serialised matrix.
var matrixMagic = [4]byte{'R', 'D', 'M', '1'}

// HeaderSize is the length in bytes of a serialised matrix header.
const HeaderSize = 16

// MaxDimensions bounds the vector width accepted from disk.
const MaxDimensions = 1 << 16

// preallocRows caps the row slice reserved before any row is read.
const preallocRows = 4096

// Header describes a serialised matrix.
type Header struct {
	Rows int
	Dims int
}

// Size returns the exact byte length of a matrix with this header.
func (h Header) Size() int64 {
	return HeaderSize + 4*int64(h.Rows)*int64(h.Dims)
}

// CheckSize reports ErrCorruptIndex when a file of size bytes cannot hold
// the matrix the header describes.
func (h Header) CheckSize(size int64) error {
	if h.Size() != size {
		return fmt.Errorf("%w: header claims %d rows of %d dimensions (%d bytes), file has %d bytes",
			domain.ErrCorruptIndex, h.Rows, h.Dims, h.Size(), size)
	}
	return nil
}

// WriteMatrix serialises vectors as: magic, uint32 dims, uint64 rows,
// then rows*dims little-endian float32 values.
func WriteMatrix(w io.Writer, vectors [][]float32) error {
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(matrixMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(dims)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(vectors))); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("%w: row %d has %d dimensions, expected %d", domain.ErrInvalidInput, i, len(v), dims)
		}
		for _, x := range v {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// ReadHeader reads only the matrix header.
func ReadHeader(r io.Reader) (Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, fmt.Errorf("%w: read header: %v", domain.ErrCorruptIndex, err)
	}
	if magic != matrixMagic {
		return Header{}, fmt.Errorf("%w: bad magic %q", domain.ErrCorruptIndex, magic[:])
	}
	var dims uint32
	var rows uint64
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return Header{}, fmt.Errorf("%w: read dims: %v", domain.ErrCorruptIndex, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return Header{}, fmt.Errorf("%w: read rows: %v", domain.ErrCorruptIndex, err)
	}
	if rows > math.MaxInt32 {
		return Header{}, fmt.Errorf("%w: implausible row count %d", domain.ErrCorruptIndex, rows)
	}
	if dims > MaxDimensions || (dims == 0 && rows > 0) {
		return Header{}, fmt.Errorf("%w: implausible dimension count %d", domain.ErrCorruptIndex, dims)
	}
	return Header{Rows: int(rows), Dims: int(dims)}, nil
}

// ReadMatrix reads a matrix written by WriteMatrix. Truncated or trailing
// data is reported as ErrCorruptIndex. Rows are allocated as they are read,
// so a damaged header cannot reserve more memory than the input holds.
func ReadMatrix(r io.Reader) ([][]float32, error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, min(h.Rows, preallocRows))
	buf := make([]byte, 4*h.Dims)
	for i := 0; i < h.Rows; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: row %d of %d: %v", domain.ErrCorruptIndex, i, h.Rows, err)
		}
		row := make([]float32, h.Dims)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		vectors = append(vectors, row)
	}

	if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after %d rows", domain.ErrCorruptIndex, h.Rows)
	}
	return vectors, nil
}

// Save serialises the index rows.
func (idx *Index) Save(w io.Writer) error {
	return WriteMatrix(w, idx.rows)
}

// Load reads an index written by Save. Rows are stored already
// normalised and are not renormalised, so reloaded scores match exactly.
func Load(r io.Reader) (*Index, error) {
	rows, err := ReadMatrix(r)
	if err != nil {
		return nil, err
	}
	idx := New(0)
	if len(rows) > 0 {
		idx.dims = len(rows[0])
	}
	idx.rows = rows
	return idx, nil
}
