package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// ErrMalformedRecord is returned when an encoded length prefix exceeds the
// remaining input or is negative.
var ErrMalformedRecord = errors.New("malformed record")

// Serializers for the records persisted by the storage layer. Each follows the
// mus-go Marshal/Unmarshal/Size/Skip contract: Marshal writes into a buffer
// sized by Size and returns the number of bytes written.
var (
	IDMUS         = idMUS{}
	FragmentMUS   = fragmentMUS{}
	CheckpointMUS = checkpointMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

// timeMUS stores times as Unix microseconds and restores them in UTC.
type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

// unmarshalLength reads a length prefix and checks that at least min*length
// bytes remain after it.
func unmarshalLength(bs []byte, min int) (int, int, error) {
	l, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	if l < 0 || l*min > len(bs)-n {
		return 0, n, ErrMalformedRecord
	}
	return l, n, nil
}

// metadataMUS encodes a string map as a length followed by key/value pairs.
type metadataMUS struct{}

func (metadataMUS) Marshal(m map[string]string, bs []byte) int {
	n := varint.Int.Marshal(len(m), bs)
	for k, v := range m {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v, bs[n:])
	}
	return n
}

func (metadataMUS) Unmarshal(bs []byte) (map[string]string, int, error) {
	l, n, err := unmarshalLength(bs, 2)
	if err != nil || l == 0 {
		return nil, n, err
	}
	m := make(map[string]string, l)
	for range l {
		k, kn, err := ord.String.Unmarshal(bs[n:])
		n += kn
		if err != nil {
			return nil, n, err
		}
		v, vn, err := ord.String.Unmarshal(bs[n:])
		n += vn
		if err != nil {
			return nil, n, err
		}
		m[k] = v
	}
	return m, n, nil
}

func (metadataMUS) Size(m map[string]string) int {
	size := varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}

// vectorMUS encodes a float32 slice as a length followed by fixed-width values.
type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, x := range v {
		n += raw.Float32.Marshal(x, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) ([]float32, int, error) {
	l, n, err := unmarshalLength(bs, 4)
	if err != nil || l == 0 {
		return nil, n, err
	}
	v := make([]float32, l)
	for i := range v {
		x, xn, err := raw.Float32.Unmarshal(bs[n:])
		n += xn
		if err != nil {
			return nil, n, err
		}
		v[i] = x
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, x := range v {
		size += raw.Float32.Size(x)
	}
	return size
}

type fragmentMUS struct{}

func (fragmentMUS) Marshal(f Fragment, bs []byte) int {
	n := IDMUS.Marshal(f.ID, bs)
	n += ord.String.Marshal(f.Collection, bs[n:])
	n += ord.String.Marshal(f.SourceID, bs[n:])
	n += ord.String.Marshal(f.Title, bs[n:])
	n += ord.String.Marshal(f.Text, bs[n:])
	n += metadataMUS{}.Marshal(f.Metadata, bs[n:])
	n += vectorMUS{}.Marshal(f.Vector, bs[n:])
	n += timeMUS{}.Marshal(f.InsertedAt, bs[n:])
	n += timeMUS{}.Marshal(f.UpdatedAt, bs[n:])
	return n
}

func (fragmentMUS) Unmarshal(bs []byte) (f Fragment, n int, err error) {
	var m int
	if f.ID, m, err = IDMUS.Unmarshal(bs); err != nil {
		return f, n + m, err
	}
	n += m
	for _, s := range []*string{&f.Collection, &f.SourceID, &f.Title, &f.Text} {
		if *s, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return f, n + m, err
		}
		n += m
	}
	if f.Metadata, m, err = (metadataMUS{}).Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.Vector, m, err = (vectorMUS{}).Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	if f.InsertedAt, m, err = (timeMUS{}).Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	f.UpdatedAt, m, err = timeMUS{}.Unmarshal(bs[n:])
	return f, n + m, err
}

func (fragmentMUS) Size(f Fragment) int {
	return IDMUS.Size(f.ID) +
		ord.String.Size(f.Collection) +
		ord.String.Size(f.SourceID) +
		ord.String.Size(f.Title) +
		ord.String.Size(f.Text) +
		metadataMUS{}.Size(f.Metadata) +
		vectorMUS{}.Size(f.Vector) +
		timeMUS{}.Size(f.InsertedAt) +
		timeMUS{}.Size(f.UpdatedAt)
}

func (s fragmentMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(c Checkpoint, bs []byte) int {
	n := ord.String.Marshal(c.ProcessorType, bs)
	n += ord.String.Marshal(c.Collection, bs[n:])
	n += IDMUS.Marshal(c.LastID, bs[n:])
	n += varint.Int.Marshal(c.Processed, bs[n:])
	n += timeMUS{}.Marshal(c.UpdatedAt, bs[n:])
	return n
}

func (checkpointMUS) Unmarshal(bs []byte) (c Checkpoint, n int, err error) {
	var m int
	if c.ProcessorType, m, err = ord.String.Unmarshal(bs); err != nil {
		return c, m, err
	}
	n += m
	if c.Collection, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.LastID, m, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Processed, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	c.UpdatedAt, m, err = timeMUS{}.Unmarshal(bs[n:])
	return c, n + m, err
}

func (checkpointMUS) Size(c Checkpoint) int {
	return ord.String.Size(c.ProcessorType) +
		ord.String.Size(c.Collection) +
		IDMUS.Size(c.LastID) +
		varint.Int.Size(c.Processed) +
		timeMUS{}.Size(c.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}
