// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/ragtime/core"
)

// MarshalID serializes an ID to 8 big-endian bytes so encoded IDs sort
// numerically. Keys embed IDs this way so that prefix scans visit fragments in
// ID order; core.IDMUS is used where IDs appear inside record values.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) < 8 {
		return 0, ErrTruncatedData
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

// MarshalFragment serializes a Fragment to bytes.
func MarshalFragment(f *core.Fragment) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil fragment", ErrSerializationFailed)
	}
	buf := make([]byte, core.FragmentMUS.Size(*f))
	core.FragmentMUS.Marshal(*f, buf)
	return buf, nil
}

// UnmarshalFragment deserializes a Fragment from bytes.
func UnmarshalFragment(data []byte) (*core.Fragment, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedData
	}
	f, _, err := core.FragmentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &f, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(c *core.Checkpoint) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil checkpoint", ErrSerializationFailed)
	}
	buf := make([]byte, core.CheckpointMUS.Size(*c))
	core.CheckpointMUS.Marshal(*c, buf)
	return buf, nil
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedData
	}
	c, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &c, nil
}
