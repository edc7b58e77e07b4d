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

import "errors"

var (
	// ErrNotFound is returned when a fragment or checkpoint does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed is returned by repositories whose backend was closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery rejects non-positive limits and empty query vectors.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrInvalidCollection rejects empty collection names and names containing
	// the key separator.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrSerializationFailed wraps record encode and decode failures.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData is returned for empty records and IDs shorter than
	// eight bytes.
	ErrTruncatedData = errors.New("truncated data")
)
