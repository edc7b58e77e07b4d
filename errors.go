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


package ragtime

import "errors"

var (
	// ErrProviderRequired is returned when an AI provider is not supplied.
	ErrProviderRequired = errors.New("ai provider required")

	// ErrIndexRequired is returned when a vector index is not supplied.
	ErrIndexRequired = errors.New("vector index required")

	// ErrStoreRequired is returned when a session store is not supplied.
	ErrStoreRequired = errors.New("session store required")
)
