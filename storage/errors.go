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
	// ErrConnection indicates the configured database endpoint could not be
	// opened. Stores propagate it unchanged; there is no retry at this layer.
	ErrConnection = errors.New("connection failed")

	// ErrStorageClosed indicates the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrDimensionMismatch indicates a vector whose length does not match the
	// collection's provisioned index dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")
)
