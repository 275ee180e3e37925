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


package core

import "errors"

// Domain validation errors
var (
	// ErrEmptyID indicates a record or node was given an empty ID.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrReservedAttribute indicates a node attribute used a reserved key.
	ErrReservedAttribute = errors.New("attribute key is reserved")

	// ErrInvalidStatus indicates an undefined document lifecycle status.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrMissingContent indicates a vector upsert record without a content field.
	ErrMissingContent = errors.New("record has no content field")
)
