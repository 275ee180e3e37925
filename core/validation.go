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

import "fmt"

// Attribute keys that collide with document structure and may not appear in
// node attributes.
const (
	AttrKeyID    = "id"
	AttrKeyEdges = "edges"
)

// ValidateAttributes rejects attribute maps that use reserved keys.
func ValidateAttributes(attrs Fields) error {
	for k := range attrs {
		if k == AttrKeyID || k == AttrKeyEdges {
			return fmt.Errorf("%w: %q", ErrReservedAttribute, k)
		}
	}
	return nil
}

// Validate checks a generic record for storability.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	return nil
}

// Validate checks a document status record for storability.
func (d *DocStatusRecord) Validate() error {
	if d.ID == "" {
		return ErrEmptyID
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}
	return nil
}
