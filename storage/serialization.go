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
	"time"

	mus "github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/ragstore/core"
)

// MUS serializers for the stored document types. Hand-written in the shape
// musgen emits: one serializer object per type, composed from the ord /
// varint / raw primitives. Timestamps travel as unix-microsecond int64.

// FieldsMUS serializes attribute maps.
var FieldsMUS = ord.NewMapSer[string, string](ord.String, ord.String)

// VectorMUS serializes embedding vectors with fixed-width float32 elements.
var VectorMUS = ord.NewSliceSer[float32](raw.Float32)

var (
	_ mus.Serializer[core.Edge]            = EdgeMUS
	_ mus.Serializer[core.Node]            = NodeMUS
	_ mus.Serializer[core.Record]          = RecordMUS
	_ mus.Serializer[core.DocStatusRecord] = DocStatusRecordMUS
	_ mus.Serializer[core.VectorRecord]    = VectorRecordMUS
	_ mus.Serializer[core.VectorIndex]     = VectorIndexMUS
)

// EdgeMUS serializes core.Edge.
var EdgeMUS = edgeMUS{}

type edgeMUS struct{}

func (edgeMUS) Marshal(v core.Edge, bs []byte) (n int) {
	n = ord.String.Marshal(v.Target, bs)
	n += ord.String.Marshal(v.Relation, bs[n:])
	n += FieldsMUS.Marshal(v.Attributes, bs[n:])
	return
}

func (edgeMUS) Unmarshal(bs []byte) (v core.Edge, n int, err error) {
	var n1 int
	if v.Target, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Relation, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.Attributes, n1, err = FieldsMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (edgeMUS) Size(v core.Edge) (size int) {
	size = ord.String.Size(v.Target)
	size += ord.String.Size(v.Relation)
	size += FieldsMUS.Size(v.Attributes)
	return
}

func (edgeMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n, err = ord.String.Skip(bs); err != nil {
		return
	}
	if n1, err = ord.String.Skip(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	n1, err = FieldsMUS.Skip(bs[n:])
	n += n1
	return
}

// EdgesMUS serializes a node's outbound edge list.
var EdgesMUS = ord.NewSliceSer[core.Edge](EdgeMUS)

// NodeMUS serializes core.Node.
var NodeMUS = nodeMUS{}

type nodeMUS struct{}

func (nodeMUS) Marshal(v core.Node, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += FieldsMUS.Marshal(v.Attributes, bs[n:])
	n += EdgesMUS.Marshal(v.Edges, bs[n:])
	return
}

func (nodeMUS) Unmarshal(bs []byte) (v core.Node, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Attributes, n1, err = FieldsMUS.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.Edges, n1, err = EdgesMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (nodeMUS) Size(v core.Node) (size int) {
	size = ord.String.Size(v.ID)
	size += FieldsMUS.Size(v.Attributes)
	size += EdgesMUS.Size(v.Edges)
	return
}

func (nodeMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n, err = ord.String.Skip(bs); err != nil {
		return
	}
	if n1, err = FieldsMUS.Skip(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	n1, err = EdgesMUS.Skip(bs[n:])
	n += n1
	return
}

// RecordMUS serializes core.Record.
var RecordMUS = recordMUS{}

type recordMUS struct{}

func (recordMUS) Marshal(v core.Record, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += FieldsMUS.Marshal(v.Fields, bs[n:])
	return
}

func (recordMUS) Unmarshal(bs []byte) (v core.Record, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Fields, n1, err = FieldsMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (recordMUS) Size(v core.Record) (size int) {
	size = ord.String.Size(v.ID)
	size += FieldsMUS.Size(v.Fields)
	return
}

func (recordMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n, err = ord.String.Skip(bs); err != nil {
		return
	}
	n1, err = FieldsMUS.Skip(bs[n:])
	n += n1
	return
}

// DocStatusRecordMUS serializes core.DocStatusRecord.
var DocStatusRecordMUS = docStatusRecordMUS{}

type docStatusRecordMUS struct{}

func (docStatusRecordMUS) Marshal(v core.DocStatusRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.ContentSummary, bs[n:])
	n += varint.Int.Marshal(v.ContentLength, bs[n:])
	n += varint.Int.Marshal(v.ChunksCount, bs[n:])
	n += ord.String.Marshal(v.FilePath, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return
}

func (docStatusRecordMUS) Unmarshal(bs []byte) (v core.DocStatusRecord, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var status string
	if status, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.Status = core.DocStatus(status)
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.ContentSummary, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.ContentLength, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.ChunksCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.FilePath, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	var createdAt, updatedAt int64
	if createdAt, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	updatedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	v.CreatedAt = time.UnixMicro(createdAt).UTC()
	v.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	return
}

func (docStatusRecordMUS) Size(v core.DocStatusRecord) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(string(v.Status))
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.ContentSummary)
	size += varint.Int.Size(v.ContentLength)
	size += varint.Int.Size(v.ChunksCount)
	size += ord.String.Size(v.FilePath)
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return
}

func (s docStatusRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// VectorRecordMUS serializes core.VectorRecord.
var VectorRecordMUS = vectorRecordMUS{}

type vectorRecordMUS struct{}

func (vectorRecordMUS) Marshal(v core.VectorRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt, bs[n:])
	n += FieldsMUS.Marshal(v.Metadata, bs[n:])
	return
}

func (vectorRecordMUS) Unmarshal(bs []byte) (v core.VectorRecord, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Vector, n1, err = VectorMUS.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	if v.CreatedAt, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.Metadata, n1, err = FieldsMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (vectorRecordMUS) Size(v core.VectorRecord) (size int) {
	size = ord.String.Size(v.ID)
	size += VectorMUS.Size(v.Vector)
	size += varint.Int64.Size(v.CreatedAt)
	size += FieldsMUS.Size(v.Metadata)
	return
}

func (s vectorRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// VectorIndexMUS serializes core.VectorIndex.
var VectorIndexMUS = vectorIndexMUS{}

type vectorIndexMUS struct{}

func (vectorIndexMUS) Marshal(v core.VectorIndex, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int.Marshal(v.Dimensions, bs[n:])
	n += ord.String.Marshal(v.Metric, bs[n:])
	return
}

func (vectorIndexMUS) Unmarshal(bs []byte) (v core.VectorIndex, n int, err error) {
	var n1 int
	if v.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Dimensions, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		n += n1
		return
	}
	n += n1
	v.Metric, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (vectorIndexMUS) Size(v core.VectorIndex) (size int) {
	size = ord.String.Size(v.Name)
	size += varint.Int.Size(v.Dimensions)
	size += ord.String.Size(v.Metric)
	return
}

func (s vectorIndexMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// MarshalNode serializes a Node to bytes.
func MarshalNode(node *core.Node) []byte {
	buf := make([]byte, NodeMUS.Size(*node))
	NodeMUS.Marshal(*node, buf)
	return buf
}

// UnmarshalNode deserializes a Node from bytes.
func UnmarshalNode(data []byte) (*core.Node, error) {
	node, _, err := NodeMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *core.Record) []byte {
	buf := make([]byte, RecordMUS.Size(*record))
	RecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	record, _, err := RecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalDocStatusRecord serializes a DocStatusRecord to bytes.
func MarshalDocStatusRecord(record *core.DocStatusRecord) []byte {
	buf := make([]byte, DocStatusRecordMUS.Size(*record))
	DocStatusRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalDocStatusRecord deserializes a DocStatusRecord from bytes.
func UnmarshalDocStatusRecord(data []byte) (*core.DocStatusRecord, error) {
	record, _, err := DocStatusRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(record *core.VectorRecord) []byte {
	buf := make([]byte, VectorRecordMUS.Size(*record))
	VectorRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*core.VectorRecord, error) {
	record, _, err := VectorRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalVectorIndex serializes a VectorIndex to bytes.
func MarshalVectorIndex(index *core.VectorIndex) []byte {
	buf := make([]byte, VectorIndexMUS.Size(*index))
	VectorIndexMUS.Marshal(*index, buf)
	return buf
}

// UnmarshalVectorIndex deserializes a VectorIndex from bytes.
func UnmarshalVectorIndex(data []byte) (*core.VectorIndex, error) {
	index, _, err := VectorIndexMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &index, nil
}
