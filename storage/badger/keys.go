package badger

import "fmt"

// Key prefixes for the different record kinds. Every stored document lives
// under its collection's "doc" prefix; the registry and index descriptors
// live beside the documents so one database holds any number of collections.
const (
	collectionRegistryPrefix = "colreg"
	documentPrefix           = "doc"
	vectorIndexPrefix        = "vecidx"
)

// makeCollectionKey generates the registry key for a collection name.
func makeCollectionKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionRegistryPrefix, name))
}

// makeDocKey generates the key for a document by collection and id.
func makeDocKey(collection, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", documentPrefix, collection, id))
}

// makeDocPrefix generates the scan prefix covering every document in a
// collection.
func makeDocPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", documentPrefix, collection))
}

// makeVectorIndexKey generates the key of a collection's vector index
// descriptor.
func makeVectorIndexKey(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s", vectorIndexPrefix, collection))
}

// docID extracts the document id from a full key given its collection
// prefix.
func docID(key, prefix []byte) string {
	return string(key[len(prefix):])
}
