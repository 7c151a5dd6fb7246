package addons

import (
	"strings"
)

// UpdateEntry represents a single settings change addressed by a dotted key path such as "music.volume".
type UpdateEntry struct {
	Key   string
	Value interface{}
}

// UpdateEntries is a list of UpdateEntry that is usually produced by one settings update.
type UpdateEntries []*UpdateEntry

// Document expands every dotted key into nested documents and merges them into one Document
// that can be passed to Provider.Update.
//
//	UpdateEntries{{Key: "music.volume", Value: 50}, {Key: "music.loop", Value: true}}.Document()
//	// => Document{"music": Document{"volume": 50, "loop": true}}
//
// When two entries address the same key, the later one wins.
func (entries UpdateEntries) Document() Document {
	doc := Document{}
	for _, entry := range entries {
		if entry == nil || entry.Key == "" {
			continue
		}
		mergeNested(doc, makeNested(strings.Split(entry.Key, "."), entry.Value))
	}
	return doc
}

func makeNested(path []string, value interface{}) Document {
	if len(path) == 1 {
		return Document{path[0]: value}
	}
	return Document{path[0]: makeNested(path[1:], value)}
}

// mergeNested copies a nested Document of dst before merging into it.
// Entry values are never modified.
func mergeNested(dst Document, src Document) {
	for k, v := range src {
		srcChild, srcIsDoc := v.(Document)
		dstChild, dstIsDoc := dst[k].(Document)
		if srcIsDoc && dstIsDoc {
			merged := MergeDocument(dstChild, nil)
			mergeNested(merged, srcChild)
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}
