// Package objectkey defines the canonical addressing scheme for media blobs
// and the resolution rules for the reference shapes that have accumulated in
// stored metadata over the years.
package objectkey

import (
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"time"
)

// Namespace is the top-level folder a media object lives under in the bucket.
type Namespace string

const (
	NamespaceVideos      Namespace = "videos"
	NamespaceThumbnails  Namespace = "thumbnails"
	NamespaceAudio       Namespace = "audio"
	NamespaceCategories  Namespace = "categories"
	NamespaceCollections Namespace = "collections"
	NamespaceVideoSteps  Namespace = "video-steps"
)

// Namespaces lists every recognized namespace. Order matters for resolution:
// "video-steps" must be matched before a bare-key fallback but its canonical
// form nests under "videos" (see Resolve).
var Namespaces = []Namespace{
	NamespaceVideos,
	NamespaceThumbnails,
	NamespaceAudio,
	NamespaceCategories,
	NamespaceCollections,
	NamespaceVideoSteps,
}

func (n Namespace) IsValid() bool {
	switch n {
	case NamespaceVideos, NamespaceThumbnails, NamespaceAudio,
		NamespaceCategories, NamespaceCollections, NamespaceVideoSteps:
		return true
	default:
		return false
	}
}

func (n Namespace) String() string {
	return string(n)
}

// ObjectKey is the canonical address of a blob inside the bucket.
// The wire form is always "<namespace>/<filename>", never a URL.
type ObjectKey struct {
	Namespace Namespace
	Filename  string
}

// String renders the wire form stored in metadata records and sent to the
// storage endpoint.
func (k ObjectKey) String() string {
	return string(k.Namespace) + "/" + k.Filename
}

// IsZero reports whether the key is unset.
func (k ObjectKey) IsZero() bool {
	return k.Namespace == "" && k.Filename == ""
}

// ParseKey interprets s as a canonical key. It returns false when s does not
// start with a recognized namespace segment.
func ParseKey(s string) (ObjectKey, bool) {
	ns, rest, found := strings.Cut(s, "/")
	if !found || rest == "" {
		return ObjectKey{}, false
	}
	if !Namespace(ns).IsValid() {
		return ObjectKey{}, false
	}
	return ObjectKey{Namespace: Namespace(ns), Filename: rest}, true
}

// BuildKey joins a namespace and a generated filename into a canonical key,
// tolerating a leading slash on the filename.
func BuildKey(ns Namespace, filename string) ObjectKey {
	return ObjectKey{
		Namespace: ns,
		Filename:  strings.TrimLeft(filename, "/"),
	}
}

// GenerateFilename produces a collision-resistant object filename that keeps
// the original extension: "<prefix->?<unixMillis>-<random>.<ext>".
func GenerateFilename(originalName, prefix string) string {
	ext := strings.ToLower(path.Ext(originalName))
	name := fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Int64N(1_000_000_000), ext)
	if prefix != "" {
		name = prefix + "-" + name
	}
	return name
}
