package objectkey

import (
	"net/url"
	"regexp"
	"strings"
)

// ResolutionKind distinguishes bucket-addressable references from legacy
// local-filesystem paths that predate object storage.
type ResolutionKind int

const (
	// KindObject means Key addresses a blob in the storage bucket.
	KindObject ResolutionKind = iota
	// KindLegacyLocal means LocalPath addresses a file under the legacy
	// uploads directory on local disk.
	KindLegacyLocal
)

// Resolution is the outcome of normalizing a stored reference.
type Resolution struct {
	Kind      ResolutionKind
	Key       string // canonical object key, set when Kind == KindObject
	LocalPath string // path relative to the uploads root, set when Kind == KindLegacyLocal
}

var (
	canonicalRe = regexp.MustCompile(`^(videos|thumbnails|audio|categories|collections|video-steps)/`)
	embeddedRe  = regexp.MustCompile(`(videos|thumbnails|audio|categories|collections|video-steps)/[^?#]+`)
)

// Resolve maps any reference shape found in stored metadata to one canonical
// outcome. It is pure, never fails, and is idempotent:
// Resolve(Resolve(x).Key).Key == Resolve(x).Key for every object resolution.
//
// Historical shapes handled, in order:
//  1. already-canonical keys (with the video-steps prefix repair),
//  2. fully-qualified URLs pointing at the public or signed bucket endpoint,
//  3. legacy local paths under an uploads/ directory,
//  4. anything else passes through unchanged as a bare key.
func Resolve(ref string) Resolution {
	if canonicalRe.MatchString(ref) {
		return Resolution{Kind: KindObject, Key: repairKey(ref)}
	}

	if isURL(ref) {
		if key, ok := keyFromURL(ref); ok {
			return Resolution{Kind: KindObject, Key: repairKey(key)}
		}
		if m := embeddedRe.FindString(ref); m != "" {
			return Resolution{Kind: KindObject, Key: repairKey(m)}
		}
	}

	if idx := strings.Index(ref, "uploads/"); idx >= 0 {
		return Resolution{Kind: KindLegacyLocal, LocalPath: ref[idx+len("uploads/"):]}
	}

	return Resolution{Kind: KindObject, Key: ref}
}

// ResolveKey is a convenience for callers that only deal with bucket objects.
// Legacy local references resolve to their path relative to the uploads root,
// which the object store will simply fail to find.
func ResolveKey(ref string) string {
	res := Resolve(ref)
	if res.Kind == KindLegacyLocal {
		return res.LocalPath
	}
	return res.Key
}

// repairKey applies the historical video-steps key-shape fix: keys were once
// written as "video-steps/<file>" but the objects live under
// "videos/video-steps/<file>". Stored data still carries the short form, so
// the repair must stay until a key migration runs.
func repairKey(key string) string {
	if strings.HasPrefix(key, "video-steps/") {
		return "videos/" + key
	}
	return key
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.Contains(ref, "://")
}

// keyFromURL extracts an object key from a bucket URL by locating the first
// path segment that names a known namespace. The query string (signatures,
// expiry params) is discarded with the rest of the URL envelope.
func keyFromURL(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if Namespace(seg).IsValid() && i < len(segments)-1 {
			return strings.Join(segments[i:], "/"), true
		}
	}
	return "", false
}
