// Package resolve computes the ordered candidate storage paths for a texture
// reference. The external renderer implements the same protocol against the
// same pack configuration and indices; any divergence breaks lookups with no
// error signal, so every rule here is deliberate and covered by tests.
package resolve

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/mapstream/mapstream/api"
	"github.com/mapstream/mapstream/internal/strhash"
)

// Resolution constants shared with the renderer.
const (
	CanonicalDir = "models_textures"
	DefaultExt   = "png"
)

// imageExts classifies a bare suffix as an explicit path reference.
var imageExts = map[string]bool{
	".png": true, ".dds": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tga": true,
}

// legacyDirAliases maps directory names older tooling emitted onto the one
// canonical texture directory.
var legacyDirAliases = map[string]string{
	"textures":       CanonicalDir,
	"texture":        CanonicalDir,
	"model_textures": CanonicalDir,
}

// canonicalRef matches "<hash>[_<slug>].<ext>" file names inside the
// canonical directory. Hashes are decimal u32.
var canonicalRef = regexp.MustCompile(`^([0-9]{1,10})(?:_([0-9a-z_]+))?\.([0-9A-Za-z]+)$`)

// TierIndex hands out per-tier reverse-lookup indices; nil values mean the
// tier has no usable index, which is expected and non-fatal.
type TierIndex interface {
	Tier(root string) *api.TextureIndex
}

// Resolver generates candidate paths. It performs no I/O and keeps no
// mutable state, so one instance can serve any number of goroutines.
type Resolver struct {
	packs []api.Pack // enabled, priority desc then id asc
}

func NewResolver(packs []api.Pack) *Resolver {
	return &Resolver{packs: orderPacks(packs)}
}

// Candidates returns the ordered, de-duplicated list of storage paths to try
// for one texture reference. Empty or unusable input yields an empty list;
// the caller treats that as "no texture", not an error.
func (r *Resolver) Candidates(input string, idx TierIndex) []string {
	ref := strings.TrimSpace(input)
	if ref == "" {
		return nil
	}

	if isExplicitPath(ref) {
		ref = normalizePath(ref)
	} else {
		ref = bareNameRef(ref)
	}
	if ref == "" {
		return nil
	}

	var out []string
	add := func(c string) {
		for _, existing := range out {
			if existing == c {
				return
			}
		}
		out = append(out, c)
	}

	dir, file := path.Split(ref)
	hash, slug, ext, ok := ParseName(file)
	if strings.TrimSuffix(dir, "/") != CanonicalDir || !ok {
		// Not a canonical hash reference: each tier just gets its copy.
		for _, root := range r.tierRoots() {
			add(tierPath(root, ref))
		}
		return out
	}

	hashOnly := CanonicalDir + "/" + hash + "." + ext

	for _, root := range r.tierRoots() {
		if slug != "" {
			add(tierPath(root, hashOnly))
		} else {
			if entry := tierEntry(idx, root, hash); entry != nil &&
				entry.PreferredFile != "" && entry.PreferredFile != hash+"."+ext && !entry.HashOnly {
				add(tierPath(root, CanonicalDir+"/"+entry.PreferredFile))
			}
			add(tierPath(root, hashOnly))
		}
		// The normalized input is every tier's final fallback.
		add(tierPath(root, ref))
	}
	return out
}

// FirstExisting walks candidates in order and returns the first one the
// caller's existence check accepts. Selection is the caller's job because
// candidate generation must stay free of I/O.
func FirstExisting(candidates []string, exists func(string) bool) (string, bool) {
	for _, c := range candidates {
		if exists(c) {
			return c, true
		}
	}
	return "", false
}

// tierRoots lists pack roots in precedence order, then "" for the base tier.
func (r *Resolver) tierRoots() []string {
	roots := make([]string, 0, len(r.packs)+1)
	for _, p := range r.packs {
		roots = append(roots, p.RootRel)
	}
	return append(roots, "")
}

func tierPath(root, ref string) string {
	if root == "" {
		return ref
	}
	return path.Join(root, ref)
}

func tierEntry(idx TierIndex, root, hash string) *api.TextureEntry {
	if idx == nil {
		return nil
	}
	ti := idx.Tier(root)
	if ti == nil {
		return nil
	}
	entry, ok := ti.ByHash[hash]
	if !ok {
		return nil
	}
	return &entry
}

// isExplicitPath treats anything with a separator or a recognized image
// extension as a path; everything else is a bare human-readable name.
func isExplicitPath(ref string) bool {
	if strings.ContainsAny(ref, "/\\") {
		return true
	}
	return imageExts[strings.ToLower(path.Ext(ref))]
}

// normalizePath canonicalizes an explicit reference: forward slashes, no
// leading slash, one optional leading "assets/" stripped, legacy directory
// names rewritten.
func normalizePath(ref string) string {
	ref = strings.ReplaceAll(ref, "\\", "/")
	ref = strings.TrimLeft(ref, "/")
	if len(ref) >= len("assets/") && strings.EqualFold(ref[:len("assets/")], "assets/") {
		ref = ref[len("assets/"):]
	}
	if i := strings.IndexByte(ref, '/'); i > 0 {
		if canon, ok := legacyDirAliases[strings.ToLower(ref[:i])]; ok {
			ref = canon + ref[i:]
		}
	}
	return ref
}

// bareNameRef derives the canonical reference for a bare name: a slug plus
// the one-at-a-time hash of the lower-cased name.
func bareNameRef(name string) string {
	hash := strconv.FormatUint(uint64(strhash.OneAtATime(name)), 10)
	if slug := Slugify(name); slug != "" {
		return CanonicalDir + "/" + hash + "_" + slug + "." + DefaultExt
	}
	return CanonicalDir + "/" + hash + "." + DefaultExt
}

// Slugify lower-cases a name and collapses every run of non-alphanumeric
// characters into a single underscore, trimming underscores at both ends.
func Slugify(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

// ParseName splits a canonical "<hash>[_<slug>].<ext>" file name. The hash
// must be a decimal u32; anything else is not a canonical reference.
func ParseName(file string) (hash, slug, ext string, ok bool) {
	m := canonicalRef.FindStringSubmatch(file)
	if m == nil {
		return "", "", "", false
	}
	if _, err := strconv.ParseUint(m[1], 10, 32); err != nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}
