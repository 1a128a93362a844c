package join

import "oepma/internal/assets"

// AssetResolver maps a shelfmark to its asset file.
type AssetResolver interface {
	Resolve(shelfmark string) (assets.Match, bool)
}

// ResolveAssets records the derived asset name on every entry with a
// shelfmark, and the file path where one was found. It returns the number of
// entries that got a path.
func (idx *Index) ResolveAssets(resolver AssetResolver) int {
	if resolver == nil {
		return 0
	}
	found := 0
	for _, key := range idx.order {
		for _, entry := range idx.entries[key] {
			match, ok := resolver.Resolve(entry.Shelfmark)
			entry.AssetName = match.Name
			entry.AssetPath = match.Path
			if ok {
				found++
			}
		}
	}
	return found
}
