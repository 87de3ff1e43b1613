package library

import "kol-studio/internal/asset"

// Library is ordered newest first.
type Library []asset.LibraryAsset

type Filter string

const (
	FilterAll        Filter = "all"
	FilterKOLVideo   Filter = "kol_video"
	FilterOutfit     Filter = "outfit"
	FilterBackground Filter = "background"
)

func ParseFilter(value string) Filter {
	switch Filter(value) {
	case FilterKOLVideo, FilterOutfit, FilterBackground:
		return Filter(value)
	default:
		return FilterAll
	}
}

func (f Filter) Match(a asset.LibraryAsset) bool {
	switch f {
	case FilterKOLVideo:
		k := a.Kind()
		return k == asset.TypeKOL || k == asset.TypeVideo
	case FilterOutfit:
		return a.Kind() == asset.TypeOutfit
	case FilterBackground:
		return a.Kind() == asset.TypeBackground
	default:
		return true
	}
}

// Save upserts a by id and moves it to the front.
func Save(lib Library, a asset.LibraryAsset) Library {
	out := make(Library, 0, len(lib)+1)
	out = append(out, a)
	for _, x := range lib {
		if x.ID != a.ID {
			out = append(out, x)
		}
	}
	return out
}

// SaveAll puts the batch in front, in batch order. A repeated id inside the
// batch keeps its first position and its last value.
func SaveAll(lib Library, batch []asset.LibraryAsset) Library {
	latest := make(map[string]asset.LibraryAsset, len(batch))
	for _, a := range batch {
		latest[a.ID] = a
	}
	out := make(Library, 0, len(lib)+len(batch))
	seen := make(map[string]struct{}, len(batch))
	for _, a := range batch {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, latest[a.ID])
	}
	for _, x := range lib {
		if _, ok := seen[x.ID]; !ok {
			out = append(out, x)
		}
	}
	return out
}

func Delete(lib Library, id string) Library {
	out := make(Library, 0, len(lib))
	for _, x := range lib {
		if x.ID != id {
			out = append(out, x)
		}
	}
	return out
}

// Replace swaps the asset with the given id in place. ok is false when the
// id is absent.
func Replace(lib Library, id string, a asset.LibraryAsset) (Library, bool) {
	out := make(Library, len(lib))
	copy(out, lib)
	for i, x := range out {
		if x.ID == id {
			out[i] = a
			return out, true
		}
	}
	return out, false
}

func Find(lib Library, id string) (asset.LibraryAsset, bool) {
	for _, x := range lib {
		if x.ID == id {
			return x, true
		}
	}
	return asset.LibraryAsset{}, false
}

func (lib Library) Filter(f Filter) Library {
	out := make(Library, 0, len(lib))
	for _, x := range lib {
		if f.Match(x) {
			out = append(out, x)
		}
	}
	return out
}

// Merge concatenates external then local and keeps the first entry per id.
func Merge(external, local Library) Library {
	out := make(Library, 0, len(external)+len(local))
	seen := make(map[string]struct{}, len(external)+len(local))
	for _, list := range []Library{external, local} {
		for _, x := range list {
			if _, ok := seen[x.ID]; ok {
				continue
			}
			seen[x.ID] = struct{}{}
			out = append(out, x)
		}
	}
	return out
}
