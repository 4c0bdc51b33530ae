package specprep

import specs "github.com/opencontainers/runtime-spec/specs-go"

// ApplyCapabilities applies an add/drop overlay across every capability set
// (bounding, effective, permitted, inheritable, ambient): each set has every
// name in drop removed, then every name in add appended that isn't already
// present. Filtered originals come first, in their original order, followed
// by the adds in the order given; no set gains a duplicate entry.
func ApplyCapabilities(caps *specs.LinuxCapabilities, add, drop []string) *specs.LinuxCapabilities {
	if caps == nil {
		return nil
	}
	out := &specs.LinuxCapabilities{
		Bounding:    overlayCapSet(caps.Bounding, add, drop),
		Effective:   overlayCapSet(caps.Effective, add, drop),
		Permitted:   overlayCapSet(caps.Permitted, add, drop),
		Inheritable: overlayCapSet(caps.Inheritable, add, drop),
		Ambient:     overlayCapSet(caps.Ambient, add, drop),
	}
	return out
}

func overlayCapSet(orig, add, drop []string) []string {
	dropSet := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropSet[d] = true
	}

	kept := make([]string, 0, len(orig))
	present := make(map[string]bool, len(orig)+len(add))
	for _, c := range orig {
		if dropSet[c] {
			continue
		}
		kept = append(kept, c)
		present[c] = true
	}

	for _, c := range add {
		if present[c] {
			continue
		}
		kept = append(kept, c)
		present[c] = true
	}

	return kept
}
