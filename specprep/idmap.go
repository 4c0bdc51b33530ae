package specprep

import specs "github.com/opencontainers/runtime-spec/specs-go"

// UpdateIDMappings rewrites the hostID of every mapping whose containerID
// equals containerID, to hostID; all other mappings pass through unchanged.
func UpdateIDMappings(mappings []specs.LinuxIDMapping, containerID, hostID uint32) []specs.LinuxIDMapping {
	out := make([]specs.LinuxIDMapping, len(mappings))
	for i, m := range mappings {
		if m.ContainerID == containerID {
			m.HostID = hostID
		}
		out[i] = m
	}
	return out
}
