// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"strings"
)

// EncodeCUE renders m in the CUE encoding accepted by ParseCUE. The packaging step
// uses it to write the resource that gets embedded in the artifact.
func EncodeCUE(m *Manifest) []byte {
	var sb strings.Builder

	sb.WriteString("// Runtime dependency manifest. Generated at packaging time; do not edit.\n\n")
	fmt.Fprintf(&sb, "version: %d\n", FormatVersion)
	if m.plugin != "" {
		fmt.Fprintf(&sb, "plugin: %q\n", m.plugin)
	}

	if len(m.entries) == 0 {
		sb.WriteString("entries: []\n")
		return []byte(sb.String())
	}

	sb.WriteString("entries: [\n")
	for _, e := range m.entries {
		fmt.Fprintf(&sb, "\t{coordinate: %q, version: %q, sha256: %q", e.Coordinate, e.Version, e.Checksum.Hex())
		if !e.Required {
			sb.WriteString(", required: false")
		}
		sb.WriteString("},\n")
	}
	sb.WriteString("]\n")

	return []byte(sb.String())
}

// EncodeText renders m in the line-oriented encoding accepted by ParseText.
func EncodeText(m *Manifest) []byte {
	var sb strings.Builder
	for _, e := range m.entries {
		fmt.Fprintf(&sb, "%s %s %s", e.Coordinate, e.Version, e.Checksum.Hex())
		if !e.Required {
			sb.WriteString(" " + optionalMarker)
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}
