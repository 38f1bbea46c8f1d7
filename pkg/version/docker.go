// Copyright 2021 Couchbase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file  except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the  License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Docker is a parsed Docker client version.  Docker has used both semantic
// versions (1.9.1) and calendar versions with vendor suffixes (17.03.1-ce),
// both are accepted.
type Docker struct {
	// Major is the first version component.
	Major int

	// Minor is the second version component.
	Minor int

	// Patch is the third version component, zero if not specified.
	Patch int

	// Raw is the string the version was parsed from.
	Raw string
}

// ParseDocker parses a Docker client version string of the form
// <major>.<minor>[.<patch>][-suffix].
func ParseDocker(s string) (*Docker, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, fmt.Errorf("docker version is empty")
	}

	v, err := semver.NewVersion(trimLeadingZeros(raw))
	if err != nil {
		return nil, fmt.Errorf("malformed docker version %q: %w", raw, err)
	}

	return &Docker{
		Major: int(v.Major()),
		Minor: int(v.Minor()),
		Patch: int(v.Patch()),
		Raw:   raw,
	}, nil
}

// trimLeadingZeros removes leading zeros from the numeric components, which
// calendar versions have but semantic versions may not.
func trimLeadingZeros(s string) string {
	core, suffix := s, ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core, suffix = s[:i], s[i:]
	}

	parts := strings.Split(core, ".")
	for i, part := range parts {
		trimmed := strings.TrimLeft(part, "0")
		if trimmed == "" && part != "" {
			trimmed = "0"
		}

		parts[i] = trimmed
	}

	return strings.Join(parts, ".") + suffix
}

// String returns the canonical major.minor.patch form.
func (d *Docker) String() string {
	return fmt.Sprintf("%d.%d.%d", d.Major, d.Minor, d.Patch)
}
