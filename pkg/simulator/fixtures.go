package simulator

import (
	"fmt"
	"os"

	"github.com/couchbase/faultcheck/pkg/api"

	"github.com/ghodss/yaml"
)

// Fixtures are the initial contents of the simulated datacenter.
type Fixtures struct {
	Packages     []api.Record  `json:"packages"`
	ComputeNodes []ComputeNode `json:"computeNodes"`
}

// defaultFixtures model a small datacenter with NFS volume packages.  The
// inactive 10g package has the same name as the active one so only a filter
// on both matches exactly one.
const defaultFixtures = `
packages:
- uuid: 0b2e5ab6-a8e2-4a4d-8b3c-6fd7f2c1e010
  name: sdc_volume_nfs_10
  version: 1.0.0
  active: true
  quota: 10240
  max_physical_memory: 1024
  owner_uuids: []
- uuid: 5f0e9a8c-7c93-4f3a-9bb0-1d7d2b4e0a9f
  name: sdc_volume_nfs_10
  version: 0.9.0
  active: false
  quota: 10240
  max_physical_memory: 1024
- uuid: 7a4ce1de-24f4-4bb3-8e1e-4b3a0e5c6d20
  name: sdc_volume_nfs_20
  version: 1.0.0
  active: true
  quota: 20480
  max_physical_memory: 1024
- uuid: c2b7e4f0-3c55-4a8c-9b61-2f7a0b6a1e30
  name: sdc_volume_nfs_100
  version: 1.0.0
  active: true
  quota: 102400
  max_physical_memory: 2048
  traits:
    storage: true
- uuid: 9d3f6b2a-1e4c-4f7d-8a5b-3c2e1d0f9a40
  name: sample-1G
  version: 1.0.0
  active: true
  quota: 25600
  max_physical_memory: 1024
computeNodes:
- uuid: 44454c4c-3200-1042-8050-b5c04f383432
  hostname: headnode
  reserved: true
  traits: {}
- uuid: 564d1f7a-3a5e-6b2c-8d4f-9e0a1b2c3d4e
  hostname: cn0
  traits:
    storage: true
- uuid: 564d9c2b-7e1f-4a3d-b5c6-d7e8f9a0b1c2
  hostname: cn1
  traits:
    ssd: true
`

// ParseFixtures decodes YAML fixtures.
func ParseFixtures(data []byte) (*Fixtures, error) {
	fixtures := &Fixtures{}
	if err := yaml.Unmarshal(data, fixtures); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}

	return fixtures, nil
}

// DefaultFixtures returns the built in fixtures.
func DefaultFixtures() *Fixtures {
	fixtures, err := ParseFixtures([]byte(defaultFixtures))
	if err != nil {
		panic(err)
	}

	return fixtures
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	return ParseFixtures(data)
}
