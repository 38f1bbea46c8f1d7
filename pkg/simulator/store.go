package simulator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/errors"
	"github.com/couchbase/faultcheck/pkg/log"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-openapi/jsonpointer"
	"github.com/golang/glog"
)

const (
	// packageIDField identifies a package.
	packageIDField = "uuid"

	// packageTraitsField holds the traits a compute node must have to host
	// an instance of the package.
	packageTraitsField = "traits"
)

// ComputeNode is a server that can host volume storage VMs.
type ComputeNode struct {
	UUID     string                 `json:"uuid"`
	Hostname string                 `json:"hostname"`
	Reserved bool                   `json:"reserved"`
	Traits   map[string]interface{} `json:"traits"`
}

// Store holds packages and compute nodes.
type Store struct {
	packages []api.Record
	nodes    []ComputeNode
	lock     sync.RWMutex
}

// NewStore returns a store populated from fixtures.
func NewStore(fixtures *Fixtures) (*Store, error) {
	s := &Store{
		nodes: append([]ComputeNode{}, fixtures.ComputeNodes...),
	}

	ids := map[string]bool{}

	for _, record := range fixtures.Packages {
		id := record.String(packageIDField)
		if id == "" {
			return nil, errors.NewConfigurationError("package %v has no %s", record, packageIDField)
		}

		if ids[id] {
			return nil, errors.NewConfigurationError("package %s is duplicated", id)
		}

		ids[id] = true

		copied, err := copyRecord(record)
		if err != nil {
			return nil, err
		}

		s.packages = append(s.packages, copied)
	}

	return s, nil
}

// copyRecord deep copies a record.
func copyRecord(record api.Record) (api.Record, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	copied := api.Record{}
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return copied, nil
}

// ListPackages returns copies of packages matching the filter.  An empty
// filter matches everything.
func (s *Store) ListPackages(text string) ([]api.Record, error) {
	var f *filter

	if text != "" {
		compiled, err := compileFilter(text)
		if err != nil {
			return nil, err
		}

		f = compiled
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	records := []api.Record{}

	for _, record := range s.packages {
		if f != nil && !f.Match(record) {
			continue
		}

		copied, err := copyRecord(record)
		if err != nil {
			return nil, err
		}

		records = append(records, copied)
	}

	return records, nil
}

// find returns the index of a package, the lock must be held.
func (s *Store) find(id string) (int, error) {
	for i, record := range s.packages {
		if record.String(packageIDField) == id {
			return i, nil
		}
	}

	return -1, errors.NewResourceNotFoundError("package %s not found", id)
}

// GetPackage returns a copy of a package.
func (s *Store) GetPackage(id string) (api.Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	i, err := s.find(id)
	if err != nil {
		return nil, err
	}

	return copyRecord(s.packages[i])
}

// updatePatch builds a JSON patch that sets each top level field, replacing
// any existing value wholesale.
func updatePatch(update api.Record) ([]byte, error) {
	keys := make([]string, 0, len(update))
	for key := range update {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	operations := make([]map[string]interface{}, 0, len(keys))

	for _, key := range keys {
		operations = append(operations, map[string]interface{}{
			"op":    "add",
			"path":  "/" + jsonpointer.Escape(key),
			"value": update[key],
		})
	}

	return json.Marshal(operations)
}

// UpdatePackage replaces the top level fields of a package named in the
// update, and returns the result.
func (s *Store) UpdatePackage(id string, update api.Record) (api.Record, error) {
	if value, ok := update[packageIDField]; ok && value != id {
		return nil, errors.NewParameterError("package %s field %s is immutable", id, packageIDField)
	}

	raw, err := updatePatch(update)
	if err != nil {
		return nil, err
	}

	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, errors.NewParameterError("package update malformed: %v", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	i, err := s.find(id)
	if err != nil {
		return nil, err
	}

	original, err := json.Marshal(s.packages[i])
	if err != nil {
		return nil, err
	}

	modified, err := patch.Apply(original)
	if err != nil {
		return nil, errors.NewParameterError("package update failed: %v", err)
	}

	updated := api.Record{}
	if err := json.Unmarshal(modified, &updated); err != nil {
		return nil, err
	}

	s.packages[i] = updated

	glog.V(log.LevelDebug).Infof("package %s updated to %s", id, string(modified))

	return copyRecord(updated)
}

// volumePackagePrefix names the packages that size volume storage VMs.
const volumePackagePrefix = "sdc_volume_nfs_"

// recordInt returns a numeric field.
func recordInt(record api.Record, field string) (int64, bool) {
	value, ok := record[field].(float64)
	if !ok {
		return 0, false
	}

	return int64(value), true
}

// VolumePackage returns the smallest active volume package whose quota, in
// MiB, fits the requested size.
func (s *Store) VolumePackage(sizeMiB int64) (api.Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var best api.Record

	var bestQuota int64

	for _, record := range s.packages {
		if !strings.HasPrefix(record.String("name"), volumePackagePrefix) {
			continue
		}

		if active, _ := record["active"].(bool); !active {
			continue
		}

		quota, ok := recordInt(record, "quota")
		if !ok || quota < sizeMiB {
			continue
		}

		if best == nil || quota < bestQuota {
			best = record
			bestQuota = quota
		}
	}

	if best == nil {
		return nil, errors.NewParameterError("volume size %dMiB not available", sizeMiB)
	}

	return copyRecord(best)
}

// traitsSatisfied returns whether offered traits meet the required ones.  A
// required array is satisfied by any one of its values.
func traitsSatisfied(required, offered map[string]interface{}) bool {
	for key, want := range required {
		have, ok := offered[key]
		if !ok {
			return false
		}

		if options, ok := want.([]interface{}); ok {
			found := false

			for _, option := range options {
				if fmt.Sprint(option) == fmt.Sprint(have) {
					found = true
					break
				}
			}

			if !found {
				return false
			}

			continue
		}

		if fmt.Sprint(want) != fmt.Sprint(have) {
			return false
		}
	}

	return true
}

// Allocate picks a compute node for a package.
func (s *Store) Allocate(pkg api.Record) (*ComputeNode, error) {
	required, _ := pkg[packageTraitsField].(map[string]interface{})

	s.lock.RLock()
	defer s.lock.RUnlock()

	for i := range s.nodes {
		node := s.nodes[i]

		if node.Reserved {
			continue
		}

		if traitsSatisfied(required, node.Traits) {
			return &node, nil
		}
	}

	return nil, fmt.Errorf("no compute nodes available with traits %v for package %s", required, pkg.String("name"))
}
