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

package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/log"
	"github.com/couchbase/faultcheck/pkg/match"
	"github.com/couchbase/faultcheck/pkg/volumes"

	"github.com/go-openapi/jsonpointer"
	"github.com/golang/glog"
	"github.com/stretchr/testify/assert"
)

// toJSON renders a value for assertion messages.
func toJSON(value interface{}) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}

	return string(data)
}

// constraints returns the constraints value of a record, nil if absent.
func (c *Context) constraints(record api.Record) (interface{}, error) {
	pointer, err := jsonpointer.New(c.Scenario.ConstraintsPointer)
	if err != nil {
		return nil, err
	}

	value, _, err := pointer.Get(map[string]interface{}(record))
	if err != nil {
		// Not present.
		return nil, nil
	}

	return value, nil
}

// constraintsPatch returns an update that replaces the constraints.
func (c *Context) constraintsPatch(value interface{}) (api.Record, error) {
	pointer, err := jsonpointer.New(c.Scenario.ConstraintsPointer)
	if err != nil {
		return nil, err
	}

	tokens := pointer.DecodedTokens()
	if len(tokens) != 1 {
		return nil, fmt.Errorf("constraints pointer %s must address a top level field", c.Scenario.ConstraintsPointer)
	}

	return api.Record{tokens[0]: value}, nil
}

// ping checks the record store is reachable, if it can.
func (c *Context) ping(ctx context.Context, t assert.TestingT) {
	pinger, ok := c.Store.(Pinger)
	if !ok {
		return
	}

	assert.NoError(t, pinger.Ping(ctx), "connect to record store")
}

// lookup finds the record to break and snapshots its constraints.
func (c *Context) lookup(ctx context.Context, t assert.TestingT) {
	records, count, err := c.Store.List(ctx, c.Scenario.RecordFilter, c.RequestOptions)
	assert.NoError(t, err, "list records")

	ids := []string{}
	for _, record := range records {
		ids = append(ids, record.String(c.Scenario.RecordIDField))
	}

	if !assert.Equal(t, 1, count, "should be 1 result "+toJSON(ids)) {
		return
	}

	if len(records) != 1 {
		return
	}

	original, err := c.constraints(records[0])
	if !assert.NoError(t, err, "snapshot constraints") {
		return
	}

	c.RecordID = ids[0]
	c.Original = original
	c.Snapshotted = true

	glog.Infof("snapshotted record %s constraints %s", c.RecordID, toJSON(c.Original))
}

// inject overwrites the constraints with the fault marker.
func (c *Context) inject(ctx context.Context, t assert.TestingT) {
	patch, err := c.constraintsPatch(c.Scenario.FaultMarker)
	if !assert.NoError(t, err, "build fault patch") {
		return
	}

	err = c.Store.Update(ctx, c.RecordID, patch, c.RequestOptions)
	assert.NoError(t, err, "update setting fault marker")

	if err == nil {
		glog.Infof("injected fault %s into record %s", toJSON(c.Scenario.FaultMarker), c.RecordID)
	}
}

// exercise creates a volume and checks it fails with the expected error.
func (c *Context) exercise(ctx context.Context, t assert.TestingT) {
	attributes := &volumes.Attributes{
		Name: c.VolumeName,
		Size: c.Scenario.VolumeSize,
	}

	c.Result = c.Creator.CreateVolume(ctx, c.User, attributes)

	glog.V(log.LevelDebug).Infof("volume %s creation: err=%v stderr=%q", c.VolumeName, c.Result.Err, c.Result.Stderr)

	assert.Error(t, c.Result.Err, "volume creation should not succeed")

	// On a miss this reports the whole of stderr.
	assert.Equal(t, c.Scenario.ExpectedError, match.Find(c.Result.Stderr, c.Scenario.ExpectedError), "expected InternalError")
}

// restoreValue is what the restore phase writes back.
func (c *Context) restoreValue() interface{} {
	if !c.Snapshotted || c.Original == nil {
		return map[string]interface{}{}
	}

	return c.Original
}

// restore writes back the original constraints.
func (c *Context) restore(ctx context.Context, t assert.TestingT) {
	value := c.restoreValue()

	patch, err := c.constraintsPatch(value)
	if !assert.NoError(t, err, "build restore patch") {
		return
	}

	err = c.Store.Update(ctx, c.RecordID, patch, c.RequestOptions)
	assert.NoError(t, err, "update setting original constraints: "+toJSON(value))

	if err != nil {
		glog.Errorf("failed to restore record %s constraints to %s: %v", c.RecordID, toJSON(value), err)
		return
	}

	c.Restored = value

	glog.Infof("restored record %s constraints %s", c.RecordID, toJSON(value))
}

// emptyIfAbsent treats an absent value as the empty mapping, a store may
// drop an empty field entirely.
func emptyIfAbsent(value interface{}) interface{} {
	if value == nil {
		return map[string]interface{}{}
	}

	return value
}

// verify re-reads the record and checks the restore took.
func (c *Context) verify(ctx context.Context, t assert.TestingT) {
	record, err := c.Store.Get(ctx, c.RecordID, c.RequestOptions)
	if !assert.NoError(t, err, "re-read record %s", c.RecordID) {
		return
	}

	actual, err := c.constraints(record)
	if !assert.NoError(t, err, "read constraints") {
		return
	}

	expected := emptyIfAbsent(c.Restored)
	actual = emptyIfAbsent(actual)

	// Compare as JSON so numeric representations agree.
	if reflect.DeepEqual(expected, actual) {
		return
	}

	assert.JSONEq(t, toJSON(expected), toJSON(actual), "constraints should equal pre-test value")
}
