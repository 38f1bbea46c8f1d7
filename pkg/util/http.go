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

package util

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/errors"
	"github.com/couchbase/faultcheck/pkg/log"

	"github.com/golang/glog"
)

// HTTPResponse is the canonical writer for HTTP responses.
func HTTPResponse(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// JSONRequest reads the JSON body into the give structure and raises the
// appropriate errors on error.
func JSONRequest(r *http.Request, data interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("unable to read body: %w", err)
	}

	glog.V(log.LevelTrace).Infof("JSON req: %s", string(body))

	if err := json.Unmarshal(body, data); err != nil {
		return errors.NewParameterError("unable to unmarshal body: %v", err)
	}

	return nil
}

// JSONResponse sends generic JSON data back to the client and replies
// with a HTTP status code.
func JSONResponse(w http.ResponseWriter, status int, data interface{}) {
	resp, err := json.Marshal(data)
	if err != nil {
		glog.Errorf("failed to marshal body: %v", err)
		HTTPResponse(w, http.StatusInternalServerError)

		return
	}

	glog.V(log.LevelTrace).Infof("JSON rsp: %s", string(resp))

	w.Header().Set("Content-Type", "application/json")

	HTTPResponse(w, status)

	if _, err := w.Write(resp); err != nil {
		glog.Errorf("error writing response: %v", err)
	}
}

// errorStatus maps error classes to HTTP status codes and API error types.
var errorStatus = map[errors.Kind]struct {
	status int
	code   api.ErrorType
}{
	errors.KindConfiguration:    {http.StatusInternalServerError, api.ErrorConfigurationError},
	errors.KindQuery:            {http.StatusBadRequest, api.ErrorInvalidQuery},
	errors.KindParameter:        {http.StatusBadRequest, api.ErrorInvalidArgument},
	errors.KindValidation:       {http.StatusUnprocessableEntity, api.ErrorValidationFailed},
	errors.KindResourceConflict: {http.StatusConflict, api.ErrorConflict},
	errors.KindResourceNotFound: {http.StatusNotFound, api.ErrorResourceNotFound},
}

// TranslateError translates from an internal error type to a HTTP status code and an API error type.
func TranslateError(err error) (int, api.ErrorType) {
	if e, ok := errorStatus[errors.KindOf(err)]; ok {
		return e.status, e.code
	}

	return http.StatusInternalServerError, api.ErrorInternalError
}

// JSONError is a helper method to return a PAPI style error back to the client.
func JSONError(w http.ResponseWriter, err error) {
	status, code := TranslateError(err)
	e := &api.Error{
		Code:    code,
		Message: err.Error(),
	}
	JSONResponse(w, status, e)
}

// DockerError is a helper method to return a Docker API style error back to the
// client, the error code is embedded in the message as sdc-docker does.
func DockerError(w http.ResponseWriter, err error) {
	status, code := TranslateError(err)
	e := &api.DockerError{
		Message: api.DockerMessage(code, err.Error()),
	}
	JSONResponse(w, status, e)
}
