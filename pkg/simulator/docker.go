package simulator

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/couchbase/faultcheck/pkg/api"
	"github.com/couchbase/faultcheck/pkg/errors"
	"github.com/couchbase/faultcheck/pkg/operation"
	"github.com/couchbase/faultcheck/pkg/util"

	"github.com/Masterminds/semver/v3"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/go-units"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// volumeCreateSchema validates volume creation requests.
const volumeCreateSchema = `{
  "type": "object",
  "properties": {
    "Name": {"type": "string", "pattern": "^[a-zA-Z0-9][a-zA-Z0-9_.-]*$"},
    "Driver": {"type": "string"},
    "DriverOpts": {
      "type": ["object", "null"],
      "additionalProperties": {"type": "string"}
    },
    "Labels": {
      "type": ["object", "null"],
      "additionalProperties": {"type": "string"}
    }
  }
}`

var (
	// versionPrefix matches a versioned API path e.g. /v1.44/volumes.
	versionPrefix = regexp.MustCompile(`^/v([0-9]+\.[0-9]+)(/.*)$`)

	minAPIVersion = semver.MustParse(api.DockerMinAPIVersion)
	maxAPIVersion = semver.MustParse(api.DockerAPIVersion)
)

// simulatedVolume is a provisioned NFS shared volume.
type simulatedVolume struct {
	name      string
	driver    string
	owner     string
	pkg       string
	node      string
	size      string
	labels    map[string]string
	createdAt time.Time
}

// toAPI renders the volume as the daemon does.
func (v *simulatedVolume) toAPI() *volume.Volume {
	return &volume.Volume{
		Name:       v.name,
		Driver:     v.driver,
		Mountpoint: v.node + ":/exports/data",
		CreatedAt:  v.createdAt.Format(time.RFC3339),
		Labels:     v.labels,
		Options: map[string]string{
			"size": v.size,
		},
		Scope: "global",
	}
}

// dockerHandler strips the API version from paths.
type dockerHandler struct {
	router http.Handler
}

// checkAPIVersion checks a requested API version is supported.
func checkAPIVersion(requested string) error {
	v, err := semver.NewVersion(requested)
	if err != nil {
		return errors.NewParameterError("client version %s is malformed", requested)
	}

	if v.LessThan(minAPIVersion) {
		return errors.NewParameterError("client version %s is too old. Minimum supported API version is %s, please upgrade your client to a newer version", requested, api.DockerMinAPIVersion)
	}

	if v.GreaterThan(maxAPIVersion) {
		return errors.NewParameterError("client version %s is too new. Maximum supported API version is %s", requested, api.DockerAPIVersion)
	}

	return nil
}

// ServeHTTP routes unversioned paths.
func (h *dockerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("API-Version", api.DockerAPIVersion)
	w.Header().Set("Docker-Experimental", "false")
	w.Header().Set("OSType", "linux")

	if matches := versionPrefix.FindStringSubmatch(r.URL.Path); matches != nil {
		if err := checkAPIVersion(matches[1]); err != nil {
			util.DockerError(w, err)
			return
		}

		r = r.Clone(r.Context())
		r.URL.Path = matches[2]
		r.URL.RawPath = ""
	}

	h.router.ServeHTTP(w, r)
}

// DockerHandler returns the Docker-compatible daemon API.
func (s *Simulator) DockerHandler() http.Handler {
	router := httprouter.New()
	router.GET("/_ping", s.handleDockerPing)
	router.HEAD("/_ping", s.handleDockerPing)
	router.GET("/version", s.handleVersion)
	router.GET("/info", s.handleInfo)
	router.POST("/volumes/create", s.handleCreateVolume)
	router.GET("/volumes", s.handleListVolumes)
	router.GET("/volumes/:name", s.handleInspectVolume)
	router.DELETE("/volumes/:name", s.handleDeleteVolume)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		util.DockerError(w, errors.NewResourceNotFoundError("page not found"))
	})

	return &loggingHandler{name: "docker", Handler: &dockerHandler{router: router}}
}

// owner returns the account making the request, identified by the common
// name of its client certificate.
func (s *Simulator) owner(r *http.Request) string {
	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		return r.TLS.PeerCertificates[0].Subject.CommonName
	}

	return s.options.DefaultOwner
}

// handleDockerPing reports liveness.
func (s *Simulator) handleDockerPing(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	util.HTTPResponse(w, http.StatusOK)

	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte("OK"))
	}
}

// handleVersion reports the daemon version.
func (s *Simulator) handleVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	util.JSONResponse(w, http.StatusOK, &types.Version{
		Version:       s.options.DaemonVersion,
		APIVersion:    api.DockerAPIVersion,
		MinAPIVersion: api.DockerMinAPIVersion,
		GoVersion:     runtime.Version(),
		Os:            "linux",
		Arch:          "amd64",
		KernelVersion: "3.12.0-1-amd64",
	})
}

// handleInfo reports the daemon configuration, including volume drivers.
func (s *Simulator) handleInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	util.JSONResponse(w, http.StatusOK, &system.Info{
		ID:            "sdc-docker-simulator",
		Name:          "sdc-docker",
		Driver:        "sdc",
		OSType:        "linux",
		Architecture:  "x86_64",
		ServerVersion: s.options.DaemonVersion,
		Plugins: system.PluginsInfo{
			Volume: []string{s.options.VolumeDriver},
		},
	})
}

// sizeMiB converts a volume size e.g. 10g to MiB, rounding up.  An empty size
// is zero, which selects the smallest package.
func sizeMiB(size string) (int64, error) {
	if size == "" {
		return 0, nil
	}

	bytes, err := units.RAMInBytes(size)
	if err != nil || bytes <= 0 {
		return 0, errors.NewParameterError("Volume size %s is invalid", size)
	}

	return int64(math.Ceil(float64(bytes) / units.MiB)), nil
}

// handleCreateVolume provisions an NFS shared volume.
func (s *Simulator) handleCreateVolume(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		util.DockerError(w, err)
		return
	}

	if err := util.ValidateAgainstSchema([]byte(volumeCreateSchema), body); err != nil {
		util.DockerError(w, err)
		return
	}

	request := &volume.CreateOptions{}
	if len(body) != 0 {
		if err := json.Unmarshal(body, request); err != nil {
			util.DockerError(w, errors.NewParameterError("unable to unmarshal body: %v", err))
			return
		}
	}

	driver := request.Driver
	if driver == "" {
		driver = s.options.VolumeDriver
	}

	if driver != s.options.VolumeDriver {
		util.DockerError(w, errors.NewParameterError("Volume driver %s is not supported", driver))
		return
	}

	name := request.Name
	if name == "" {
		name = strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	size := request.DriverOpts["size"]

	requested, err := sizeMiB(size)
	if err != nil {
		util.DockerError(w, err)
		return
	}

	owner := s.owner(r)

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.volumes[owner][name]; ok {
		util.DockerError(w, errors.NewResourceConflictError("Volume with name %s already exists", name))
		return
	}

	pkg, err := s.store.VolumePackage(requested)
	if err != nil {
		util.DockerError(w, err)
		return
	}

	v := &simulatedVolume{
		name:   name,
		driver: driver,
		owner:  owner,
		pkg:    pkg.String(packageIDField),
		size:   size,
		labels: request.Labels,
	}

	provision := func() error {
		node, err := s.store.Allocate(pkg)
		if err != nil {
			return err
		}

		v.node = node.Hostname
		v.createdAt = time.Now().UTC()

		return nil
	}

	job := s.jobs.Run(operation.OperationKindVolumeCreate, owner, name, operation.RunnableFunc(provision))
	if job.Status == operation.OperationStatusFailed {
		glog.Warningf("volume %s provision job %s failed: %s", name, job.ID, job.Error)

		// The daemon hides the workflow failure reason from users.
		util.DockerError(w, errors.NewInternalError("volume creation failed"))

		return
	}

	if s.volumes[owner] == nil {
		s.volumes[owner] = map[string]*simulatedVolume{}
	}

	s.volumes[owner][name] = v

	glog.Infof("volume %s created for %s on %s with package %s", name, owner, v.node, v.pkg)

	util.JSONResponse(w, http.StatusCreated, v.toAPI())
}

// handleListVolumes lists the caller's volumes.
func (s *Simulator) handleListVolumes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owner := s.owner(r)

	s.lock.Lock()
	defer s.lock.Unlock()

	response := volume.ListResponse{
		Volumes: []*volume.Volume{},
	}

	for _, v := range s.volumes[owner] {
		response.Volumes = append(response.Volumes, v.toAPI())
	}

	sort.Slice(response.Volumes, func(i, j int) bool {
		return response.Volumes[i].Name < response.Volumes[j].Name
	})

	util.JSONResponse(w, http.StatusOK, response)
}

// handleInspectVolume returns a single volume.
func (s *Simulator) handleInspectVolume(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	owner := s.owner(r)
	name := params.ByName("name")

	s.lock.Lock()
	defer s.lock.Unlock()

	v, ok := s.volumes[owner][name]
	if !ok {
		util.DockerError(w, errors.NewResourceNotFoundError("No such volume: %s", name))
		return
	}

	util.JSONResponse(w, http.StatusOK, v.toAPI())
}

// handleDeleteVolume removes a volume.
func (s *Simulator) handleDeleteVolume(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	owner := s.owner(r)
	name := params.ByName("name")

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.volumes[owner][name]; !ok {
		util.DockerError(w, errors.NewResourceNotFoundError("No such volume: %s", name))
		return
	}

	s.jobs.Run(operation.OperationKindVolumeDelete, owner, name, operation.RunnableFunc(func() error {
		delete(s.volumes[owner], name)
		return nil
	}))

	util.HTTPResponse(w, http.StatusNoContent)
}
