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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/couchbase/faultcheck/pkg/log"

	"github.com/golang/glog"
	"github.com/spf13/viper"
)

const (
	// envPrefix is prepended to environment variables derived from keys
	// e.g. FAULTCHECK_PAPI_URL.
	envPrefix = "FAULTCHECK"

	// ModeCLI exercises the daemon by running the docker client.
	ModeCLI = "cli"

	// ModeAPI exercises the daemon with the Docker Engine SDK.
	ModeAPI = "api"
)

// Config is the complete harness configuration.
type Config struct {
	Docker   DockerConfig   `json:"docker" mapstructure:"docker"`
	User     UserConfig     `json:"user" mapstructure:"user"`
	PAPI     PAPIConfig     `json:"papi" mapstructure:"papi"`
	Features FeaturesConfig `json:"features" mapstructure:"features"`
	Scenario ScenarioConfig `json:"scenario" mapstructure:"scenario"`
}

// DockerConfig describes the Docker client under test.
type DockerConfig struct {
	// CLIVersion is the docker client version, used to gate volume support.
	CLIVersion string `json:"cliVersion" mapstructure:"cliVersion"`

	// Mode selects how the daemon is exercised, either "cli" or "api".
	Mode string `json:"mode" mapstructure:"mode"`

	// Binary is the docker client executable used in CLI mode.
	Binary string `json:"binary" mapstructure:"binary"`

	// APIVersion pins the Docker API version, negotiated if empty.
	APIVersion string `json:"apiVersion,omitempty" mapstructure:"apiVersion"`
}

// UserConfig describes the account the test acts as.
type UserConfig struct {
	Login     string `json:"login" mapstructure:"login"`
	Host      string `json:"host" mapstructure:"host"`
	CertPath  string `json:"certPath,omitempty" mapstructure:"certPath"`
	TLSVerify bool   `json:"tlsVerify" mapstructure:"tlsVerify"`
}

// PAPIConfig locates the package API.
type PAPIConfig struct {
	URL string `json:"url" mapstructure:"url"`
}

// FeaturesConfig describes what the deployment supports.
type FeaturesConfig struct {
	// NFSSharedVolumes is set when the deployment supports NFS shared volumes.
	NFSSharedVolumes bool `json:"nfsSharedVolumes" mapstructure:"nfsSharedVolumes"`

	// ProbeVolumeDriver asks the daemon for VolumeDriver rather than trusting
	// NFSSharedVolumes.
	ProbeVolumeDriver bool `json:"probeVolumeDriver" mapstructure:"probeVolumeDriver"`

	// VolumeDriver is the volume plugin that provides NFS shared volumes.
	VolumeDriver string `json:"volumeDriver" mapstructure:"volumeDriver"`
}

// ScenarioConfig describes the fault to inject and the failure to expect.
type ScenarioConfig struct {
	// RecordFilter is an LDAP filter that must select exactly one package.
	RecordFilter string `json:"recordFilter" mapstructure:"recordFilter"`

	// RecordIDField is the record field holding its identifier.
	RecordIDField string `json:"recordIDField" mapstructure:"recordIDField"`

	// ConstraintsPointer is a JSON pointer to the top level constraints field.
	ConstraintsPointer string `json:"constraintsPointer" mapstructure:"constraintsPointer"`

	// FaultMarker replaces the constraints to break provisioning.
	FaultMarker map[string]interface{} `json:"faultMarker" mapstructure:"faultMarker"`

	// VolumeSize is the requested volume size, it selects the package.
	VolumeSize string `json:"volumeSize" mapstructure:"volumeSize"`

	// VolumeNamePrefix namespaces generated volume names.
	VolumeNamePrefix string `json:"volumeNamePrefix" mapstructure:"volumeNamePrefix"`

	// ExpectedError is the literal message expected on stderr.
	ExpectedError string `json:"expectedError" mapstructure:"expectedError"`
}

// defaultFaultMarker is a trait that no compute node will ever have.
func defaultFaultMarker() map[string]interface{} {
	return map[string]interface{}{
		"broken_by_docker_tests": true,
	}
}

// setDefaults populates defaults matching a stock sdc-docker test setup.
func setDefaults(v *viper.Viper) {
	v.SetDefault("docker.cliVersion", "")
	v.SetDefault("docker.mode", ModeCLI)
	v.SetDefault("docker.binary", "docker")
	v.SetDefault("docker.apiVersion", "")

	v.SetDefault("user.login", "alice")
	v.SetDefault("user.host", "")
	v.SetDefault("user.certPath", "")
	v.SetDefault("user.tlsVerify", false)

	v.SetDefault("papi.url", "")

	v.SetDefault("features.nfsSharedVolumes", false)
	v.SetDefault("features.probeVolumeDriver", false)
	v.SetDefault("features.volumeDriver", "tritonnfs")

	v.SetDefault("scenario.recordFilter", "(&(name=sdc_volume_nfs_10)(active=true))")
	v.SetDefault("scenario.recordIDField", "uuid")
	v.SetDefault("scenario.constraintsPointer", "/traits")
	v.SetDefault("scenario.volumeSize", "10g")
	v.SetDefault("scenario.volumeNamePrefix", "test-nfs-shared-volume")
	v.SetDefault("scenario.expectedError", "Error response from daemon: (InternalError) volume creation failed")
}

// bindEnv maps environment variables to keys.  The prefixed name is checked
// before the name used by the sdc-docker test suite.
func bindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"docker.cliVersion":         "DOCKER_CLI_VERSION",
		"user.host":                 "DOCKER_HOST",
		"user.certPath":             "DOCKER_CERT_PATH",
		"user.tlsVerify":            "DOCKER_TLS_VERIFY",
		"docker.apiVersion":         "DOCKER_API_VERSION",
		"features.nfsSharedVolumes": "EXPERIMENTAL_DOCKER_NFS_SHARED_VOLUMES",
		"papi.url":                  "PAPI_URL",
	}

	for key, legacy := range bindings {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))

		// Cannot fail with a non-empty key.
		_ = v.BindEnv(key, prefixed, legacy)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to access config file: %w", err)
		}

		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		glog.V(log.LevelDebug).Infof("read configuration from %s", path)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Maps are merged across configuration layers by viper, a marker from
	// a file must replace the default, not extend it.
	if len(config.Scenario.FaultMarker) == 0 {
		config.Scenario.FaultMarker = defaultFaultMarker()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
