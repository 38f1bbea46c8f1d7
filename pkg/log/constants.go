// Package log defines glog verbosity levels shared by the harness, the
// record store client and the simulator.  Select them with -v.
package log

const (
	// LevelDebug logs each step of a run, record store requests and
	// docker invocations without their bodies.
	LevelDebug = 1

	// LevelTrace additionally logs request and response bodies, record
	// snapshots and docker client output.
	LevelTrace = 2
)
