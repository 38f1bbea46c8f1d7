package api

const (
	// HeaderResourceCount is returned by PAPI list requests with the total
	// number of matching records.
	HeaderResourceCount = "X-Resource-Count"

	// HeaderRequestID is used to correlate client requests with server logs.
	HeaderRequestID = "X-Request-Id"

	// DockerAPIVersion is the API version advertised by the simulated daemon.
	DockerAPIVersion = "1.44"

	// DockerMinAPIVersion is the oldest API version the simulated daemon accepts.
	DockerMinAPIVersion = "1.24"
)
