package flag

import "flag"

var (
	// ServiceName tags logs and metrics emitted by this process.
	ServiceName = flag.String("service_name", "feedstream", "name of the running service, e.g. api_server, fanout_worker")
)

// ParseFlags must be called at the beginning of main before any flag value
// is read.
func ParseFlags() {
	flag.Parse()
}
