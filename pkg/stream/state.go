package stream

// State is the producer's lifecycle. The only transition is Running → Terminated.
type State uint32

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Stats provides counters useful for monitoring backpressure and throughput.
type Stats struct {
	Capacity  int   // max bytes that may be buffered unread
	Buffered  int   // bytes currently buffered
	State     State // producer state
	Terminal  error // terminal error, nil while running
	SourceOps uint64

	BytesFromSource uint64 // bytes the producer read from the source
	BytesDelivered  uint64 // bytes handed to consumers
	ProducerParks   uint64 // times the producer waited for free space
}
