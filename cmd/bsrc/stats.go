package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/srg/bsrc/internal/frame"
	"github.com/srg/bsrc/pkg/stream"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// streamReport is one stream's entry in --stats output. Keys keep insertion
// order so the report reads top-down the same way every run.
type streamReport = orderedmap.OrderedMap[string, any]

func newStreamReport(name, target string, st stream.Stats, pump *frame.Pump) *streamReport {
	r := orderedmap.New[string, any]()
	r.Set("name", name)
	r.Set("target", target)
	r.Set("capacity", st.Capacity)
	r.Set("state", st.State.String())
	r.Set("result", terminalLabel(st.Terminal))
	r.Set("source_ops", st.SourceOps)
	r.Set("bytes_from_source", st.BytesFromSource)
	r.Set("bytes_delivered", st.BytesDelivered)
	r.Set("buffered", st.Buffered)
	r.Set("producer_parks", st.ProducerParks)

	frames := uint64(0)
	if latest, ok := pump.Latest(); ok {
		frames = latest.Frame
	}
	r.Set("frames", frames)
	r.Set("status_events_dropped", pump.Dropped())
	return r
}

func writeStats(w io.Writer, reports []*streamReport) error {
	if reports == nil {
		reports = []*streamReport{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
