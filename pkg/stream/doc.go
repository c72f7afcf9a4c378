// Package stream provides BufferedSource, a bounded ring buffer filled by a
// background goroutine from a blocking io.Reader and drained by callers that
// must never block.
//
// # Basic Usage
//
//	conn, _ := net.Dial("tcp", addr)
//	src, err := stream.New(conn, 5000, &stream.Options{Logger: logger, CloseSource: true})
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	// Once per frame:
//	ok, err := src.HasAtLeast(2)
//	if err != nil {
//	    return err // end of source, failure, or closed
//	}
//	if ok {
//	    hi, _ := src.ReadByte()
//	    lo, _ := src.ReadByte()
//	    _ = int(hi)<<8 | int(lo)
//	}
//
// # Error Semantics
//
// The producer stops permanently on the first terminal error: ErrEndOfSource
// when the reader returns io.EOF, a *SourceError (matching ErrSourceFailure)
// for any other read error, or ErrClosed after Close. Consumer operations
// report the terminal error only once every byte buffered before it has been
// drained. "Nothing buffered yet" is not an error condition for ReadInto and
// AvailableCount; ReadByte and Read report it as ErrNoData, which matches
// syscall.EAGAIN under errors.Is.
//
// # Shutdown
//
// Close installs ErrClosed, wakes the producer and waits for it to exit. A
// producer blocked inside the source's Read cannot be interrupted unless
// Options.CloseSource is set and the source implements io.Closer; otherwise
// Close waits for that Read to return.
package stream
