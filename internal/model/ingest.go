package model

// IngestEnvelope carries one console line with the stream it was read from.
// It is the transport contract between line sources and the supervisor loop.
type IngestEnvelope struct {
	Source string
	Line   string
}
