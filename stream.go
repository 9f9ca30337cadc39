package shrinkcache

import (
	"io"

	"github.com/shrinkcache/shrinkcache/core"
)

// StreamArtifact copies the next chunk of artifact bytes into buf,
// returning io.EOF once the payload is exhausted. It reads from the
// artifact's file handle if present, or drains its in-memory buffer
// otherwise.
func StreamArtifact(artifact *core.Artifact, buf []byte) (int, error) {
	if artifact.File != nil {
		return artifact.File.Reader.Read(buf)
	}
	if artifact.Memory != nil {
		if len(artifact.Memory.Data) == 0 {
			return 0, io.EOF
		}
		n := copy(buf, artifact.Memory.Data)
		artifact.Memory.Data = artifact.Memory.Data[n:]
		return n, nil
	}
	return 0, io.EOF
}
