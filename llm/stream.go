package llm

import (
	"fmt"
	"io"

	"github.com/cloudwego/eino/schema"
)

// Accumulate drains a streaming model response and returns the
// concatenated full message. onChunk is invoked for every delta as it
// arrives; returning an error from it aborts the stream. The reader is
// closed before returning.
func Accumulate(sr *schema.StreamReader[*schema.Message], onChunk func(*schema.Message) error) (*schema.Message, error) {
	defer sr.Close()

	var chunks []*schema.Message
	for {
		chunk, err := sr.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("llm: stream recv: %w", err)
		}
		chunks = append(chunks, chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return nil, err
			}
		}
	}

	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("llm: concatenating stream: %w", err)
	}
	return full, nil
}
