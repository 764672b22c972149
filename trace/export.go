package trace

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"
)

// WriteJSON writes the run as a single JSON document.
func WriteJSON(w io.Writer, run *Run) error {
	data, err := sonnet.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to encode run")
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write run")
	}
	return nil
}

// ReadJSON decodes a run written by WriteJSON.
func ReadJSON(r io.Reader) (*Run, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read run")
	}
	var run Run
	if err := sonnet.Unmarshal(data, &run); err != nil {
		return nil, errors.Wrap(err, "failed to decode run")
	}
	return &run, nil
}
