package scorectl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/okian/creditscope/internal/adapters/artifact"
	"github.com/okian/creditscope/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// LoadRecord reads one client record from a .json or .yaml file. Records
// without an id are treated as new clients.
func LoadRecord(path string) (model.Record, error) {
	format, err := artifact.FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	rec := model.Record{}
	switch format {
	case artifact.FormatYAML:
		err = yaml.Unmarshal(data, &rec)
	default:
		err = json.Unmarshal(data, &rec)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArgs, path, err)
	}

	if _, ok := rec[model.IDKey]; !ok {
		rec[model.IDKey] = model.NewClientID
	}
	return rec, nil
}
