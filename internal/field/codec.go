package field

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// costFieldFile is the on-disk YAML form of one sector's cost field.
// The costs are written row by row so the file reads like the map,
// while CostField itself is indexed [column][row].
type costFieldFile struct {
	Sector struct {
		Column uint32 `yaml:"column"`
		Row    uint32 `yaml:"row"`
	} `yaml:"sector"`
	Costs [][]uint8 `yaml:"costs"`
}

// ParseCostFieldFile decodes one sector cost-field YAML document.
func ParseCostFieldFile(data []byte) (SectorID, *CostField, error) {
	var file costFieldFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return SectorID{}, nil, fmt.Errorf("parsing cost field: %w", err)
	}

	if len(file.Costs) != Resolution {
		return SectorID{}, nil, fmt.Errorf("cost field has %d rows, want %d", len(file.Costs), Resolution)
	}
	f := &CostField{}
	for row, line := range file.Costs {
		if len(line) != Resolution {
			return SectorID{}, nil, fmt.Errorf("cost field row %d has %d columns, want %d", row, len(line), Resolution)
		}
		for col, v := range line {
			f[col][row] = v
		}
	}

	id := SectorID{Column: file.Sector.Column, Row: file.Sector.Row}
	return id, f, nil
}

// MarshalCostFieldFile encodes one sector cost field as YAML.
func MarshalCostFieldFile(id SectorID, f *CostField) ([]byte, error) {
	var file costFieldFile
	file.Sector.Column = id.Column
	file.Sector.Row = id.Row

	file.Costs = make([][]uint8, Resolution)
	for row := 0; row < Resolution; row++ {
		line := make([]uint8, Resolution)
		for col := 0; col < Resolution; col++ {
			line[col] = f[col][row]
		}
		file.Costs[row] = line
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return nil, fmt.Errorf("marshalling cost field: %w", err)
	}
	return data, nil
}
