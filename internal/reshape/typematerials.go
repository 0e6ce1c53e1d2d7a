package reshape

import (
	"github.com/agentic-research/sdeconv/internal/record"
	"github.com/agentic-research/sdeconv/internal/table"
)

// TypeMaterialColumns is the header of the reprocessing materials table.
var TypeMaterialColumns = []string{"root_id", "MaterialTypeID", "MaterialQuantity", "IsRandomized?"}

// TypeMaterials lists reprocessing output per type, one row per material,
// flagging entries that come from randomizedMaterials.
type TypeMaterials struct{}

func (TypeMaterials) Name() string { return "typematerials" }

func (TypeMaterials) Reshape(stem string, root record.Value) ([]*table.Table, error) {
	var rows []*record.Row
	for _, e := range entries(root) {
		attrs, ok := e.Value.(*record.Mapping)
		if !ok {
			continue
		}
		for _, group := range []struct {
			key        string
			randomized string
		}{
			{"materials", "No"},
			{"randomizedMaterials", "Yes"},
		} {
			for _, m := range sequence(attrs.Get(group.key)) {
				mat, _ := m.(*record.Mapping)
				rows = append(rows, record.RowOf(
					"root_id", e.Key,
					"MaterialTypeID", field(mat, "materialTypeID"),
					"MaterialQuantity", field(mat, "quantity"),
					"IsRandomized?", group.randomized,
				))
			}
		}
	}
	return []*table.Table{table.NewWithColumns(stem+".csv", TypeMaterialColumns, rows)}, nil
}
