package reshape

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/agentic-research/sdeconv/internal/record"
	"github.com/agentic-research/sdeconv/internal/table"
)

// Industry activity ids keyed by the activity names used in blueprints.yaml.
var ActivityIDs = map[string]int{
	"manufacturing":     1,
	"research_time":     3,
	"research_material": 4,
	"copying":           5,
	"invention":         8,
	"reaction":          11,
	"simple_reactions":  11,
}

// UnknownActivity is the id given to activity names missing from ActivityIDs.
const UnknownActivity = 99

var activityNames = map[int]string{
	1:  "manufacturing",
	3:  "research_time",
	4:  "research_material",
	5:  "copying",
	8:  "invention",
	11: "reaction",
}

// BlueprintColumns is the header of the long-format blueprint table.
var BlueprintColumns = []string{
	"BlueprintTypeID", "activityID", "materialTypeID", "quantity", "ProductTypeID", "ProductQuantity",
}

// ProductColumns is the header of the blueprint product map.
var ProductColumns = []string{"BlueprintTypeID", "activityID", "ProductTypeID", "ProductQuantity"}

// Blueprints writes one row per blueprint activity material. Activities
// without materials still get a row so their product is not lost. Besides
// the main table it emits one table per activity and a deduplicated
// product map.
type Blueprints struct{}

func (Blueprints) Name() string { return "blueprints" }

func (Blueprints) Reshape(stem string, root record.Value) ([]*table.Table, error) {
	_, bySeq := root.(*record.Sequence)

	var rows []*record.Row
	byActivity := make(map[int][]*record.Row)

	for _, e := range entries(root) {
		bp, ok := e.Value.(*record.Mapping)
		if !ok {
			continue
		}
		bpID := e.Key
		if id := field(bp, "blueprintTypeID"); bySeq && id != "" {
			bpID = id
		}

		acts := mapping(bp.Get("activities"))
		if acts == nil {
			continue
		}
		for _, act := range acts.Fields {
			actID, known := ActivityIDs[act.Key]
			if !known {
				actID = UnknownActivity
			}
			data, _ := act.Value.(*record.Mapping)

			var prodID, prodQty string
			var materials []record.Value
			if data != nil {
				if prods := sequence(data.Get("products")); len(prods) > 0 {
					p, _ := prods[0].(*record.Mapping)
					prodID, prodQty = field(p, "typeID"), field(p, "quantity")
				}
				materials = sequence(data.Get("materials"))
			}

			emit := func(matID, qty string) {
				r := record.RowOf(
					"BlueprintTypeID", bpID,
					"activityID", strconv.Itoa(actID),
					"materialTypeID", matID,
					"quantity", qty,
					"ProductTypeID", prodID,
					"ProductQuantity", prodQty,
				)
				rows = append(rows, r)
				byActivity[actID] = append(byActivity[actID], r)
			}

			if len(materials) == 0 {
				emit("", "")
				continue
			}
			for _, m := range materials {
				mat, _ := m.(*record.Mapping)
				emit(field(mat, "typeID"), field(mat, "quantity"))
			}
		}
	}

	tables := []*table.Table{table.NewWithColumns(stem+".csv", BlueprintColumns, rows)}

	ids := make([]int, 0, len(byActivity))
	for id := range byActivity {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		name, ok := activityNames[id]
		if !ok {
			name = fmt.Sprintf("activity_%d", id)
		}
		tables = append(tables, table.NewWithColumns(
			fmt.Sprintf("%s_%s.csv", stem, name), BlueprintColumns, byActivity[id]))
	}

	tables = append(tables, table.NewWithColumns(stem+"_products.csv", ProductColumns, products(rows)))
	return tables, nil
}

// products keeps the first row of every (blueprint, activity, product)
// combination that names a product.
func products(rows []*record.Row) []*record.Row {
	seen := make(map[[3]string]bool)
	var out []*record.Row
	for _, r := range rows {
		prod, _ := r.Get("ProductTypeID")
		if prod == "" {
			continue
		}
		bp, _ := r.Get("BlueprintTypeID")
		act, _ := r.Get("activityID")
		key := [3]string{canonicalInt(bp), act, canonicalInt(prod)}
		if seen[key] {
			continue
		}
		seen[key] = true
		qty, _ := r.Get("ProductQuantity")
		out = append(out, record.RowOf(
			"BlueprintTypeID", bp,
			"activityID", act,
			"ProductTypeID", prod,
			"ProductQuantity", qty,
		))
	}
	return out
}

// canonicalInt normalizes integer spellings such as "681.0" so they
// deduplicate with "681".
func canonicalInt(s string) string {
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
