package advisor

import (
	"math/rand"
	"sort"

	"github.com/Veraticus/autoprep/internal/model"
)

// sampleRows draws a uniform sample of up to size rows from the dataset.
// The random source is seeded with the dataset fingerprint, so the same
// snapshot always produces the same sample and advisor requests stay
// reproducible. Null cells are carried as nil values.
func sampleRows(dataset model.Dataset, size int) []map[string]any {
	rows := dataset.RowCount()
	if rows == 0 || len(dataset.Columns) == 0 || size <= 0 {
		return nil
	}

	indexes := make([]int, 0, size)
	if rows <= size {
		for i := 0; i < rows; i++ {
			indexes = append(indexes, i)
		}
	} else {
		rng := rand.New(rand.NewSource(int64(dataset.Fingerprint()))) //nolint:gosec // deterministic sampling, not crypto
		indexes = rng.Perm(rows)[:size]
		sort.Ints(indexes)
	}

	sample := make([]map[string]any, 0, len(indexes))
	for _, idx := range indexes {
		row := make(map[string]any, len(dataset.Columns))
		for _, col := range dataset.Columns {
			cell := col.Cells[idx]
			if cell.Null {
				row[col.Name] = nil
			} else {
				row[col.Name] = cell.Value
			}
		}
		sample = append(sample, row)
	}
	return sample
}
