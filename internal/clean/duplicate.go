package clean

import "github.com/sells-group/datacleaner/internal/model"

// RemoveDuplicates keeps the first occurrence of each full-row tuple. Two
// rows are duplicates when every cell is equal; nulls compare equal to nulls.
func RemoveDuplicates(ds *model.Dataset) (*model.Dataset, model.AuditEntry) {
	seen := make(map[string]struct{}, len(ds.Rows))
	removed := 0
	out := ds.Filter(func(_ int, r model.Row) bool {
		k := model.RowKey(r)
		if _, dup := seen[k]; dup {
			removed++
			return false
		}
		seen[k] = struct{}{}
		return true
	})
	return out, entry(OpDuplicates, "", removed, nil)
}

// CountDuplicates returns how many rows RemoveDuplicates would drop.
func CountDuplicates(ds *model.Dataset) int {
	seen := make(map[string]struct{}, len(ds.Rows))
	n := 0
	for _, r := range ds.Rows {
		k := model.RowKey(r)
		if _, dup := seen[k]; dup {
			n++
			continue
		}
		seen[k] = struct{}{}
	}
	return n
}
