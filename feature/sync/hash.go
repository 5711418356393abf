package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"shapesync/core/utils"
)

// ContentHash computes a digest over the set of primary key values of a
// shape. The ids are sorted first so the hash depends only on membership,
// never on row order, making local and remote digests directly comparable
// without transferring full rows.
func ContentHash(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}

// rowIDs extracts the primary key values from a remote snapshot.
func rowIDs(rows []map[string]any) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := utils.ToString(row["id"]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
