package jobs

import (
	"fmt"
	"sort"

	"github.com/listforge/listforge/internal/localdb"
)

// LocalPersist implements Persist on top of localdb.DB, one "runs"
// collection keyed by "<listID>/<runID>"; ListRuns loads the whole
// collection and keeps the records whose ListID matches.
type LocalPersist struct{ DB *localdb.DB }

const runsCollection = "runs"

func (p LocalPersist) SaveRun(rec Record) error {
	if p.DB == nil {
		return nil
	}
	key := fmt.Sprintf("%d/%s", rec.ListID, rec.ID)
	return p.DB.Put(runsCollection, key, rec)
}

func (p LocalPersist) ListRuns(listID int64, limit int) ([]Record, error) {
	if p.DB == nil {
		return nil, nil
	}
	var all []Record
	if err := p.DB.List(runsCollection, &all); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, r := range all {
		if r.ListID == listID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Finished.After(out[j].Finished) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
