// SPDX-License-Identifier: BSD-3-Clause

package reading

import (
	"github.com/u-bmc/nodemgr/pkg/model"
	"github.com/u-bmc/nodemgr/pkg/sensorreading"
)

// Presence reports a bitmask over Keys: bit i is set when Keys[i]'s
// entity exists with any status other than unavailable. A device whose
// current sample is merely invalid is still physically present, so it
// keeps its bit — the same occupancy test the store's own presence
// predicates use. Presence is always ok: an all-zero mask is itself
// meaningful.
type Presence struct {
	Keys []sensorreading.Key
}

func (f Presence) Fuse(store *sensorreading.Store) (model.Value, bool) {
	var mask uint32
	for i, key := range f.Keys {
		if i >= 32 {
			break
		}
		r, ok := store.Get(key)
		if !ok {
			continue
		}
		if r.Status() != model.StatusUnavailable {
			mask |= 1 << uint(i)
		}
	}
	return model.FromUint32(mask), true
}
