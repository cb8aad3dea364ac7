package tasks

import "slices"

// diff computes the two reconciliation sets for a refresh run.
//
// toAdd holds fresh tracks that are neither in the playlist already nor
// in the recent listening history. toRemove holds playlist members that
// appear in the history. Both results are deduplicated and sorted
// ascending so mutation calls are deterministic.
func diff(fresh, playlist, listened []int64) (toAdd, toRemove []int64) {
	members := toSet(playlist)
	heard := toSet(listened)

	seen := make(map[int64]struct{}, len(fresh))
	for _, id := range fresh {
		if _, ok := members[id]; ok {
			continue
		}
		if _, ok := heard[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		toAdd = append(toAdd, id)
	}

	dropped := make(map[int64]struct{}, len(playlist))
	for _, id := range playlist {
		if _, ok := heard[id]; !ok {
			continue
		}
		if _, ok := dropped[id]; ok {
			continue
		}
		dropped[id] = struct{}{}
		toRemove = append(toRemove, id)
	}

	slices.Sort(toAdd)
	slices.Sort(toRemove)
	return toAdd, toRemove
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
