package metrics

import (
	"errors"
	"sort"
)

// ROCCurve computes the receiver-operating characteristic of scores
// against binary labels. Thresholds are the distinct score values in
// descending order, preceded by a sentinel above the maximum so the curve
// starts at the all-negative point (0, 0); predictions are positive when
// score >= threshold. fpr and tpr are aligned with thresholds.
func ROCCurve(scores []float64, labels []int) (fpr, tpr, thresholds []float64, err error) {
	n := len(scores)
	if n == 0 || len(labels) != n {
		return nil, nil, nil, errors.New("metrics: scores and labels must be non-empty and equal length")
	}
	pos, neg := 0, 0
	for _, l := range labels {
		if l == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, nil, nil, errors.New("metrics: roc curve needs both classes present")
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })

	// Sentinel above the maximum score: nothing predicted positive.
	thresholds = append(thresholds, scores[idx[0]]+1)
	fpr = append(fpr, 0)
	tpr = append(tpr, 0)

	tp, fp := 0, 0
	for i := 0; i < n; {
		t := scores[idx[i]]
		// Consume every sample tied at this score before emitting a point.
		for i < n && scores[idx[i]] == t {
			if labels[idx[i]] == 1 {
				tp++
			} else {
				fp++
			}
			i++
		}
		thresholds = append(thresholds, t)
		fpr = append(fpr, float64(fp)/float64(neg))
		tpr = append(tpr, float64(tp)/float64(pos))
	}
	return fpr, tpr, thresholds, nil
}
