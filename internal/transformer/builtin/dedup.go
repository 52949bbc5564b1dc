package builtin

import (
	"fmt"
	"log"
	"strings"

	"github.com/zeebo/xxh3"

	"evadoption/internal/frame"
)

// DeDup collapses rows sharing a key and keeps one winner per key:
//
//   - "keep-first"   : the earliest row
//   - "keep-last"    : the latest row (default)
//   - "most-complete": the row with the most present cells, PreferFields
//     weighing extra; ties go to the later row
//
// Winners stay at their original position. Rows with an absent key cell
// are not deduplicated and pass through.
type DeDup struct {
	Keys         []string
	Policy       string
	PreferFields []string
}

// Apply drops the losing rows in place; winners keep input order.
func (d DeDup) Apply(f *frame.Frame) (*frame.Frame, error) {
	if len(d.Keys) == 0 || f.Len() == 0 {
		return f, nil
	}
	keyIdx := make([]int, len(d.Keys))
	for n, k := range d.Keys {
		if keyIdx[n] = f.Index(k); keyIdx[n] < 0 {
			return nil, fmt.Errorf("dedupe: %w: %q", frame.ErrColumnNotFound, k)
		}
	}
	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = "keep-last"
	}
	prefer := make([]int, 0, len(d.PreferFields))
	for _, p := range d.PreferFields {
		if j := f.Index(p); j >= 0 {
			prefer = append(prefer, j)
		}
	}
	scoreOf := func(row []any) int {
		score, bonus := 0, 0
		for _, v := range row {
			if !frame.IsBlank(v) {
				score++
			}
		}
		for _, j := range prefer {
			if !frame.IsBlank(row[j]) {
				bonus++
			}
		}
		return score*10 + bonus
	}

	type slot struct {
		key   string
		index int
		score int
	}
	winners := map[uint64][]slot{}
	rows := f.Rows()
	for i, row := range rows {
		key, ok := rowKey(row, keyIdx)
		if !ok {
			continue
		}
		h := xxh3.HashString(key)
		bucket := winners[h]
		pos := -1
		for n := range bucket {
			if bucket[n].key == key {
				pos = n
				break
			}
		}
		s := slot{key: key, index: i}
		if pos < 0 {
			if policy == "most-complete" {
				s.score = scoreOf(row)
			}
			winners[h] = append(bucket, s)
			continue
		}
		switch policy {
		case "keep-first":
		case "most-complete":
			s.score = scoreOf(row)
			if s.score >= bucket[pos].score {
				bucket[pos] = s
			}
		default:
			bucket[pos] = s
		}
	}

	keep := make([]bool, len(rows))
	for i, row := range rows {
		if _, ok := rowKey(row, keyIdx); !ok {
			keep[i] = true
		}
	}
	for _, bucket := range winners {
		for _, s := range bucket {
			keep[s.index] = true
		}
	}
	i := -1
	removed := f.Filter(func([]any) bool {
		i++
		return keep[i]
	})
	log.Printf("dedupe: keys=%q policy=%s dropped=%d", d.Keys, policy, removed)
	return f, nil
}

// rowKey joins the canonical key strings of row; ok is false when one is
// absent.
func rowKey(row []any, idx []int) (string, bool) {
	var b strings.Builder
	for n, j := range idx {
		s, ok := frame.KeyString(row[j])
		if !ok {
			return "", false
		}
		if n > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(s)
	}
	return b.String(), true
}
