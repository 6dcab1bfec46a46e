package compositor

// insertionCutoff is the length under which selection falls back to a full
// insertion sort.
const insertionCutoff = 16

// indexBits is the width of the stack-index part of a joint key.
const indexBits = 20

const indexMask = 1<<indexBits - 1

// jointKey orders observations by band sum, then by stack index. Keys are
// unique within a pixel, so any selection algorithm returns the element a
// stable sort by sum would place at the same rank.
func jointKey(r, g, b uint8, idx int) uint64 {
	return uint64(uint16(r)+uint16(g)+uint16(b))<<indexBits | uint64(idx)
}

func keyIndex(k uint64) int {
	return int(k & indexMask)
}

// selectKth returns the k-th smallest element of a (0-based), reordering a.
func selectKth(a []uint64, k int) uint64 {
	lo, hi := 0, len(a)-1
	for hi-lo >= insertionCutoff {
		p := partition(a, lo, hi)
		switch {
		case k == p:
			return a[k]
		case k < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
	insertionSort(a[lo : hi+1])
	return a[k]
}

// partition uses a median-of-three pivot and returns its final position.
func partition(a []uint64, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if a[mid] < a[lo] {
		a[mid], a[lo] = a[lo], a[mid]
	}
	if a[hi] < a[lo] {
		a[hi], a[lo] = a[lo], a[hi]
	}
	if a[hi] < a[mid] {
		a[hi], a[mid] = a[mid], a[hi]
	}
	a[mid], a[hi] = a[hi], a[mid]
	pivot := a[hi]

	i := lo
	for j := lo; j < hi; j++ {
		if a[j] < pivot {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func insertionSort(a []uint64) {
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 && a[j] > v {
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
}
