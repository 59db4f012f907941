package types

const (
	// BidTreeMaxLevels is the maximum number of levels in the bid merkle tree.
	BidTreeMaxLevels = 64
	// BidTreeKeyLen is the length of a bid tree key (the leaf position) in
	// bytes.
	BidTreeKeyLen = (BidTreeMaxLevels + 7) / 8
	// ScalarSize is the size of every encoded field element and curve
	// coordinate.
	ScalarSize = 32
	// HeightSize is the size of every encoded round height.
	HeightSize = 8
)
