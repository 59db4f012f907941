package circuits

import "github.com/vocdoni/blindbid/types"

// BidProofMaxLevels is the depth of the bid tree inclusion paths.
const BidProofMaxLevels = types.BidTreeMaxLevels
