package circuits

// The circuits package contains the circuits of the blind bid sortition and
// the helpers they share. A bidder proves, once per round, that the score
// published for the round comes from a bid of the bid tree, without
// disclosing which bid, its value or the bidder secret:
//   1. The bid is a leaf of the bid tree: the commitment to its value is
//      recomputed from the opening and hashed with the rest of the public
//      record up to the tree root.
//   2. The round height is inside the eligibility window of the bid.
//   3. The value is not lower than the minimum bid.
//   4. The score is derived from the value and MiMC(secret, seed).
// The circuits are defined in the following way:
//
// +------------+
// |    Bid     |  BN254                <- native
// |   Proof    |  (BabyJubJub inside)  <- commitments
// +------------+
